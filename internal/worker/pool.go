// Package worker runs background tasks with bounded concurrency and a
// bounded number of admitted tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	applog "spendtrace/internal/log"
	"spendtrace/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when the admission limit is reached.
	ErrQueueFull = errors.New("worker queue full")
	// ErrClosed is returned by Submit after Shutdown has begun.
	ErrClosed = errors.New("worker pool closed")
)

// Task is a unit of background work. ctx is cancelled if shutdown times out.
type Task func(ctx context.Context)

// Pool runs at most concurrency tasks at once and admits at most depth tasks
// (running plus waiting).
type Pool struct {
	sem   *semaphore.Weighted
	depth int

	mu       sync.Mutex
	admitted int
	closed   bool
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	logger *applog.Logger
}

func NewPool(concurrency, depth int, logger *applog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if depth < concurrency {
		depth = concurrency
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		depth:  depth,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit admits task without blocking. It returns the generated task id.
func (p *Pool) Submit(name string, task Task) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	if p.admitted >= p.depth {
		p.mu.Unlock()
		return "", ErrQueueFull
	}
	p.admitted++
	metrics.WorkerQueued.Set(float64(p.admitted))
	p.wg.Add(1)
	p.mu.Unlock()

	id := uuid.NewString()
	go p.run(id, name, task)
	return id, nil
}

func (p *Pool) run(id, name string, task Task) {
	defer p.wg.Done()
	defer p.release()

	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		p.logger.Warn("Task dropped before start", applog.FieldTaskID, id, applog.FieldOperation, name, applog.FieldError, err)
		return
	}
	defer p.sem.Release(1)

	ctx := applog.IntoContext(p.ctx, p.logger.With(applog.FieldTaskID, id))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.Tasks.WithLabelValues("panic").Inc()
			p.logger.ErrorContext(ctx, "Task panicked",
				applog.FieldTaskID, id,
				applog.FieldOperation, name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	task(ctx)
	p.logger.DebugContext(ctx, "Task finished",
		applog.FieldTaskID, id,
		applog.FieldOperation, name,
		applog.FieldDuration, time.Since(start).Milliseconds())
}

func (p *Pool) release() {
	p.mu.Lock()
	p.admitted--
	metrics.WorkerQueued.Set(float64(p.admitted))
	p.mu.Unlock()
}

// Admitted returns the number of running and waiting tasks.
func (p *Pool) Admitted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admitted
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Shutdown stops admission and waits for admitted tasks. If ctx ends first
// the tasks' context is cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
