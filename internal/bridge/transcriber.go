// Package bridge turns voice notes into intents: speech-to-text with a
// bounded retry, then a single JSON-mode classification call.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	applog "spendtrace/internal/log"
	"spendtrace/internal/metrics"
)

// ErrEmptyTranscript is returned when speech-to-text succeeds but yields no words.
var ErrEmptyTranscript = errors.New("empty transcript")

// SpeechToText is the raw transcription endpoint.
type SpeechToText interface {
	Transcribe(ctx context.Context, model string, audio []byte) (string, error)
}

// Transcriber retries failed transcriptions a fixed number of times with a
// fixed pause and no jitter.
type Transcriber struct {
	api      SpeechToText
	model    string
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *applog.Logger
}

type TranscriberOption func(*Transcriber)

func WithAttempts(n int) TranscriberOption {
	return func(t *Transcriber) {
		if n > 0 {
			t.attempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) TranscriberOption {
	return func(t *Transcriber) { t.delay = d }
}

// WithSleep replaces the pause between attempts, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) TranscriberOption {
	return func(t *Transcriber) { t.sleep = sleep }
}

func NewTranscriber(api SpeechToText, model string, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		api:      api,
		model:    model,
		attempts: 3,
		delay:    time.Second,
		sleep:    sleepContext,
		logger:   applog.Default(applog.ComponentBridge),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		text, err := t.api.Transcribe(ctx, t.model, audio)
		if err == nil {
			metrics.TranscriptionAttempts.WithLabelValues("success").Inc()
			text = strings.TrimSpace(text)
			if text == "" {
				return "", ErrEmptyTranscript
			}
			return text, nil
		}
		metrics.TranscriptionAttempts.WithLabelValues("failure").Inc()
		lastErr = err
		t.logger.WarnContext(ctx, "Transcription attempt failed",
			applog.FieldAttempt, attempt,
			applog.FieldError, err)

		if attempt == t.attempts {
			break
		}
		if err := t.sleep(ctx, t.delay); err != nil {
			return "", fmt.Errorf("transcription aborted after %d attempts: %w", attempt, err)
		}
	}
	return "", fmt.Errorf("transcription failed after %d attempts: %w", t.attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
