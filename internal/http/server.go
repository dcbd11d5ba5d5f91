// Package http exposes the webhook endpoints, health probes and metrics.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "spendtrace/internal/log"
	"spendtrace/internal/metrics"
	"spendtrace/internal/middleware/ratelimit"
	"spendtrace/internal/middleware/security"
	"spendtrace/internal/middleware/trace"
	"spendtrace/internal/pipeline"
)

// maxWebhookBody bounds a webhook delivery. Cloud API batches stay far below it.
const maxWebhookBody = 1 << 20

// Webhook is the intake the handlers drive.
type Webhook interface {
	Verify(mode, token, challenge string) (string, bool)
	Authentic(body []byte, signature string) bool
	Ingest(ctx context.Context, raw []byte) pipeline.Outcome
}

// ReadinessCheck reports an error while a dependency is unavailable.
type ReadinessCheck func(ctx context.Context) error

// Options configures a Server.
type Options struct {
	Webhook Webhook
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck
	// VerifyRequestsPerMinute throttles the subscription handshake per client.
	VerifyRequestsPerMinute int
	Logger                  *applog.Logger
}

type Server struct {
	http.Server
	webhook  Webhook
	checks   map[string]ReadinessCheck
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP
	logger   *applog.Logger
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	limit := ratelimit.DefaultConfig()
	if opts.VerifyRequestsPerMinute > 0 {
		limit.RequestsPerMinute = opts.VerifyRequestsPerMinute
	}

	s := &Server{
		webhook:  opts.Webhook,
		checks:   opts.Checks,
		limiter:  ratelimit.NewLimiter(limit),
		clientIP: security.NewClientIP(),
		logger:   logger,
		started:  time.Now(),
	}

	verify := s.limiter.Middleware(s.clientIP.Extract, func(r *http.Request) {
		metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.clientIP.Extract(r),
			applog.FieldPath, r.URL.Path)
	})(http.HandlerFunc(s.handleVerify))

	mux := http.NewServeMux()
	mux.Handle("GET /webhook", verify)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	tracer := trace.NewMiddleware(s.clientIP.Extract, logger.WithComponent(applog.ComponentTrace))
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
