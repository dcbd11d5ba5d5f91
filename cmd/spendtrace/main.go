package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"spendtrace/internal/backend"
	"spendtrace/internal/bridge"
	"spendtrace/internal/cache"
	"spendtrace/internal/cli"
	"spendtrace/internal/config"
	"spendtrace/internal/dedup"
	"spendtrace/internal/groq"
	apphttp "spendtrace/internal/http"
	"spendtrace/internal/httpx"
	"spendtrace/internal/ledger"
	applog "spendtrace/internal/log"
	"spendtrace/internal/pipeline"
	"spendtrace/internal/whatsapp"
	"spendtrace/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	directory, err := newDirectory(cfg)
	if err != nil {
		logger.Error("Invalid ledger directory", applog.FieldError, err)
		os.Exit(1)
	}
	loc := cfg.Location()

	httpClient := httpx.NewPooledClient(cfg.HTTPTimeout)
	messenger := whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID, httpClient)
	llm := groq.NewClient(cfg.GroqAPIURL, cfg.GroqAPIKey, httpClient)

	seen := dedup.New(dedup.WithTTL(cfg.DedupTTL))
	janitor := cache.NewManager(logger.WithComponent(applog.ComponentDedup))
	if cfg.DedupTTL > 0 {
		janitor.Register(seen)
		janitor.StartCleanup(cfg.DedupTTL)
	}

	pool := worker.NewPool(cfg.WorkerConcurrency, cfg.WorkerQueueDepth, logger.WithComponent(applog.ComponentWorker))

	p := pipeline.New(pipeline.Deps{
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		Messenger:   messenger,
		Transcriber: bridge.NewTranscriber(llm, cfg.GroqTranscribeModel,
			bridge.WithAttempts(cfg.TranscribeMaxAttempts),
			bridge.WithRetryDelay(cfg.TranscribeRetryDelay)),
		Classifier: bridge.NewClassifier(llm, cfg.GroqChatModel,
			bridge.WithClassifierClock(time.Now, loc),
			bridge.WithPromptCurrency(cfg.DefaultCurrency)),
		Ledger: ledger.NewEngine(store.Backend,
			ledger.WithLocation(loc),
			ledger.WithDefaultCurrency(cfg.DefaultCurrency),
			ledger.WithLogger(logger.WithComponent(applog.ComponentLedger))),
		Directory:  directory,
		Dedup:      seen,
		Dispatcher: pool,
		Logger:     logger.WithComponent(applog.ComponentPipeline),
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Webhook: p,
		Checks: map[string]apphttp.ReadinessCheck{
			"worker": func(context.Context) error {
				if pool.Closed() {
					return worker.ErrClosed
				}
				return nil
			},
		},
		Logger: logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
		}
		if err := pool.Shutdown(ctx); err != nil {
			logger.Warn("Worker pool did not drain",
				applog.FieldOperation, applog.OpShutdown,
				applog.FieldError, err,
				"admitted", pool.Admitted())
		}
		janitor.Stop()
	})

	logger.Info("Starting spendtrace server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"workers", cfg.WorkerConcurrency,
		"queue_depth", cfg.WorkerQueueDepth)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newDirectory maps senders to ledgers, falling back to the default spreadsheet.
func newDirectory(cfg *config.Config) (*ledger.Directory, error) {
	entries, err := config.ParseDirectory(cfg.LedgerDirectory)
	if err != nil {
		return nil, fmt.Errorf("parse LEDGER_DIRECTORY: %w", err)
	}
	return ledger.NewDirectory(entries, cfg.GoogleSpreadsheetID), nil
}
