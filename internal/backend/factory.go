package backend

import (
	"context"
	"fmt"

	"spendtrace/internal/core"
	applog "spendtrace/internal/log"
	ports "spendtrace/internal/sheets"
	gsheet "spendtrace/internal/sheets/google"
	"spendtrace/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx, gsheet.Config{SheetName: config.GoogleSheetName, Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &BackendResult{Backend: cli}, nil
}

// createMemoryBackend builds an in-process store. Data is lost on restart.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New()
	rng := ports.RowRange(1, core.ColDate, core.NumColumns-1)
	header := make([]any, len(core.Header))
	for i, h := range core.Header {
		header[i] = h
	}
	for _, id := range config.SeedLedgers {
		if err := store.UpdateRange(ctx, id, rng, [][]any{header}); err != nil {
			return nil, fmt.Errorf("seed memory ledger %s: %w", id, err)
		}
	}

	f.logger.WarnContext(ctx, "Initialized memory backend, ledgers are not persisted",
		"ledgers", len(config.SeedLedgers))
	return &BackendResult{Backend: store}, nil
}
