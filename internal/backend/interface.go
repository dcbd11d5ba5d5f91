// Package backend selects and builds the row store behind the ledger engine.
package backend

import (
	"context"
	"time"

	"spendtrace/internal/sheets"
)

// Backend is a row store that can also provision new ledgers.
type Backend interface {
	sheets.RowStore
	sheets.Provisioner
}

// BackendResult contains the backend instance
type BackendResult struct {
	Backend Backend
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSheetName string
	Timeout         time.Duration

	// Memory specific: ledgers to create with a header row at startup.
	SeedLedgers []string
}

// BackendType represents the type of backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
