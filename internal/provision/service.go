// Package provision creates a ledger spreadsheet for a new user. It runs once
// per user, outside the message processing path.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	applog "spendtrace/internal/log"
	ports "spendtrace/internal/sheets"
)

const titlePrefix = "SpendTrace Ledger: "

var (
	ErrMissingEmail = errors.New("owner email is required")
	ErrMissingPhone = errors.New("owner phone is required")
)

// HeaderWriter writes the column header row of a fresh ledger.
type HeaderWriter interface {
	InitHeaders(ctx context.Context, ledgerID string) error
}

// Service orchestrates spreadsheet creation, placement, ownership and headers.
type Service struct {
	store    ports.Provisioner
	headers  HeaderWriter
	folderID string
	logger   *applog.Logger
}

func NewService(store ports.Provisioner, headers HeaderWriter, folderID string, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Default(applog.ComponentProvision)
	}
	return &Service{
		store:    store,
		headers:  headers,
		folderID: strings.TrimSpace(folderID),
		logger:   logger,
	}
}

// Title is the spreadsheet name given to the ledger of phone.
func Title(phone string) string {
	return titlePrefix + strings.TrimSpace(phone)
}

// CreateLedgerForUser creates the spreadsheet and hands it to ownerEmail.
// Moving it into the shared folder is best effort: on failure the ledger
// stays in the service account's root and is still returned.
func (s *Service) CreateLedgerForUser(ctx context.Context, ownerEmail, ownerPhone string) (string, error) {
	ownerEmail, ownerPhone = strings.TrimSpace(ownerEmail), strings.TrimSpace(ownerPhone)
	if ownerEmail == "" {
		return "", ErrMissingEmail
	}
	if ownerPhone == "" {
		return "", ErrMissingPhone
	}

	id, err := s.store.CreateTable(ctx, Title(ownerPhone))
	if err != nil {
		return "", fmt.Errorf("create ledger: %w", err)
	}
	logger := s.logger.With(applog.FieldLedgerID, id, applog.FieldSender, ownerPhone)
	logger.InfoContext(ctx, "Ledger created", applog.FieldOperation, applog.OpProvision)

	if s.folderID != "" {
		if err := s.store.Relocate(ctx, id, s.folderID); err != nil {
			logger.WarnContext(ctx, "Ledger move failed, keeping default location",
				"folder_id", s.folderID,
				applog.FieldError, err)
		}
	}

	if err := s.store.TransferOwnership(ctx, id, ownerEmail); err != nil {
		return id, fmt.Errorf("transfer ledger %s: %w", id, err)
	}

	if err := s.headers.InitHeaders(ctx, id); err != nil {
		return id, fmt.Errorf("init ledger %s: %w", id, err)
	}

	logger.InfoContext(ctx, "Ledger provisioned", "owner", ownerEmail)
	return id, nil
}
