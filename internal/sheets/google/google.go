package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ports "spendtrace/internal/sheets"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Sheet1"
	defaultTimeout   = 30 * time.Second
	ledgerColumns    = "A:F"
)

type Client struct {
	svc       *gsheet.Service
	drive     *gdrive.Service
	sheetName string
	timeout   time.Duration
}

// Ensure interface conformance
var (
	_ ports.RowStore    = (*Client)(nil)
	_ ports.Provisioner = (*Client)(nil)
)

// Config selects the sheet (tab) every ledger uses and the per-call timeout.
type Config struct {
	SheetName string
	Timeout   time.Duration
}

// New builds Sheets and Drive services from the given client options.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SheetName) == "" {
		cfg.SheetName = defaultSheetName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	drv, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{svc: svc, drive: drv, sheetName: cfg.SheetName, timeout: cfg.Timeout}, nil
}

// NewFromEnv creates a client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewFromEnv(ctx context.Context, cfg Config) (*Client, error) {
	credentialsJSON, err := loadCredentials(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets and Drive services with Service Account",
		"credentials_size", len(credentialsJSON),
		"sheet", cfg.SheetName)
	return New(ctx, cfg,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope, gdrive.DriveScope))
}

func loadCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Append(ctx context.Context, id string, row []any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rng := c.a1(ledgerColumns)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(id, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("OVERWRITE").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	return nil
}

// ReadAll reads columns A:F. Numbers come back unformatted and dates as
// display strings so amounts never carry locale grouping.
func (c *Client) ReadAll(ctx context.Context, id string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rng := c.a1(ledgerColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(id, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

func (c *Client) UpdateRange(ctx context.Context, id string, r ports.Range, values [][]any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rng := c.a1(r.String())
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(id, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ClearRange(ctx context.Context, id string, r ports.Range) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rng := c.a1(r.String())
	_, err := c.svc.Spreadsheets.Values.Clear(id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// CreateTable creates a spreadsheet whose first tab carries the configured sheet name.
func (c *Client) CreateTable(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ss := &gsheet.Spreadsheet{
		Properties: &gsheet.SpreadsheetProperties{Title: title},
		Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{Title: c.sheetName}},
		},
	}
	created, err := c.svc.Spreadsheets.Create(ss).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", title, err)
	}
	return created.SpreadsheetId, nil
}

// Relocate moves the file into folderID, detaching it from its current parents.
func (c *Client) Relocate(ctx context.Context, id, folderID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	f, err := c.drive.Files.Get(id).Fields("parents").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get parents of %s: %w", id, err)
	}
	call := c.drive.Files.Update(id, &gdrive.File{}).
		AddParents(folderID).
		SupportsAllDrives(true).
		Fields("id, parents")
	if len(f.Parents) > 0 {
		call = call.RemoveParents(strings.Join(f.Parents, ","))
	}
	if _, err := call.Context(ctx).Do(); err != nil {
		return fmt.Errorf("move %s to folder %s: %w", id, folderID, err)
	}
	return nil
}

func (c *Client) TransferOwnership(ctx context.Context, id, email string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	perm := &gdrive.Permission{Type: "user", Role: "owner", EmailAddress: email}
	_, err := c.drive.Permissions.Create(id, perm).
		TransferOwnership(true).
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("transfer ownership of %s to %s: %w", id, email, err)
	}
	return nil
}

func (c *Client) a1(cells string) string {
	return quoteSheet(c.sheetName) + "!" + cells
}
