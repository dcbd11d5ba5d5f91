// Package memory is an in-process row store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	ports "spendtrace/internal/sheets"
)

// Ensure interface conformance
var (
	_ ports.RowStore    = (*Store)(nil)
	_ ports.Provisioner = (*Store)(nil)
)

type table struct {
	title  string
	folder string
	owner  string
	rows   [][]string
}

// Store keeps one grid of cells per spreadsheet id. Unknown ids read as empty
// and are created on first write.
type Store struct {
	mu          sync.Mutex
	tables      map[string]*table
	relocateErr error
	transferErr error
}

// Option configures a Store.
type Option func(*Store)

// WithRelocateError makes every Relocate call fail with err.
func WithRelocateError(err error) Option {
	return func(s *Store) { s.relocateErr = err }
}

// WithTransferError makes every TransferOwnership call fail with err.
func WithTransferError(err error) Option {
	return func(s *Store) { s.transferErr = err }
}

func New(opts ...Option) *Store {
	s := &Store{tables: map[string]*table{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed replaces the rows of id.
func (s *Store) Seed(id string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(id)
	t.rows = make([][]string, len(rows))
	for i, r := range rows {
		t.rows[i] = append([]string(nil), r...)
	}
}

// Append writes row after the last non-blank row. Cleared slots at the end
// of the grid are reused, as the Sheets append endpoint does.
func (s *Store) Append(_ context.Context, id string, row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(id)
	next := len(t.rows)
	for next > 0 && blank(t.rows[next-1]) {
		next--
	}
	cells := toStrings(row)
	if next < len(t.rows) {
		t.rows[next] = cells
		return nil
	}
	t.rows = append(t.rows, cells)
	return nil
}

// ReadAll returns a copy of every slot, cleared ones included.
func (s *Store) ReadAll(_ context.Context, id string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, nil
	}
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *Store) UpdateRange(_ context.Context, id string, rng ports.Range, values [][]any) error {
	if rng.Row < 1 || rng.First < 0 || rng.Last < rng.First {
		return fmt.Errorf("invalid range %s", rng)
	}
	if len(values) != 1 || len(values[0]) != rng.Width() {
		return fmt.Errorf("range %s expects 1x%d values", rng, rng.Width())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(id)
	row := t.slot(rng.Row, rng.Last+1)
	for i, v := range toStrings(values[0]) {
		row[rng.First+i] = v
	}
	return nil
}

// ClearRange blanks the addressed cells. The row slot is kept.
func (s *Store) ClearRange(_ context.Context, id string, rng ports.Range) error {
	if rng.Row < 1 || rng.First < 0 || rng.Last < rng.First {
		return fmt.Errorf("invalid range %s", rng)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok || rng.Row > len(t.rows) {
		return nil
	}
	row := t.rows[rng.Row-1]
	for i := rng.First; i <= rng.Last && i < len(row); i++ {
		row[i] = ""
	}
	return nil
}

func (s *Store) CreateTable(_ context.Context, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "mem-" + uuid.NewString()
	s.tables[id] = &table{title: title}
	return id, nil
}

func (s *Store) Relocate(_ context.Context, id, folderID string) error {
	if s.relocateErr != nil {
		return s.relocateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return fmt.Errorf("relocate %s: %w", id, ports.ErrNotFound)
	}
	t.folder = folderID
	return nil
}

func (s *Store) TransferOwnership(_ context.Context, id, email string) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return fmt.Errorf("transfer ownership of %s: %w", id, ports.ErrNotFound)
	}
	t.owner = email
	return nil
}

// Info reports the title, folder and owner recorded for id.
func (s *Store) Info(id string) (title, folder, owner string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return "", "", "", false
	}
	return t.title, t.folder, t.owner, true
}

func (s *Store) table(id string) *table {
	t, ok := s.tables[id]
	if !ok {
		t = &table{}
		s.tables[id] = t
	}
	return t
}

// slot returns row n (1-based), growing the grid and the row to width cells.
func (t *table) slot(n, width int) []string {
	for len(t.rows) < n {
		t.rows = append(t.rows, nil)
	}
	row := t.rows[n-1]
	for len(row) < width {
		row = append(row, "")
	}
	t.rows[n-1] = row
	return row
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
