// Package sheets defines the row store ports the ledger engine depends on.
// Adapters live in the google and memory subpackages.
package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a spreadsheet id is unknown to the store.
var ErrNotFound = errors.New("spreadsheet not found")

// Range addresses a contiguous set of columns within one 1-based row.
// First and Last are 0-based column indexes (0 = A).
type Range struct {
	Row   int
	First int
	Last  int
}

// RowRange returns the range covering columns first..last of row.
func RowRange(row, first, last int) Range {
	return Range{Row: row, First: first, Last: last}
}

// Width is the number of columns the range covers.
func (r Range) Width() int {
	return r.Last - r.First + 1
}

// String renders the range in A1 notation, e.g. "C5:D5".
func (r Range) String() string {
	return fmt.Sprintf("%s%d:%s%d", ColumnName(r.First), r.Row, ColumnName(r.Last), r.Row)
}

// ColumnName converts a 0-based column index to its letter name.
func ColumnName(idx int) string {
	name := ""
	for idx >= 0 {
		name = string(rune('A'+idx%26)) + name
		idx = idx/26 - 1
	}
	return name
}

// Ports for outbound adapters.
type (
	// RowStore is an addressable grid of string cells per spreadsheet id.
	RowStore interface {
		// Append writes a row after the last non-empty row, with USER_ENTERED semantics.
		Append(ctx context.Context, spreadsheetID string, row []any) error
		// ReadAll returns every row in sheet order; index 0 is row 1.
		ReadAll(ctx context.Context, spreadsheetID string) ([][]string, error)
		// UpdateRange overwrites the cells addressed by rng.
		UpdateRange(ctx context.Context, spreadsheetID string, rng Range, values [][]any) error
		// ClearRange blanks the cells addressed by rng. The row slot stays.
		ClearRange(ctx context.Context, spreadsheetID string, rng Range) error
	}

	// Provisioner creates spreadsheets and manages their placement and ownership.
	Provisioner interface {
		CreateTable(ctx context.Context, title string) (spreadsheetID string, err error)
		Relocate(ctx context.Context, spreadsheetID, folderID string) error
		TransferOwnership(ctx context.Context, spreadsheetID, email string) error
	}
)
