package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary is the result of an analytics scan.
type Summary struct {
	Count  int
	Totals map[string]decimal.Decimal // keyed by uppercased currency code
	Start  Date
	End    Date
}

// Empty reports whether no row matched.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// Currencies returns the currency codes present in Totals, sorted.
func (s Summary) Currencies() []string {
	out := make([]string, 0, len(s.Totals))
	for c := range s.Totals {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// EditResult describes the outcome of a most-recent-match edit.
type EditResult struct {
	Found           bool
	Row             int // 1-based sheet row of the edited entry
	Target          string
	TargetDate      string
	DateConstrained bool
	Previous        LedgerRow
	PreviousDate    string // date cell as written in the sheet
	Amount          decimal.Decimal
	Currency        string
}

// UndoResult describes the outcome of an undo.
type UndoResult struct {
	Empty bool
	Row   int // 1-based sheet row that was cleared
}
