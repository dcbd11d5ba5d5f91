package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendtrace/internal/core"
	ports "spendtrace/internal/sheets"
	"spendtrace/internal/sheets/memory"
)

const ledgerID = "ledger-1"

var header = []string{"Date", "Item", "Amount", "Currency", "Merchant", "Category"}

func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 22, 30, 0, 0, time.UTC)
}

func newEngine(t *testing.T, rows ...[]string) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	if len(rows) > 0 {
		store.Seed(ledgerID, rows)
	}
	return NewEngine(store, WithClock(fixedClock)), store
}

func readAll(t *testing.T, s *memory.Store) [][]string {
	t.Helper()
	rows, err := s.ReadAll(context.Background(), ledgerID)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	return rows
}

func TestAppendDefaults(t *testing.T) {
	e, store := newEngine(t, header)

	row, err := e.Append(context.Background(), ledgerID, core.LogExpense{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if row.Item != "Unknown" || row.Merchant != "Unknown" || row.Category != "Uncategorized" {
		t.Errorf("unexpected text defaults: %+v", row)
	}
	if row.Currency != "PKR" || !row.Amount.IsZero() {
		t.Errorf("unexpected amount defaults: %s %s", row.Amount, row.Currency)
	}
	if row.Date.String() != "2026-10-14" {
		t.Errorf("date = %s, want today", row.Date)
	}

	rows := readAll(t, store)
	want := []string{"2026-10-14", "Unknown", "0", "PKR", "Unknown", "Uncategorized"}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %v", rows)
	}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, rows[1][i], want[i])
		}
	}
}

func TestAppendUsesLedgerTimezone(t *testing.T) {
	karachi := time.FixedZone("PKT", 5*3600)
	e := NewEngine(memory.New(), WithClock(fixedClock), WithLocation(karachi), WithDefaultCurrency("usd"))

	row, err := e.Append(context.Background(), ledgerID, core.LogExpense{Item: "tea"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	// 22:30 UTC is already the next day at UTC+5
	if row.Date.String() != "2026-10-15" {
		t.Errorf("date = %s, want 2026-10-15", row.Date)
	}
	if row.Currency != "USD" {
		t.Errorf("currency = %s, want USD", row.Currency)
	}
}

func TestAppendKeepsProvidedFields(t *testing.T) {
	e, store := newEngine(t)
	_, err := e.Append(context.Background(), ledgerID, core.LogExpense{
		Item:     "lunch",
		Amount:   decimal.NewNullDecimal(decimal.RequireFromString("500")),
		Currency: "pkr",
		Merchant: "Cafe",
		Category: "Food",
		Date:     "2026-10-01",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := readAll(t, store)
	want := []string{"2026-10-01", "lunch", "500", "PKR", "Cafe", "Food"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, rows[0][i], want[i])
		}
	}
}

func TestAnalyticsCurrencySeparation(t *testing.T) {
	e, _ := newEngine(t,
		header,
		[]string{"2026-10-01", "lunch", "500", "PKR", "Cafe", "Food"},
		[]string{"2026-10-02", "coffee", "4.50", "usd", "Starbucks", "food"},
		[]string{"2026-10-03", "dinner", "1,200", "PKR", "Grill", "Food"},
		[]string{"2026-10-03", "taxi", "300", "PKR", "Careem", "Transport"},
	)

	sum, err := e.Analytics(context.Background(), ledgerID, core.QuerySpending{Category: "FOOD"})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if sum.Count != 3 {
		t.Fatalf("count = %d, want 3", sum.Count)
	}
	if got := sum.Totals["PKR"]; !got.Equal(decimal.NewFromInt(1700)) {
		t.Errorf("PKR total = %s, want 1700", got)
	}
	if got := sum.Totals["USD"]; !got.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("USD total = %s, want 4.5", got)
	}
	if cur := sum.Currencies(); len(cur) != 2 || cur[0] != "PKR" || cur[1] != "USD" {
		t.Errorf("currencies = %v", cur)
	}
}

func TestAnalyticsFilters(t *testing.T) {
	rows := [][]string{
		header,
		{"2026-09-30", "Lunch box", "100", "PKR", "Cafe Aroma", "Food"},
		{"2026-10-01", "lunch", "200", "PKR", "Aroma", "Food"},
		{"2026-10-05", "groceries", "300", "PKR", "Imtiaz", "Food"},
		{"2026-10-31", "LUNCH", "400", "PKR", "Cafe", "Food"},
		{"bad-date", "lunch", "999", "PKR", "Cafe", "Food"},
		{"2026-10-02", "lunch", "-5", "PKR", "Cafe", "Food"},
		{"2026-10-02", "lunch", "abc", "PKR", "Cafe", "Food"},
		{"2026-10-02", "lunch", "5"},
	}
	tests := []struct {
		name      string
		query     core.QuerySpending
		wantCount int
		wantTotal int64
	}{
		{"all wildcards", core.QuerySpending{Category: "ALL", Merchant: "all", Item: "null"}, 4, 1000},
		{"empty fields are wildcards", core.QuerySpending{}, 4, 1000},
		{"item substring case-insensitive", core.QuerySpending{Item: "lunch"}, 3, 700},
		{"merchant substring", core.QuerySpending{Merchant: "aroma"}, 2, 300},
		{"inclusive date range", core.QuerySpending{StartDate: "2026-10-01", EndDate: "2026-10-31"}, 3, 900},
		{"start only", core.QuerySpending{StartDate: "2026-10-05"}, 2, 700},
		{"unparseable bound falls back", core.QuerySpending{StartDate: "last week", EndDate: "2026-10-01"}, 2, 300},
		{"category exact", core.QuerySpending{Category: "Foo"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, rows...)
			sum, err := e.Analytics(context.Background(), ledgerID, tt.query)
			if err != nil {
				t.Fatalf("analytics: %v", err)
			}
			if sum.Count != tt.wantCount {
				t.Fatalf("count = %d, want %d", sum.Count, tt.wantCount)
			}
			if tt.wantCount == 0 {
				if !sum.Empty() {
					t.Fatal("expected empty summary")
				}
				return
			}
			if got := sum.Totals["PKR"]; !got.Equal(decimal.NewFromInt(tt.wantTotal)) {
				t.Errorf("total = %s, want %d", got, tt.wantTotal)
			}
		})
	}
}

func TestAnalyticsEffectiveRange(t *testing.T) {
	e, _ := newEngine(t)
	sum, err := e.Analytics(context.Background(), ledgerID, core.QuerySpending{StartDate: "ALL", EndDate: "2026-12-31"})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if !sum.Empty() {
		t.Fatal("empty ledger should give empty summary")
	}
	if sum.Start.String() != "2000-01-01" || sum.End.String() != "2026-12-31" {
		t.Errorf("range = %s..%s", sum.Start, sum.End)
	}
}

func TestEditMostRecentMatchTieBreak(t *testing.T) {
	e, store := newEngine(t,
		header,
		[]string{"2026-10-01", "coffee", "300", "PKR", "Gloria", "Food"},
		[]string{"2026-10-02", "Coffee beans", "1500", "PKR", "Market", "Groceries"},
		[]string{"2026-10-03", "taxi", "400", "PKR", "Careem", "Transport"},
	)

	res, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{
		TargetItem: "COFFEE",
		TargetDate: "LAST_MATCH",
		NewAmount:  decimal.NewFromInt(1200),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !res.Found || res.Row != 3 {
		t.Fatalf("expected row 3 edited, got %+v", res)
	}
	if res.Currency != "PKR" {
		t.Errorf("currency should be kept, got %q", res.Currency)
	}

	rows := readAll(t, store)
	want := []string{"2026-10-02", "Coffee beans", "1200", "PKR", "Market", "Groceries"}
	for i := range want {
		if rows[2][i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, rows[2][i], want[i])
		}
	}
	if rows[1][2] != "300" {
		t.Errorf("older match must be untouched, got %v", rows[1])
	}
}

func TestEditWithDateConstraint(t *testing.T) {
	rows := [][]string{
		header,
		{"2026-10-01", "coffee", "300", "PKR", "Gloria", "Food"},
		{"2026-10-02", "coffee", "350", "PKR", "Gloria", "Food"},
	}

	t.Run("exact date", func(t *testing.T) {
		e, store := newEngine(t, rows...)
		res, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{
			TargetItem:  "coffee",
			TargetDate:  "2026-10-01",
			NewAmount:   decimal.NewFromInt(10),
			NewCurrency: "usd",
		})
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if !res.Found || res.Row != 2 || res.Currency != "USD" {
			t.Fatalf("unexpected result: %+v", res)
		}
		got := readAll(t, store)
		if got[1][2] != "10" || got[1][3] != "USD" || got[2][2] != "350" {
			t.Fatalf("unexpected grid: %v", got)
		}
	})

	t.Run("no row on date", func(t *testing.T) {
		e, _ := newEngine(t, rows...)
		res, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{
			TargetItem: "coffee",
			TargetDate: "2026-09-01",
			NewAmount:  decimal.NewFromInt(10),
		})
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if res.Found || !res.DateConstrained || res.TargetDate != "2026-09-01" || res.Target != "coffee" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("unparseable date", func(t *testing.T) {
		e, _ := newEngine(t, rows...)
		_, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{
			TargetItem: "coffee",
			TargetDate: "yesterday-ish",
		})
		if !errors.Is(err, core.ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})
}

func TestEditSkipsShortRowsAndHeader(t *testing.T) {
	e, _ := newEngine(t,
		[]string{"Date", "Item", "Amount", "Currency"},
		[]string{"2026-10-01", "item", "1"},
	)
	res, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{TargetItem: "item"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.Found || res.DateConstrained {
		t.Fatalf("expected not found without date constraint, got %+v", res)
	}
}

func TestEditAfterUndoLeavesClearedSlot(t *testing.T) {
	e, store := newEngine(t, header,
		[]string{"2026-10-01", "lunch", "500", "PKR", "m", "Food"},
		[]string{"2026-10-02", "lunch", "700", "PKR", "m", "Food"},
	)
	ctx := context.Background()
	if _, err := e.UndoLast(ctx, ledgerID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	res, err := e.EditMostRecentMatching(ctx, ledgerID, core.EditExpense{
		TargetItem: "lunch",
		TargetDate: core.LastMatch,
		NewAmount:  decimal.NewFromInt(9),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !res.Found || res.Row != 2 {
		t.Fatalf("expected row 2 edited, got %+v", res)
	}
	rows := readAll(t, store)
	if !core.IsBlank(rows[2]) {
		t.Fatalf("cleared slot was written: %v", rows[2])
	}
	if rows[1][2] != "9" {
		t.Fatalf("row 2 amount = %q, want 9", rows[1][2])
	}
}

func TestEditRejectsEmptyTarget(t *testing.T) {
	e, store := newEngine(t, header, []string{"2026-10-01", "lunch", "500", "PKR", "m", "Food"})
	ctx := context.Background()
	if _, err := e.UndoLast(ctx, ledgerID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	_, err := e.EditMostRecentMatching(ctx, ledgerID, core.EditExpense{
		TargetItem: "  ",
		TargetDate: core.LastMatch,
		NewAmount:  decimal.NewFromInt(9),
	})
	if !errors.Is(err, ErrEmptyTarget) {
		t.Fatalf("expected ErrEmptyTarget, got %v", err)
	}
	if rows := readAll(t, store); !core.IsBlank(rows[1]) {
		t.Fatalf("cleared slot was written: %v", rows[1])
	}
}

func TestEditEchoesRawDateCell(t *testing.T) {
	e, _ := newEngine(t, header, []string{"13/10/2026", "coffee", "300", "PKR", "Gloria", "Food"})
	res, err := e.EditMostRecentMatching(context.Background(), ledgerID, core.EditExpense{
		TargetItem: "coffee",
		TargetDate: core.LastMatch,
		NewAmount:  decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !res.Found || res.PreviousDate != "13/10/2026" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUndoLast(t *testing.T) {
	e, store := newEngine(t,
		header,
		[]string{"2026-10-01", "a", "1", "PKR", "m", "c"},
		[]string{"2026-10-02", "b", "2", "PKR", "m", "c"},
	)
	ctx := context.Background()

	res, err := e.UndoLast(ctx, ledgerID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Empty || res.Row != 3 {
		t.Fatalf("expected row 3 cleared, got %+v", res)
	}
	rows := readAll(t, store)
	if len(rows) != 3 || !core.IsBlank(rows[2]) {
		t.Fatalf("row 3 should be a blank slot: %v", rows)
	}

	// Second undo skips the cleared slot
	res, err = e.UndoLast(ctx, ledgerID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Row != 2 {
		t.Fatalf("expected row 2 cleared, got %+v", res)
	}

	// Only the header remains
	res, err = e.UndoLast(ctx, ledgerID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !res.Empty {
		t.Fatalf("expected nothing to undo, got %+v", res)
	}
	if rows := readAll(t, store); rows[0][0] != "Date" {
		t.Fatalf("header must survive undo: %v", rows[0])
	}
}

// A cleared row still occupies its slot, so "last row by count" keeps pointing
// at the blank row. UndoLast walks past cleared slots instead of re-clearing it.
func TestUndoSkipsClearedTrailingRows(t *testing.T) {
	e, store := newEngine(t,
		header,
		[]string{"2026-10-01", "a", "1", "PKR", "m", "c"},
		[]string{"", "", "", "", "", ""},
		[]string{"", "", "", "", "", ""},
	)

	rows := readAll(t, store)
	if byCount := len(rows); !core.IsBlank(rows[byCount-1]) {
		t.Fatalf("row %d should be a cleared slot", byCount)
	}

	res, err := e.UndoLast(context.Background(), ledgerID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Row != 2 {
		t.Fatalf("expected the last real entry (row 2) cleared, got %+v", res)
	}
	if rows := readAll(t, store); len(rows) != 4 || !core.IsBlank(rows[1]) {
		t.Fatalf("unexpected grid: %v", rows)
	}
}

func TestUndoThenAppendReusesSlot(t *testing.T) {
	e, store := newEngine(t, header, []string{"2026-10-01", "a", "1", "PKR", "m", "c"})
	ctx := context.Background()
	if _, err := e.UndoLast(ctx, ledgerID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if _, err := e.Append(ctx, ledgerID, core.LogExpense{Item: "b"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := readAll(t, store)
	if len(rows) != 2 || rows[1][1] != "b" {
		t.Fatalf("unexpected grid: %v", rows)
	}
}

func TestInitHeaders(t *testing.T) {
	e, store := newEngine(t)
	if err := e.InitHeaders(context.Background(), ledgerID); err != nil {
		t.Fatalf("init headers: %v", err)
	}
	rows := readAll(t, store)
	if len(rows) != 1 || !core.IsHeader(rows[0]) || rows[0][5] != "Category" {
		t.Fatalf("unexpected header row: %v", rows)
	}
}

type failingStore struct {
	ports.RowStore
	err error
}

func (f failingStore) ReadAll(context.Context, string) ([][]string, error) { return nil, f.err }
func (f failingStore) Append(context.Context, string, []any) error { return f.err }

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(failingStore{err: boom})
	ctx := context.Background()

	if _, err := e.Append(ctx, ledgerID, core.LogExpense{}); !errors.Is(err, boom) {
		t.Errorf("Append error = %v", err)
	}
	if _, err := e.Analytics(ctx, ledgerID, core.QuerySpending{}); !errors.Is(err, boom) {
		t.Errorf("Analytics error = %v", err)
	}
	if _, err := e.EditMostRecentMatching(ctx, ledgerID, core.EditExpense{TargetItem: "x"}); !errors.Is(err, boom) {
		t.Errorf("Edit error = %v", err)
	}
	if _, err := e.UndoLast(ctx, ledgerID); !errors.Is(err, boom) {
		t.Errorf("Undo error = %v", err)
	}
}
