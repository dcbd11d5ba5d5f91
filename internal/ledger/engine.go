// Package ledger implements query, mutation and analytics over an
// append-only row store. Every operation reads the sheet fresh; nothing is
// cached and nothing is locked, so concurrent edits of one row race.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"spendtrace/internal/core"
	applog "spendtrace/internal/log"
	ports "spendtrace/internal/sheets"
)

const (
	defaultItem     = "Unknown"
	defaultMerchant = "Unknown"
	defaultCategory = "Uncategorized"
	defaultCurrency = "PKR"
)

// ErrEmptyTarget is returned by EditMostRecentMatching when no item is named.
var ErrEmptyTarget = errors.New("edit target item is empty")

var (
	// Analytics bounds used when a query date is a wildcard or unparseable.
	rangeFloor   = core.NewDate(2000, 1, 1)
	rangeCeiling = core.NewDate(2100, 12, 31)
)

// Engine applies ledger operations to spreadsheets addressed by id.
type Engine struct {
	store    ports.RowStore
	now      func() time.Time
	loc      *time.Location
	currency string
	logger   *applog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the timezone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithDefaultCurrency sets the currency used when an expense names none.
func WithDefaultCurrency(code string) Option {
	return func(e *Engine) {
		if c := core.NormalizeCurrency(code); c != "" {
			e.currency = c
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store ports.RowStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		loc:      time.UTC,
		currency: defaultCurrency,
		logger:   applog.Default(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() core.Date {
	return core.DateOf(e.now().In(e.loc))
}

// Append fills defaults for missing fields and appends the row.
func (e *Engine) Append(ctx context.Context, ledgerID string, in core.LogExpense) (core.LedgerRow, error) {
	row := core.LedgerRow{
		Date:     e.today(),
		Item:     orDefault(in.Item, defaultItem),
		Amount:   decimal.Zero,
		Currency: core.NormalizeCurrency(in.Currency),
		Merchant: orDefault(in.Merchant, defaultMerchant),
		Category: orDefault(in.Category, defaultCategory),
	}
	if d, err := core.ParseDate(in.Date); err == nil {
		row.Date = d
	}
	if in.Amount.Valid {
		row.Amount = in.Amount.Decimal
	}
	if row.Currency == "" {
		row.Currency = e.currency
	}

	if err := e.store.Append(ctx, ledgerID, row.Values()); err != nil {
		return core.LedgerRow{}, fmt.Errorf("append to ledger %s: %w", ledgerID, err)
	}
	e.logger.InfoContext(ctx, "Expense appended",
		applog.FieldOperation, applog.OpAppend,
		applog.FieldLedgerID, ledgerID,
		applog.FieldItem, row.Item,
		applog.FieldAmount, row.Amount.String(),
		applog.FieldCurrency, row.Currency)
	return row, nil
}

// Analytics totals matching rows per currency. Wildcard filters are ignored
// and each unusable date bound falls back to the fixed floor or ceiling.
func (e *Engine) Analytics(ctx context.Context, ledgerID string, q core.QuerySpending) (core.Summary, error) {
	rows, err := e.store.ReadAll(ctx, ledgerID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("read ledger %s: %w", ledgerID, err)
	}

	start := boundOr(q.StartDate, rangeFloor)
	end := boundOr(q.EndDate, rangeCeiling)
	category := foldFilter(q.Category)
	merchant := foldFilter(q.Merchant)
	item := foldFilter(q.Item)

	sum := core.Summary{Totals: map[string]decimal.Decimal{}, Start: start, End: end}
	for _, cols := range rows {
		if core.IsHeader(cols) {
			continue
		}
		r, err := core.RowFromValues(cols)
		if err != nil {
			continue
		}
		if !r.Date.Within(start, end) {
			continue
		}
		if category != "" && fold(r.Category) != category {
			continue
		}
		if merchant != "" && !strings.Contains(fold(r.Merchant), merchant) {
			continue
		}
		if item != "" && !strings.Contains(fold(r.Item), item) {
			continue
		}
		sum.Totals[r.Currency] = sum.Totals[r.Currency].Add(r.Amount)
		sum.Count++
	}

	e.logger.DebugContext(ctx, "Analytics computed",
		applog.FieldOperation, applog.OpAnalytics,
		applog.FieldLedgerID, ledgerID,
		"count", sum.Count,
		"start", start.String(),
		"end", end.String())
	return sum, nil
}

// EditMostRecentMatching rewrites the amount and currency (columns C:D) of the
// last row whose item contains target and, unless any date is accepted, whose
// date equals the target date.
func (e *Engine) EditMostRecentMatching(ctx context.Context, ledgerID string, edit core.EditExpense) (core.EditResult, error) {
	res := core.EditResult{
		Target:          strings.TrimSpace(edit.TargetItem),
		DateConstrained: !edit.MatchesAnyDate(),
	}
	if res.Target == "" {
		return res, ErrEmptyTarget
	}
	var want core.Date
	if res.DateConstrained {
		d, err := core.ParseDate(edit.TargetDate)
		if err != nil {
			return res, fmt.Errorf("edit target date: %w", err)
		}
		want = d
		res.TargetDate = d.String()
	}

	rows, err := e.store.ReadAll(ctx, ledgerID)
	if err != nil {
		return res, fmt.Errorf("read ledger %s: %w", ledgerID, err)
	}

	target := fold(res.Target)
	for i := len(rows) - 1; i >= 0; i-- {
		cols := rows[i]
		if len(cols) <= core.ColCurrency || core.IsHeader(cols) || core.IsBlank(cols) {
			continue
		}
		if !strings.Contains(fold(cols[core.ColItem]), target) {
			continue
		}
		rowDate, dateErr := core.ParseDate(cols[core.ColDate])
		if res.DateConstrained && (dateErr != nil || !rowDate.Equal(want)) {
			continue
		}

		res.Found = true
		res.Row = i + 1
		res.Previous = partialRow(cols)
		res.PreviousDate = strings.TrimSpace(cols[core.ColDate])
		res.Amount = edit.NewAmount
		res.Currency = core.NormalizeCurrency(edit.NewCurrency)
		if res.Currency == "" {
			res.Currency = core.NormalizeCurrency(cols[core.ColCurrency])
		}

		rng := ports.RowRange(res.Row, core.ColAmount, core.ColCurrency)
		values := [][]any{{res.Amount.String(), res.Currency}}
		if err := e.store.UpdateRange(ctx, ledgerID, rng, values); err != nil {
			return res, fmt.Errorf("update ledger %s %s: %w", ledgerID, rng, err)
		}
		e.logger.InfoContext(ctx, "Expense edited",
			applog.FieldOperation, applog.OpEdit,
			applog.FieldLedgerID, ledgerID,
			applog.FieldRow, res.Row,
			applog.FieldItem, res.Previous.Item,
			applog.FieldAmount, res.Amount.String(),
			applog.FieldCurrency, res.Currency)
		return res, nil
	}
	return res, nil
}

// UndoLast clears columns A:F of the last non-blank data row. The slot itself
// stays in the sheet.
func (e *Engine) UndoLast(ctx context.Context, ledgerID string) (core.UndoResult, error) {
	rows, err := e.store.ReadAll(ctx, ledgerID)
	if err != nil {
		return core.UndoResult{}, fmt.Errorf("read ledger %s: %w", ledgerID, err)
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if core.IsBlank(rows[i]) || core.IsHeader(rows[i]) {
			continue
		}
		row := i + 1
		rng := ports.RowRange(row, core.ColDate, core.NumColumns-1)
		if err := e.store.ClearRange(ctx, ledgerID, rng); err != nil {
			return core.UndoResult{}, fmt.Errorf("clear ledger %s %s: %w", ledgerID, rng, err)
		}
		e.logger.InfoContext(ctx, "Last entry cleared",
			applog.FieldOperation, applog.OpUndo,
			applog.FieldLedgerID, ledgerID,
			applog.FieldRow, row)
		return core.UndoResult{Row: row}, nil
	}
	return core.UndoResult{Empty: true}, nil
}

// InitHeaders writes the header row to A1:F1.
func (e *Engine) InitHeaders(ctx context.Context, ledgerID string) error {
	header := make([]any, len(core.Header))
	for i, h := range core.Header {
		header[i] = h
	}
	rng := ports.RowRange(1, core.ColDate, core.NumColumns-1)
	if err := e.store.UpdateRange(ctx, ledgerID, rng, [][]any{header}); err != nil {
		return fmt.Errorf("write headers to %s: %w", ledgerID, err)
	}
	return nil
}

// partialRow parses what it can from a row with at least four columns.
func partialRow(cols []string) core.LedgerRow {
	r := core.LedgerRow{
		Item:     strings.TrimSpace(cols[core.ColItem]),
		Currency: core.NormalizeCurrency(cols[core.ColCurrency]),
	}
	if d, err := core.ParseDate(cols[core.ColDate]); err == nil {
		r.Date = d
	}
	if a, err := core.ParseAmount(cols[core.ColAmount]); err == nil {
		r.Amount = a
	}
	if len(cols) > core.ColMerchant {
		r.Merchant = strings.TrimSpace(cols[core.ColMerchant])
	}
	if len(cols) > core.ColCategory {
		r.Category = strings.TrimSpace(cols[core.ColCategory])
	}
	return r
}

func boundOr(s string, fallback core.Date) core.Date {
	if core.IsWildcard(s) {
		return fallback
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return fallback
	}
	return d
}

// foldFilter returns the folded filter value, or "" for a wildcard.
func foldFilter(s string) string {
	if core.IsWildcard(s) {
		return ""
	}
	return fold(s)
}

// fold case-folds s. A Caser is not safe for concurrent use, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
