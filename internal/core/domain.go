package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column layout of every ledger sheet: A..F.
const (
	ColDate = iota
	ColItem
	ColAmount
	ColCurrency
	ColMerchant
	ColCategory

	NumColumns
)

// Header is the first row written to a freshly provisioned ledger.
var Header = []string{"Date", "Item", "Amount", "Currency", "Merchant", "Category"}

type (
	Date struct {
		time.Time
	}

	// LedgerRow is one expense record. Its position in the sheet is its only identity.
	LedgerRow struct {
		Date     Date
		Item     string
		Amount   decimal.Decimal
		Currency string
		Merchant string
		Category string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrShortRow      = errors.New("row has too few columns")
)

// dateLayouts are tried in order. Sheets renders USER_ENTERED ISO dates back
// either untouched or in the spreadsheet locale (US by default).
var dateLayouts = []string{"2006-01-02", "2006/01/02", "1/2/2006"}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a calendar date, ISO form first.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// String returns the ISO form (YYYY-MM-DD).
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Equal compares calendar dates only.
func (d Date) Equal(o Date) bool {
	return d.Year() == o.Year() && d.YearDay() == o.YearDay()
}

// Within reports whether d lies in [start, end], both inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

// NormalizeCurrency uppercases and trims a currency code.
func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Values renders the row in sheet column order.
func (r LedgerRow) Values() []any {
	return []any{r.Date.String(), r.Item, r.Amount.String(), NormalizeCurrency(r.Currency), r.Merchant, r.Category}
}

// RowFromValues parses a full six-column sheet row.
func RowFromValues(cols []string) (LedgerRow, error) {
	if len(cols) < NumColumns {
		return LedgerRow{}, ErrShortRow
	}
	d, err := ParseDate(cols[ColDate])
	if err != nil {
		return LedgerRow{}, err
	}
	amt, err := ParseAmount(cols[ColAmount])
	if err != nil {
		return LedgerRow{}, err
	}
	return LedgerRow{
		Date:     d,
		Item:     strings.TrimSpace(cols[ColItem]),
		Amount:   amt,
		Currency: NormalizeCurrency(cols[ColCurrency]),
		Merchant: strings.TrimSpace(cols[ColMerchant]),
		Category: strings.TrimSpace(cols[ColCategory]),
	}, nil
}

// IsHeader reports whether cols looks like the ledger header row.
func IsHeader(cols []string) bool {
	if len(cols) < 2 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(cols[ColDate]), Header[ColDate]) &&
		strings.EqualFold(strings.TrimSpace(cols[ColItem]), Header[ColItem])
}

// IsBlank reports whether every cell of the row is empty. Cleared rows read back this way.
func IsBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
