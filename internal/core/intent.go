package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// IntentKind is the discriminator emitted by the classifier in its "intent" field.
type IntentKind string

const (
	KindLogExpense    IntentKind = "LOG_EXPENSE"
	KindQuerySpending IntentKind = "QUERY_SPENDING"
	KindEditExpense   IntentKind = "EDIT_EXPENSE"
	KindUndoLast      IntentKind = "UNDO_LAST"
	KindIrrelevant    IntentKind = "IRRELEVANT"
	KindUnknown       IntentKind = "UNKNOWN"
)

const (
	// Wildcard disables a query filter.
	Wildcard = "ALL"
	// LastMatch asks an edit to ignore dates and take the most recent matching row.
	LastMatch = "LAST_MATCH"
)

// Intent is the classified action for one inbound message.
type Intent interface {
	Kind() IntentKind
}

type (
	// LogExpense appends a row. Empty fields are defaulted by the ledger engine.
	LogExpense struct {
		Item     string
		Amount   decimal.NullDecimal
		Currency string
		Merchant string
		Category string
		Date     string
	}

	QuerySpending struct {
		Category  string
		Merchant  string
		Item      string
		StartDate string
		EndDate   string
	}

	EditExpense struct {
		TargetItem  string
		TargetDate  string // ISO date or LastMatch
		NewAmount   decimal.Decimal
		NewCurrency string
	}

	UndoLast struct{}

	Irrelevant struct {
		Message string
	}

	// Unknown carries an intent tag the router does not handle.
	Unknown struct {
		Tag string
	}
)

func (LogExpense) Kind() IntentKind    { return KindLogExpense }
func (QuerySpending) Kind() IntentKind { return KindQuerySpending }
func (EditExpense) Kind() IntentKind   { return KindEditExpense }
func (UndoLast) Kind() IntentKind      { return KindUndoLast }
func (Irrelevant) Kind() IntentKind    { return KindIrrelevant }
func (Unknown) Kind() IntentKind       { return KindUnknown }

// IsWildcard reports whether a filter value means "no constraint": ALL, empty, or null.
func IsWildcard(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, Wildcard) || strings.EqualFold(s, "null")
}

// MatchesAnyDate reports whether an edit target date asks for the most recent match.
func (e EditExpense) MatchesAnyDate() bool {
	d := strings.TrimSpace(e.TargetDate)
	return d == "" || strings.EqualFold(d, LastMatch) || strings.EqualFold(d, "null")
}
