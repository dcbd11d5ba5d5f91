package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendtrace/internal/core"
)

// ErrMalformedIntent is wrapped when the classifier output is not a usable intent object.
var ErrMalformedIntent = errors.New("malformed intent")

type intentEnvelope struct {
	Intent  string          `json:"intent"`
	Data    *expensePayload `json:"data"`
	Query   *queryPayload   `json:"query"`
	Edit    *editPayload    `json:"edit"`
	Message string          `json:"message"`
}

type expensePayload struct {
	Item     string  `json:"item"`
	Amount   flexNum `json:"amount"`
	Currency string  `json:"currency"`
	Merchant string  `json:"merchant"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

type queryPayload struct {
	Category  string `json:"category"`
	Merchant  string `json:"merchant"`
	Item      string `json:"item"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type editPayload struct {
	TargetItem  string  `json:"target_item"`
	TargetDate  string  `json:"target_date"`
	NewAmount   flexNum `json:"new_amount"`
	NewCurrency string  `json:"new_currency"`
}

// flexNum accepts a JSON number, a numeric string, or null.
type flexNum struct {
	decimal.NullDecimal
}

func (n *flexNum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		n.Valid = false
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			n.Valid = false
			return nil
		}
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("amount %s: %w", string(b), err)
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// ParseIntent decodes the classifier's JSON object into an intent. An
// unrecognised tag yields core.Unknown; undecodable JSON is an error.
func ParseIntent(raw string) (core.Intent, error) {
	var env intentEnvelope
	if err := json.Unmarshal([]byte(stripFences(raw)), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}

	switch core.IntentKind(strings.ToUpper(strings.TrimSpace(env.Intent))) {
	case core.KindLogExpense:
		if env.Data == nil {
			return nil, fmt.Errorf("%w: LOG_EXPENSE without data", ErrMalformedIntent)
		}
		return core.LogExpense{
			Item:     strings.TrimSpace(env.Data.Item),
			Amount:   env.Data.Amount.NullDecimal,
			Currency: strings.TrimSpace(env.Data.Currency),
			Merchant: strings.TrimSpace(env.Data.Merchant),
			Category: strings.TrimSpace(env.Data.Category),
			Date:     strings.TrimSpace(env.Data.Date),
		}, nil

	case core.KindQuerySpending:
		q := core.QuerySpending{
			Category:  core.Wildcard,
			Merchant:  core.Wildcard,
			Item:      core.Wildcard,
			StartDate: core.Wildcard,
			EndDate:   core.Wildcard,
		}
		if env.Query != nil {
			q.Category = wildcardOr(env.Query.Category)
			q.Merchant = wildcardOr(env.Query.Merchant)
			q.Item = wildcardOr(env.Query.Item)
			q.StartDate = wildcardOr(env.Query.StartDate)
			q.EndDate = wildcardOr(env.Query.EndDate)
		}
		return q, nil

	case core.KindEditExpense:
		if env.Edit == nil {
			return nil, fmt.Errorf("%w: EDIT_EXPENSE without edit", ErrMalformedIntent)
		}
		if strings.TrimSpace(env.Edit.TargetItem) == "" {
			return nil, fmt.Errorf("%w: EDIT_EXPENSE without target_item", ErrMalformedIntent)
		}
		if !env.Edit.NewAmount.Valid {
			return nil, fmt.Errorf("%w: EDIT_EXPENSE without new_amount", ErrMalformedIntent)
		}
		target := strings.TrimSpace(env.Edit.TargetDate)
		if target == "" {
			target = core.LastMatch
		}
		return core.EditExpense{
			TargetItem:  strings.TrimSpace(env.Edit.TargetItem),
			TargetDate:  target,
			NewAmount:   env.Edit.NewAmount.Decimal,
			NewCurrency: strings.TrimSpace(env.Edit.NewCurrency),
		}, nil

	case core.KindUndoLast:
		return core.UndoLast{}, nil

	case core.KindIrrelevant:
		return core.Irrelevant{Message: env.Message}, nil

	default:
		return core.Unknown{Tag: env.Intent}, nil
	}
}

func wildcardOr(s string) string {
	if core.IsWildcard(s) {
		return core.Wildcard
	}
	return strings.TrimSpace(s)
}

// stripFences removes a surrounding markdown code fence if the model added one.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
