package bridge

import (
	"context"
	"fmt"
	"time"

	"spendtrace/internal/core"
	"spendtrace/internal/groq"
	applog "spendtrace/internal/log"
)

// ChatCompleter is the JSON-mode chat endpoint.
type ChatCompleter interface {
	ChatJSON(ctx context.Context, model string, messages []groq.Message) (string, error)
}

const systemPrompt = `You are the bookkeeping assistant of a personal expense ledger.
Today's date is %s. Resolve relative dates ("yesterday", "last week", "this month") against it and always write dates as YYYY-MM-DD.
Classify the user's message into exactly one intent and answer with ONE JSON object, no prose, no markdown.

1. LOG_EXPENSE: the user spent money.
{"intent":"LOG_EXPENSE","data":{"item":"<what was bought>","amount":<number>,"currency":"<3-letter code, default %s>","merchant":"<shop or Unknown>","category":"<Food|Transport|Groceries|Bills|Shopping|Health|Entertainment|Other>","date":"<YYYY-MM-DD>"}}

2. QUERY_SPENDING: the user asks how much was spent.
{"intent":"QUERY_SPENDING","query":{"category":"<category or ALL>","merchant":"<merchant or ALL>","item":"<item or ALL>","start_date":"<YYYY-MM-DD or ALL>","end_date":"<YYYY-MM-DD or ALL>"}}

3. EDIT_EXPENSE: the user corrects an amount already logged.
{"intent":"EDIT_EXPENSE","edit":{"target_item":"<item to find>","target_date":"<YYYY-MM-DD or LAST_MATCH>","new_amount":<number>,"new_currency":"<3-letter code or empty to keep>"}}

4. UNDO_LAST: the user wants the last entry removed.
{"intent":"UNDO_LAST"}

5. IRRELEVANT: songs, noise, greetings or anything unrelated to expenses.
{"intent":"IRRELEVANT","message":"<short note>"}

Rules:
- Amounts are positive numbers without currency symbols or thousands separators.
- Use ALL for any query filter the user did not mention.
- Use LAST_MATCH when the user does not say which day the expense to correct was on.`

// Classifier maps a transcript to an intent with a single chat call.
type Classifier struct {
	api             ChatCompleter
	model           string
	defaultCurrency string
	now             func() time.Time
	loc             *time.Location
	logger          *applog.Logger
}

type ClassifierOption func(*Classifier)

func WithClassifierClock(now func() time.Time, loc *time.Location) ClassifierOption {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithPromptCurrency(code string) ClassifierOption {
	return func(c *Classifier) {
		if code = core.NormalizeCurrency(code); code != "" {
			c.defaultCurrency = code
		}
	}
}

func NewClassifier(api ChatCompleter, model string, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		api:             api,
		model:           model,
		defaultCurrency: "PKR",
		now:             time.Now,
		loc:             time.UTC,
		logger:          applog.Default(applog.ComponentBridge),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SystemPrompt renders the instructions sent ahead of every transcript.
func (c *Classifier) SystemPrompt() string {
	today := core.DateOf(c.now().In(c.loc))
	return fmt.Sprintf(systemPrompt, today, c.defaultCurrency)
}

func (c *Classifier) Classify(ctx context.Context, text string) (core.Intent, error) {
	content, err := c.api.ChatJSON(ctx, c.model, []groq.Message{
		{Role: groq.SystemRole, Content: c.SystemPrompt()},
		{Role: groq.UserRole, Content: text},
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	intent, err := ParseIntent(content)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	c.logger.DebugContext(ctx, "Transcript classified", applog.FieldIntent, string(intent.Kind()))
	return intent, nil
}
