package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendtrace/internal/core"
	"spendtrace/internal/groq"
)

type scriptedSTT struct {
	results []error
	text    string
	calls   int
}

func (s *scriptedSTT) Transcribe(context.Context, string, []byte) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return s.text, nil
}

func noSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
}

func TestTranscribeRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("503")
	stt := &scriptedSTT{results: []error{boom, boom}, text: " lunch 500 "}
	var sleeps []time.Duration
	tr := NewTranscriber(stt, "whisper", WithSleep(noSleep(&sleeps)))

	text, err := tr.Transcribe(context.Background(), []byte("ogg"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "lunch 500" || stt.calls != 3 {
		t.Fatalf("text=%q calls=%d", text, stt.calls)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != time.Second {
		t.Fatalf("expected two fixed 1s pauses, got %v", sleeps)
	}
}

func TestTranscribeExhaustsAttempts(t *testing.T) {
	boom := errors.New("503")
	stt := &scriptedSTT{results: []error{boom, boom, boom, nil}, text: "never"}
	var sleeps []time.Duration
	tr := NewTranscriber(stt, "whisper", WithSleep(noSleep(&sleeps)))

	_, err := tr.Transcribe(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error should carry attempt count: %v", err)
	}
	if stt.calls != 3 || len(sleeps) != 2 {
		t.Fatalf("calls=%d sleeps=%d", stt.calls, len(sleeps))
	}
}

func TestTranscribeCancelledDuringPause(t *testing.T) {
	stt := &scriptedSTT{results: []error{errors.New("503"), errors.New("503"), errors.New("503")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sleeps []time.Duration
	tr := NewTranscriber(stt, "whisper", WithSleep(noSleep(&sleeps)))

	_, err := tr.Transcribe(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stt.calls != 1 {
		t.Fatalf("no further attempts after cancellation, got %d", stt.calls)
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	tr := NewTranscriber(&scriptedSTT{text: "   "}, "whisper")
	if _, err := tr.Transcribe(context.Background(), nil); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type fakeChat struct {
	content  string
	err      error
	messages []groq.Message
}

func (f *fakeChat) ChatJSON(_ context.Context, _ string, messages []groq.Message) (string, error) {
	f.messages = messages
	return f.content, f.err
}

func TestClassifierSendsPromptWithToday(t *testing.T) {
	chat := &fakeChat{content: `{"intent":"UNDO_LAST"}`}
	clock := func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }
	c := NewClassifier(chat, "llama", WithClassifierClock(clock, time.UTC), WithPromptCurrency("usd"))

	intent, err := c.Classify(context.Background(), "undo that")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if _, ok := intent.(core.UndoLast); !ok {
		t.Fatalf("intent = %#v", intent)
	}
	if len(chat.messages) != 2 || chat.messages[1].Content != "undo that" {
		t.Fatalf("unexpected messages: %+v", chat.messages)
	}
	sys := chat.messages[0].Content
	if !strings.Contains(sys, "Today's date is 2026-10-14") || !strings.Contains(sys, "default USD") {
		t.Errorf("system prompt missing date or currency:\n%s", sys)
	}
}

func TestClassifierErrors(t *testing.T) {
	c := NewClassifier(&fakeChat{err: groq.ErrStatus}, "llama")
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, groq.ErrStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
	c = NewClassifier(&fakeChat{content: "not json"}, "llama")
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, ErrMalformedIntent) {
		t.Fatalf("expected malformed intent, got %v", err)
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    core.Intent
		wantErr bool
	}{
		{
			name: "log expense with numeric amount",
			raw:  `{"intent":"LOG_EXPENSE","data":{"item":"lunch","amount":500,"currency":"PKR","merchant":"Cafe","category":"Food","date":"2026-10-14"}}`,
			want: core.LogExpense{Item: "lunch", Amount: decimal.NewNullDecimal(decimal.NewFromInt(500)), Currency: "PKR", Merchant: "Cafe", Category: "Food", Date: "2026-10-14"},
		},
		{
			name: "log expense with string amount in fence",
			raw:  "```json\n{\"intent\":\"LOG_EXPENSE\",\"data\":{\"item\":\"tea\",\"amount\":\"1,200\"}}\n```",
			want: core.LogExpense{Item: "tea", Amount: decimal.NewNullDecimal(decimal.NewFromInt(1200))},
		},
		{
			name: "log expense with null amount",
			raw:  `{"intent":"LOG_EXPENSE","data":{"item":"tea","amount":null}}`,
			want: core.LogExpense{Item: "tea"},
		},
		{
			name:    "log expense with bad amount",
			raw:     `{"intent":"LOG_EXPENSE","data":{"amount":"lots"}}`,
			wantErr: true,
		},
		{
			name: "query defaults to wildcards",
			raw:  `{"intent":"QUERY_SPENDING","query":{"category":"Food","merchant":null,"start_date":"2026-10-01"}}`,
			want: core.QuerySpending{Category: "Food", Merchant: "ALL", Item: "ALL", StartDate: "2026-10-01", EndDate: "ALL"},
		},
		{
			name: "query without payload",
			raw:  `{"intent":"QUERY_SPENDING"}`,
			want: core.QuerySpending{Category: "ALL", Merchant: "ALL", Item: "ALL", StartDate: "ALL", EndDate: "ALL"},
		},
		{
			name: "edit defaults to last match",
			raw:  `{"intent":"EDIT_EXPENSE","edit":{"target_item":"coffee","new_amount":1200}}`,
			want: core.EditExpense{TargetItem: "coffee", TargetDate: "LAST_MATCH", NewAmount: decimal.NewFromInt(1200)},
		},
		{
			name:    "edit without target item",
			raw:     `{"intent":"EDIT_EXPENSE","edit":{"target_item":" ","new_amount":9}}`,
			wantErr: true,
		},
		{
			name:    "edit without amount",
			raw:     `{"intent":"EDIT_EXPENSE","edit":{"target_item":"coffee"}}`,
			wantErr: true,
		},
		{name: "undo", raw: `{"intent":"UNDO_LAST"}`, want: core.UndoLast{}},
		{name: "irrelevant", raw: `{"intent":"IRRELEVANT","message":"a song"}`, want: core.Irrelevant{Message: "a song"}},
		{name: "unknown tag", raw: `{"intent":"SMALL_TALK"}`, want: core.Unknown{Tag: "SMALL_TALK"}},
		{name: "not json", raw: `hello`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntent(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedIntent) {
					t.Fatalf("expected ErrMalformedIntent, got %v (%#v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !intentEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

// intentEqual compares intents, treating decimals by value.
func intentEqual(a, b core.Intent) bool {
	switch x := a.(type) {
	case core.LogExpense:
		y, ok := b.(core.LogExpense)
		if !ok || x.Amount.Valid != y.Amount.Valid || (x.Amount.Valid && !x.Amount.Decimal.Equal(y.Amount.Decimal)) {
			return false
		}
		x.Amount, y.Amount = decimal.NullDecimal{}, decimal.NullDecimal{}
		return x == y
	case core.EditExpense:
		y, ok := b.(core.EditExpense)
		if !ok || !x.NewAmount.Equal(y.NewAmount) {
			return false
		}
		x.NewAmount, y.NewAmount = decimal.Zero, decimal.Zero
		return x == y
	default:
		return a == b
	}
}
