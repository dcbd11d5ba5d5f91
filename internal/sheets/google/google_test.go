package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	ports "spendtrace/internal/sheets"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeGoogle answers Sheets v4 and Drive v3 calls with canned JSON.
type fakeGoogle struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(r *http.Request) (int, any)
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	f.mu.Unlock()

	status, payload := http.StatusOK, any(map[string]any{})
	if f.respond != nil {
		status, payload = f.respond(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeGoogle) last(t *testing.T) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, fake *fakeGoogle) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{SheetName: "Sheet1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClientAppend(t *testing.T) {
	fake := &fakeGoogle{}
	c := newTestClient(t, fake)

	err := c.Append(context.Background(), "sheet-1", []any{"2026-10-14", "lunch", "500", "PKR", "Cafe", "Food"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	call := fake.last(t)
	if call.Method != http.MethodPost || !strings.HasSuffix(call.Path, ":append") || !strings.Contains(call.Path, "/spreadsheets/sheet-1/values/") {
		t.Fatalf("unexpected call: %+v", call)
	}
	if !strings.Contains(call.Query, "valueInputOption=USER_ENTERED") {
		t.Errorf("missing USER_ENTERED: %s", call.Query)
	}
	if !strings.Contains(call.Body, `"lunch"`) {
		t.Errorf("body missing row values: %s", call.Body)
	}
}

func TestClientReadAll(t *testing.T) {
	fake := &fakeGoogle{respond: func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{
			"range":          "Sheet1!A1:F3",
			"majorDimension": "ROWS",
			"values": [][]any{
				{"Date", "Item", "Amount", "Currency", "Merchant", "Category"},
				{"10/14/2026", "lunch", 500, "PKR", "Cafe", "Food"},
				{},
				{"10/15/2026", "tea", 12.5, "pkr"},
			},
		}
	}}
	c := newTestClient(t, fake)

	rows, err := c.ReadAll(context.Background(), "sheet-1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[1][2] != "500" || rows[3][2] != "12.5" {
		t.Errorf("numbers rendered wrong: %q %q", rows[1][2], rows[3][2])
	}
	if len(rows[2]) != 0 {
		t.Errorf("blank row should stay empty: %v", rows[2])
	}
	call := fake.last(t)
	if call.Method != http.MethodGet || !strings.Contains(call.Query, "valueRenderOption=UNFORMATTED_VALUE") {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestClientUpdateAndClear(t *testing.T) {
	fake := &fakeGoogle{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.UpdateRange(ctx, "sheet-1", ports.RowRange(5, 2, 3), [][]any{{"1200", "PKR"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	call := fake.last(t)
	if call.Method != http.MethodPut || !strings.Contains(call.Path, "C5:D5") {
		t.Fatalf("unexpected update call: %+v", call)
	}

	if err := c.ClearRange(ctx, "sheet-1", ports.RowRange(7, 0, 5)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	call = fake.last(t)
	if call.Method != http.MethodPost || !strings.HasSuffix(call.Path, ":clear") || !strings.Contains(call.Path, "A7:F7") {
		t.Fatalf("unexpected clear call: %+v", call)
	}
}

func TestClientErrorStatus(t *testing.T) {
	fake := &fakeGoogle{respond: func(r *http.Request) (int, any) {
		return http.StatusForbidden, map[string]any{"error": map[string]any{"code": 403, "message": "denied"}}
	}}
	c := newTestClient(t, fake)
	if _, err := c.ReadAll(context.Background(), "sheet-1"); err == nil || !strings.Contains(err.Error(), "read ") {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestClientProvisioning(t *testing.T) {
	fake := &fakeGoogle{respond: func(r *http.Request) (int, any) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v4/spreadsheets"):
			return http.StatusOK, map[string]any{"spreadsheetId": "new-sheet"}
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files/new-sheet"):
			return http.StatusOK, map[string]any{"parents": []string{"root-folder"}}
		default:
			return http.StatusOK, map[string]any{"id": "new-sheet"}
		}
	}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	id, err := c.CreateTable(ctx, "SpendTrace Ledger: +1555")
	if err != nil || id != "new-sheet" {
		t.Fatalf("create: id=%q err=%v", id, err)
	}
	if body := fake.last(t).Body; !strings.Contains(body, "SpendTrace Ledger: +1555") || !strings.Contains(body, "Sheet1") {
		t.Errorf("create body missing title or tab: %s", body)
	}

	if err := c.Relocate(ctx, id, "folder-9"); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	move := fake.last(t)
	if move.Method != http.MethodPatch || !strings.Contains(move.Query, "addParents=folder-9") || !strings.Contains(move.Query, "removeParents=root-folder") {
		t.Errorf("unexpected move call: %+v", move)
	}

	if err := c.TransferOwnership(ctx, id, "owner@example.com"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	perm := fake.last(t)
	if perm.Method != http.MethodPost || !strings.HasSuffix(perm.Path, "/files/new-sheet/permissions") || !strings.Contains(perm.Query, "transferOwnership=true") {
		t.Errorf("unexpected permission call: %+v", perm)
	}
	if !strings.Contains(perm.Body, `"role":"owner"`) || !strings.Contains(perm.Body, "owner@example.com") {
		t.Errorf("unexpected permission body: %s", perm.Body)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]any{"  a ", 500.0, 12.25, 1e7, nil, true})
	want := []string{"a", "500", "12.25", "10000000", "", "true"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Sheet1":      "Sheet1",
		"My Expenses": "'My Expenses'",
		"Bob's":       "'Bob''s'",
		"2026_ledger": "2026_ledger",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
