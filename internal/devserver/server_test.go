package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"frugal/internal/core"
	"frugal/internal/fetcher"
	applog "frugal/internal/log"
	"frugal/internal/storage"
	"frugal/internal/storage/memory"
)

func newTestServer(t *testing.T, ledger storage.Ledger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(ledger, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestEndpointsThroughFetcher(t *testing.T) {
	store := memory.NewDefault()
	srv := newTestServer(t, store)
	client := fetcher.New(srv.URL, fetcher.WithTimeout(2*time.Second))
	ctx := context.Background()

	txs, err := client.Transactions(ctx)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(txs))
	}

	reply, err := client.Chat(ctx, "spent 20 on lunch")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.HasPrefix(reply, "Recorded transaction #1") {
		t.Errorf("unexpected reply %q", reply)
	}
	if _, err := client.Chat(ctx, "split 30 for taxi with Ana"); err != nil {
		t.Fatal(err)
	}

	txs, err = client.Transactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || txs[0].ID != 2 || txs[1].ID != 1 {
		t.Fatalf("expected newest first, got %+v", txs)
	}
	if txs[0].SplitDetails == nil || *txs[0].SplitDetails != "Me, Ana" {
		t.Errorf("split details = %v", txs[0].SplitDetails)
	}
	if txs[1].SplitDetails != nil {
		t.Errorf("plain expense should have null split details")
	}

	totals, err := client.Insights(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 || totals[0].Category != "Dining" || !totals[0].Total.Equal(decimal.NewFromInt(20)) {
		t.Errorf("unexpected insights %+v", totals)
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"total_spent":  "50",
		"budget":       "1550",
		"remaining":    "1500",
		"active_debts": "15",
	}
	got := map[string]string{
		"total_spent":  stats.TotalSpent.String(),
		"budget":       stats.Budget.String(),
		"remaining":    stats.Remaining.String(),
		"active_debts": stats.ActiveDebts.String(),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %s, want %s", k, got[k], v)
		}
	}
}

func TestLegacyChatContract(t *testing.T) {
	srv := newTestServer(t, memory.NewDefault())
	client := fetcher.New(srv.URL, fetcher.WithLegacyChat("1234"))

	reply, err := client.Chat(context.Background(), "how much did I spend?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(reply, "$1,550.00 budget") {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, memory.NewDefault())

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body messageDTO
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body.Message != "FrugalAgent API is running" {
		t.Errorf("GET / = %d %+v", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}

func TestChatRejectsBadBodies(t *testing.T) {
	srv := newTestServer(t, memory.NewDefault())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"not json", `hello`, http.StatusUnprocessableEntity},
		{"missing message", `{"user_id":"1234"}`, http.StatusUnprocessableEntity},
		{"null message", `{"message":null}`, http.StatusUnprocessableEntity},
		{"blank message", `{"message":"   "}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body errorDTO
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Detail == "" {
				t.Errorf("expected detail, got %+v (%v)", body, err)
			}
		})
	}
}

// brokenLedger fails every read so handlers take their error path.
type brokenLedger struct{ *memory.Store }

func (brokenLedger) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, errors.New("disk on fire")
}

func TestLedgerFailureSurfacesAsServerError(t *testing.T) {
	srv := newTestServer(t, brokenLedger{memory.NewDefault()})
	client := fetcher.New(srv.URL)

	_, err := client.Stats(context.Background())
	var netErr *fetcher.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 NetworkError, got %v", err)
	}
}

func TestLedgerFailureLogsErrorType(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json"})
	srv := httptest.NewServer(NewRouter(brokenLedger{memory.NewDefault()}, logger))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/transactions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	out := buf.String()
	for _, want := range []string{`"msg":"Request failed"`, `"error_type":"database_error"`, `"operation":"list transactions"`, `"request_id":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

func TestChatRateLimit(t *testing.T) {
	limiter := newClientLimiter(2)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	h := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client limited: %d", rec.Code)
	}
}

func TestChatRateLimitIgnoresForwardedFor(t *testing.T) {
	limiter := newClientLimiter(1)
	h := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"1.1.1.1", "2.2.2.2, 10.0.0.1"} {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For escaped the limit: %v", codes)
	}
}

func TestRequestIDInAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json"})
	srv := httptest.NewServer(NewRouter(memory.NewDefault(), logger))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, `"msg":"HTTP request completed"`) || !strings.Contains(out, `"request_id":"`) {
		t.Errorf("access log missing request id: %s", out)
	}
}

func TestServerShutdownClosesOnce(t *testing.T) {
	s := NewServer("127.0.0.1:0", memory.NewDefault(), nil)
	ctx := context.Background()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}
