package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "/"},
		{raw: "/", want: "/"},
		{raw: "/health", want: "/health"},
		{raw: "/api", want: "/api"},
		{raw: "/api/balance", want: "/api/balance"},
		{raw: "/api/quiz/attempts", want: "/api/quiz/attempts"},
		{raw: "/api/features", want: "/api/features"},
		{raw: "/api/features/font.dyslexic/purchase", want: "/api/features/:id/purchase"},
		{raw: "/api/bundles/bundle.fonts/purchase", want: "/api/bundles/:id/purchase"},
		{raw: "/api/admin/flags", want: "/api/admin/flags"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := canonicalPath(tt.raw); got != tt.want {
				t.Errorf("canonicalPath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInstrumentHandlerRecordsStatus(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/balance", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected wrapped handler status to pass through, got %d", rec.Code)
	}
}

func TestHandlerExposesLedgerCounters(t *testing.T) {
	RecordTransaction("EARN", "quiz_reward", 1000)
	RecordTransaction("SPEND", "comment", -100)
	RecordSerializationRetry()
	RecordAccountFlag("balance_mismatch")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}

	body := rec.Body.String()
	for _, metric := range []string{
		"readquest_ledger_transactions_total",
		"readquest_ledger_xp_total",
		"readquest_ledger_serialization_retries_total",
		"readquest_monitor_account_flags_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
