package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m := InitMetrics()

	// Counters with label dimensions only appear after first use.
	m.RecordTransition("sent")
	m.RecordTokenIssued("signer")
	m.RecordNotification("signature_request", "ok")
	m.RecordRateLimited("mutate")
	m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	m.HTTPRequestDuration.WithLabelValues("GET", "/healthz").Observe(0.01)

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"esign_http_requests_total",
		"esign_http_request_duration_seconds",
		"esign_lifecycle_transitions_total",
		"esign_tokens_issued_total",
		"esign_contracts_signed_total",
		"esign_notifications_total",
		"esign_rate_limited_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestRecordTransition_signedBumpsSignedTotal(t *testing.T) {
	m := InitMetrics()

	m.RecordTransition("viewed")
	if got := testutil.ToFloat64(m.SignedTotal); got != 0 {
		t.Fatalf("signed total = %v, want 0", got)
	}

	m.RecordTransition("signed")
	m.RecordTransition("signed")
	if got := testutil.ToFloat64(m.SignedTotal); got != 2 {
		t.Errorf("signed total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("signed")); got != 2 {
		t.Errorf("transitions[signed] = %v, want 2", got)
	}
}

func TestHTTPMiddleware_labelsRoutePattern(t *testing.T) {
	m := InitMetrics()

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/api/agreements/{token}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agreements/abcdef0123456789", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/agreements/{token}", "200"))
	if got != 1 {
		t.Errorf("requests[pattern] = %v, want 1", got)
	}
	// The raw token must never become a label value.
	raw := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/agreements/abcdef0123456789", "200"))
	if raw != 0 {
		t.Errorf("raw path was used as a label value")
	}
}

func TestMetricsHandler_servesExposition(t *testing.T) {
	m := InitMetrics()
	m.RecordTransition("sent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "esign_lifecycle_transitions_total") {
		t.Error("exposition missing transition counter")
	}
}
