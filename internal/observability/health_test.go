package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (c fakeChecker) HealthCheck(context.Context) error { return c.err }

func TestHandleHealth_returnsOK(t *testing.T) {
	origVersion, origCommit := Version, Commit
	Version = "1.2.3"
	Commit = "abc1234"
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
	})

	handler := HandleHealth()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp.Version)
	}
	if resp.Commit != "abc1234" {
		t.Errorf("commit = %q, want abc1234", resp.Commit)
	}
}

func TestHandleReady_allHealthy(t *testing.T) {
	handler := HandleReady(ReadinessChecks{
		Database: fakeChecker{},
		Blobs:    fakeChecker{},
		Mail:     fakeChecker{},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ReadinessResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "ready" {
		t.Errorf("status = %q, want ready", resp.Status)
	}
	for _, name := range []string{"database", "blob_store", "mail"} {
		if resp.Checks[name].Status != "ok" {
			t.Errorf("%s = %q, want ok", name, resp.Checks[name].Status)
		}
	}
}

func TestHandleReady_failingDependency(t *testing.T) {
	handler := HandleReady(ReadinessChecks{
		Database: fakeChecker{},
		Blobs:    fakeChecker{err: errors.New("bucket unreachable")},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp ReadinessResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", resp.Status)
	}
	if resp.Checks["database"].Status != "ok" {
		t.Errorf("database = %q, want ok", resp.Checks["database"].Status)
	}
	if resp.Checks["blob_store"].Status != "error" {
		t.Errorf("blob_store = %q, want error", resp.Checks["blob_store"].Status)
	}
	if resp.Checks["blob_store"].Error != "bucket unreachable" {
		t.Errorf("blob_store error = %q", resp.Checks["blob_store"].Error)
	}
}

func TestHandleReady_nilChecksSkipped(t *testing.T) {
	handler := HandleReady(ReadinessChecks{Database: fakeChecker{}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var resp ReadinessResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Checks) != 1 {
		t.Fatalf("checks = %d, want 1", len(resp.Checks))
	}
	if _, ok := resp.Checks["mail"]; ok {
		t.Error("mail check should be skipped when nil")
	}
}
