package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lancerkit/esign/model"
)

func TestWriteError_statusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", model.NewNotFoundError("nope"), http.StatusNotFound},
		{"expired", model.NewExpiredError("gone"), http.StatusGone},
		{"terminal", model.NewTerminalStateError("done"), http.StatusGone},
		{"invalid state", model.NewInvalidStateError("wrong edge"), http.StatusBadRequest},
		{"validation", model.NewValidationError(nil), http.StatusBadRequest},
		{"unauthorized", model.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"forbidden", model.NewForbiddenError("no"), http.StatusForbidden},
		{"rate limited", model.NewRateLimitedError(), http.StatusTooManyRequests},
		{"dependency", model.NewDependencyError("smtp down"), http.StatusBadGateway},
		{"unknown error type", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}

			var body struct {
				Error *model.ErrorEnvelope `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body.Error == nil || body.Error.Code == "" {
				t.Error("error envelope missing code")
			}
		})
	}
}

func TestWriteError_unknownErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pg: connection refused to 10.1.2.3"))
	if got := rec.Body.String(); strings.Contains(got, "10.1.2.3") {
		t.Errorf("internal detail leaked: %s", got)
	}
}

func TestWriteData_envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusOK, map[string]string{"hello": "world"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Data["hello"] != "world" {
		t.Errorf("data = %v", body.Data)
	}
}
