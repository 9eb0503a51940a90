// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the contract lifecycle API.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/lancerkit/esign/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes. Terminal,
// expired and already-consumed resources answer 410 so clients can render
// a closed-out page instead of a generic failure.
var statusForCode = map[string]int{
	model.ErrBadRequest:       http.StatusBadRequest,
	model.ErrUnauthorized:     http.StatusUnauthorized,
	model.ErrForbidden:        http.StatusForbidden,
	model.ErrNotFound:         http.StatusNotFound,
	model.ErrExpired:          http.StatusGone,
	model.ErrTerminalState:    http.StatusGone,
	model.ErrInvalidState:     http.StatusBadRequest,
	model.ErrValidationError:  http.StatusBadRequest,
	model.ErrRateLimited:      http.StatusTooManyRequests,
	model.ErrDependencyFailed: http.StatusBadGateway,
	model.ErrInternalError:    http.StatusInternalServerError,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteData writes a success payload inside the uniform {data: ...} envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	type dataResponse struct {
		Data any `json:"data"`
	}
	WriteJSON(w, status, dataResponse{Data: data})
}

// WriteError writes an ErrorEnvelope as a JSON response with the correct
// HTTP status code. If err is not an *ErrorEnvelope, a generic 500 is
// returned so internal detail never leaks.
func WriteError(w http.ResponseWriter, err error) {
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok {
		ee = model.NewInternalError()
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}
