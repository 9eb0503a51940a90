package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lancerkit/esign/internal/lifecycle"
	"github.com/lancerkit/esign/model"
)

// ContractHandler serves the administrator-facing contract operations.
type ContractHandler struct {
	engine *lifecycle.Engine
}

// NewContractHandler creates a ContractHandler.
func NewContractHandler(engine *lifecycle.Engine) *ContractHandler {
	return &ContractHandler{engine: engine}
}

// Send dispatches a contract for review or signature.
// POST /api/contracts/{contractID}/send
func (h *ContractHandler) Send(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Send(r.Context(), chi.URLParam(r, "contractID"), RequestMetaFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{
		"contract": res.Contract,
		"variant":  res.Variant,
	})
}

// Cancel withdraws a contract.
// POST /api/contracts/{contractID}/cancel
func (h *ContractHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	c, err := h.engine.Cancel(r.Context(), chi.URLParam(r, "contractID"), body.Reason, RequestMetaFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{"contract": c})
}

// Audit returns the contract's full audit trail, oldest first.
// GET /api/contracts/{contractID}/audit
func (h *ContractHandler) Audit(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.History(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}
	WriteData(w, http.StatusOK, map[string]any{"events": events})
}

// Verify checks a document fingerprint against the stored digests.
// POST /api/contracts/{contractID}/verify
func (h *ContractHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Digest string `json:"digest"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if body.Digest == "" {
		WriteError(w, model.NewBadRequestError("digest is required"))
		return
	}

	res, err := h.engine.Verify(r.Context(), chi.URLParam(r, "contractID"), body.Digest)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, res)
}

// decodeBody parses an optional JSON request body. An empty body is fine;
// malformed JSON is a bad request.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if err == nil || err == io.EOF {
		return nil
	}
	return model.NewBadRequestError("Request body is not valid JSON")
}
