package transport

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lancerkit/esign/internal/lifecycle"
	"github.com/lancerkit/esign/model"
)

// AgreementHandler serves the anonymous bearer-token surface. Nothing here
// requires authentication; the token in the URL path is the credential.
type AgreementHandler struct {
	engine *lifecycle.Engine
}

// NewAgreementHandler creates an AgreementHandler.
func NewAgreementHandler(engine *lifecycle.Engine) *AgreementHandler {
	return &AgreementHandler{engine: engine}
}

// View returns the role-scoped agreement projection and document URL.
// GET /api/agreements/{token}
func (h *AgreementHandler) View(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.View(r.Context(), chi.URLParam(r, "token"), RequestMetaFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{
		"role":            res.Role,
		"contract":        res.Contract,
		"document_url":    res.DocumentURL,
		"link_expires_at": res.LinkExpiresAt,
	})
}

// actRequest is the Act body. A reviewer approval sends it empty; a signer
// fills in the signature capture.
type actRequest struct {
	SignerName     string `json:"signer_name"`
	SignerTitle    string `json:"signer_title"`
	SignatureImage string `json:"signature_image"` // base64-encoded PNG
}

// Act performs the bearer's role action: approve for reviewer tokens, sign
// for signing tokens.
// POST /api/agreements/{token}
func (h *AgreementHandler) Act(w http.ResponseWriter, r *http.Request) {
	var body actRequest
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	payload := lifecycle.ActPayload{
		SignerName:  body.SignerName,
		SignerTitle: body.SignerTitle,
	}
	if body.SignatureImage != "" {
		img, err := base64.StdEncoding.DecodeString(body.SignatureImage)
		if err != nil {
			WriteError(w, model.NewValidationError([]model.FieldError{{
				Field: "signature_image", Code: "invalid", Message: "Signature image must be base64-encoded",
			}}))
			return
		}
		payload.SignatureImagePNG = img
	}

	res, err := h.engine.Act(r.Context(), chi.URLParam(r, "token"), payload, RequestMetaFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	out := map[string]any{
		"outcome":  res.Outcome,
		"status":   res.Contract.Status,
		"notified": res.Notified,
	}
	if res.Outcome == model.EventSigned {
		out["signed_document_hash"] = res.Contract.SignedDocumentHash
		out["signed_at"] = res.Contract.SignedAt
	}
	WriteData(w, http.StatusOK, out)
}
