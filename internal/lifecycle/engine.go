package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lancerkit/esign/internal/document"
	"github.com/lancerkit/esign/internal/notify"
	"github.com/lancerkit/esign/internal/storage"
	"github.com/lancerkit/esign/internal/token"
	"github.com/lancerkit/esign/model"
)

// MaxSignatureImageBytes caps the uploaded signature raster.
const MaxSignatureImageBytes = 1 << 20

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Bearer-facing messages. Anonymous parties get a plain-language answer,
// never an internal state name.
const (
	msgLinkInvalid    = "This link is invalid or no longer exists."
	msgLinkExpired    = "This link has expired."
	msgAlreadySigned  = "This agreement has already been signed."
	msgUnavailable    = "This agreement is no longer available."
	msgReviewConsumed = "This review link has already been used."
)

// MetricsRecorder receives lifecycle instrumentation. The observability
// package provides the Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordTransition(event string)
	RecordTokenIssued(role string)
	RecordNotification(template, result string)
}

type nopMetrics struct{}

func (nopMetrics) RecordTransition(string)          {}
func (nopMetrics) RecordTokenIssued(string)         {}
func (nopMetrics) RecordNotification(string, string) {}

// Options configures an Engine.
type Options struct {
	// PublicBaseURL prefixes the agreement links put into email.
	PublicBaseURL string
	// Sender is the notification sender identity.
	Sender notify.Sender
	// DocumentURLTTL bounds the presigned document URLs handed to
	// bearers. Defaults to one hour.
	DocumentURLTTL time.Duration
	// Metrics receives lifecycle instrumentation; nil disables it.
	Metrics MetricsRecorder
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Engine drives the contract lifecycle: it owns every status transition,
// token issuance and consumption, document regeneration and the audit
// trail. Handlers never mutate contracts directly.
type Engine struct {
	store    ContractStore
	tokens   *token.Issuer
	renderer *document.Renderer
	blobs    storage.Gateway
	notifier notify.Gateway
	opts     Options
	metrics  MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(store ContractStore, tokens *token.Issuer, renderer *document.Renderer,
	blobs storage.Gateway, notifier notify.Gateway, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DocumentURLTTL <= 0 {
		opts.DocumentURLTTL = time.Hour
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	var metrics MetricsRecorder = nopMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	return &Engine{
		store:    store,
		tokens:   tokens,
		renderer: renderer,
		blobs:    blobs,
		notifier: notifier,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
		now:      now,
	}
}

// SendVariant says which edge a Send took.
type SendVariant string

const (
	SendWithReview SendVariant = "with_review"
	SendDirect     SendVariant = "direct"
	SendResend     SendVariant = "resend"
)

// SendResult is the outcome of a successful Send.
type SendResult struct {
	Contract model.Contract
	Variant  SendVariant
	Notified bool
}

// Send dispatches a contract for review or signature. From draft it takes
// the review edge when a reviewer is attached, the direct edge otherwise.
// From sent or sent_to_reviewer it is a resend: a fresh signing token is
// issued and any outstanding reviewer token is withdrawn.
//
// The status transition commits before the email goes out. A notification
// failure therefore leaves the contract in its new state and is reported
// as a dependency error; resending recovers.
func (e *Engine) Send(ctx context.Context, contractID string, meta model.RequestMeta) (SendResult, error) {
	c, err := e.store.Get(ctx, contractID)
	if err != nil {
		return SendResult{}, err
	}

	now := e.now().UTC()
	next := c
	next.UpdatedAt = now

	var (
		variant SendVariant
		from    []model.ContractStatus
		ev      model.AuditEvent
	)
	switch {
	case c.Status == model.StatusDraft && c.HasReviewer():
		tok, exp, err := e.tokens.Issue()
		if err != nil {
			return SendResult{}, fmt.Errorf("issue reviewer token: %w", err)
		}
		next.Status = model.StatusSentToReviewer
		next.ReviewerToken, next.ReviewerTokenExpiresAt = &tok, &exp
		next.SentAt = &now
		from = []model.ContractStatus{model.StatusDraft}
		ev = e.newEvent(c, model.EventSentToReviewer, meta.Actor, meta, c.DocumentHash,
			map[string]string{model.MetaForwardedTo: c.Reviewer.Email})
		variant = SendWithReview

	case c.Status == model.StatusDraft:
		tok, exp, err := e.tokens.Issue()
		if err != nil {
			return SendResult{}, fmt.Errorf("issue signing token: %w", err)
		}
		next.Status = model.StatusSent
		next.SigningToken, next.SigningTokenExpiresAt = &tok, &exp
		next.SentAt = &now
		from = []model.ContractStatus{model.StatusDraft}
		ev = e.newEvent(c, model.EventSent, meta.Actor, meta, c.DocumentHash,
			map[string]string{model.MetaForwardedTo: c.Signer.Email})
		variant = SendDirect

	case model.StatusIn(c.Status, model.ResendPredecessors):
		tok, exp, err := e.tokens.Issue()
		if err != nil {
			return SendResult{}, fmt.Errorf("issue signing token: %w", err)
		}
		next.Status = model.StatusSent
		next.ReviewerToken, next.ReviewerTokenExpiresAt = nil, nil
		next.SigningToken, next.SigningTokenExpiresAt = &tok, &exp
		next.SentAt = &now
		from = model.ResendPredecessors
		ev = e.newEvent(c, model.EventResent, meta.Actor, meta, c.DocumentHash,
			map[string]string{model.MetaForwardedTo: c.Signer.Email})
		variant = SendResend

	default:
		return SendResult{}, model.NewInvalidStateError(
			fmt.Sprintf("contract is %s and cannot be sent", c.Status))
	}

	updated, err := e.store.Transition(ctx, next, from, []model.AuditEvent{ev}, nil)
	if err != nil {
		return SendResult{}, err
	}
	if variant == SendWithReview {
		e.metrics.RecordTokenIssued(string(model.RoleReviewer))
	} else {
		e.metrics.RecordTokenIssued(string(model.RoleSigner))
	}
	e.metrics.RecordTransition(string(ev.Type))

	var notifyErr error
	if variant == SendWithReview {
		notifyErr = e.sendReviewRequest(ctx, updated)
	} else {
		notifyErr = e.sendSignatureRequest(ctx, updated)
	}
	if notifyErr != nil {
		e.logger.Warn("notification dispatch failed",
			zap.String("contract_id", c.ID),
			zap.String("variant", string(variant)),
			zap.Error(notifyErr))
		return SendResult{}, model.NewDependencyError(
			"The agreement was prepared but the notification email could not be sent. Sending again will retry.")
	}
	return SendResult{Contract: updated, Variant: variant, Notified: true}, nil
}

// ContractView is the role-scoped projection handed to an anonymous
// bearer. The reviewer never sees signer-only fields and vice versa, and
// token values are never present.
type ContractView struct {
	ContractNumber string               `json:"contract_number"`
	Organization   model.Organization   `json:"organization"`
	Terms          model.Terms          `json:"terms"`
	Status         model.ContractStatus `json:"status"`
	Signer         *model.Party         `json:"signer,omitempty"`
	Reviewer       *model.Party         `json:"reviewer,omitempty"`
	SentAt         *time.Time           `json:"sent_at,omitempty"`
	ReviewedAt     *time.Time           `json:"reviewed_at,omitempty"`
	ViewedAt       *time.Time           `json:"viewed_at,omitempty"`
}

// ViewResult is the outcome of a successful View.
type ViewResult struct {
	Role          model.TokenRole
	Contract      ContractView
	DocumentURL   string
	LinkExpiresAt time.Time
}

// View resolves a bearer token and returns the role-scoped contract
// projection plus a time-limited document URL. The first view by each
// party records the corresponding lifecycle transition; any later view is
// an idempotent reread.
func (e *Engine) View(ctx context.Context, tokenValue string, meta model.RequestMeta) (ViewResult, error) {
	c, role, err := e.resolve(ctx, tokenValue)
	if err != nil {
		return ViewResult{}, err
	}

	now := e.now().UTC()
	switch {
	case role == model.RoleReviewer && c.Status == model.StatusSentToReviewer:
		next := c
		next.Status = model.StatusReviewed
		next.ReviewedAt = &now
		next.UpdatedAt = now
		ev := e.newEvent(c, model.EventReviewed, c.Reviewer.Email, meta, c.DocumentHash, nil)
		c, err = e.firstView(ctx, next, []model.ContractStatus{model.StatusSentToReviewer}, ev)

	case role == model.RoleSigner && c.Status == model.StatusSent:
		next := c
		next.Status = model.StatusViewed
		next.ViewedAt = &now
		next.UpdatedAt = now
		ev := e.newEvent(c, model.EventViewed, c.Signer.Email, meta, c.DocumentHash, nil)
		c, err = e.firstView(ctx, next, []model.ContractStatus{model.StatusSent}, ev)
	}
	if err != nil {
		return ViewResult{}, err
	}

	url, err := e.blobs.PresignedURL(ctx, c.UnsignedPDFPath, e.opts.DocumentURLTTL)
	if err != nil {
		e.logger.Error("presign document url failed", zap.String("contract_id", c.ID), zap.Error(err))
		return ViewResult{}, model.NewDependencyError("The document is temporarily unavailable. Please try again.")
	}

	var linkExp time.Time
	if role == model.RoleReviewer && c.ReviewerTokenExpiresAt != nil {
		linkExp = *c.ReviewerTokenExpiresAt
	} else if c.SigningTokenExpiresAt != nil {
		linkExp = *c.SigningTokenExpiresAt
	}
	return ViewResult{
		Role:          role,
		Contract:      projectForRole(c, role),
		DocumentURL:   url,
		LinkExpiresAt: linkExp,
	}, nil
}

// firstView applies the once-only view transition, tolerating a racing
// duplicate: the loser rereads and proceeds with fresh state.
func (e *Engine) firstView(ctx context.Context, next model.Contract, from []model.ContractStatus,
	ev model.AuditEvent) (model.Contract, error) {
	updated, err := e.store.Transition(ctx, next, from, []model.AuditEvent{ev}, nil)
	if err == nil {
		e.metrics.RecordTransition(string(ev.Type))
		return updated, nil
	}
	if model.IsCode(err, model.ErrInvalidState) {
		return e.store.Get(ctx, next.ID)
	}
	return model.Contract{}, err
}

// ActPayload is the body of an Act request. For a signer it carries the
// signature capture; a reviewer approval has an empty payload.
type ActPayload struct {
	SignerName        string
	SignerTitle       string
	SignatureImagePNG []byte
}

// ActResult is the outcome of a successful Act.
type ActResult struct {
	Outcome  model.AuditEventType // approved or signed
	Contract model.Contract
	Notified bool
}

// Act performs the bearer's role action: a reviewer approval forwards the
// agreement to the signer under a fresh signing token; a signer signature
// regenerates the document with the signature block, persists it and
// closes the contract. Both consume the presented token.
func (e *Engine) Act(ctx context.Context, tokenValue string, payload ActPayload, meta model.RequestMeta) (ActResult, error) {
	c, role, err := e.resolve(ctx, tokenValue)
	if err != nil {
		return ActResult{}, err
	}
	if role == model.RoleReviewer {
		return e.approve(ctx, c, meta)
	}
	return e.sign(ctx, c, payload, meta)
}

func (e *Engine) approve(ctx context.Context, c model.Contract, meta model.RequestMeta) (ActResult, error) {
	if !model.StatusIn(c.Status, model.ApprovePredecessors) || c.ReviewerToken == nil {
		return ActResult{}, model.NewInvalidStateError(
			fmt.Sprintf("contract is %s and cannot be approved", c.Status))
	}

	tok, exp, err := e.tokens.Issue()
	if err != nil {
		return ActResult{}, fmt.Errorf("issue signing token: %w", err)
	}

	now := e.now().UTC()
	consumedDigest := token.Digest(*c.ReviewerToken)

	next := c
	next.Status = model.StatusSent
	next.ReviewerToken, next.ReviewerTokenExpiresAt = nil, nil
	next.SigningToken, next.SigningTokenExpiresAt = &tok, &exp
	next.UpdatedAt = now

	ev := e.newEvent(c, model.EventApproved, c.Reviewer.Email, meta, c.DocumentHash, map[string]string{
		model.MetaForwardedTo: c.Signer.Email,
		model.MetaTokenDigest: consumedDigest,
	})
	// The forward to the signer is machine-initiated, so it gets its own
	// event under the system actor.
	fwd := e.newEvent(c, model.EventSent, model.ActorSystem, model.RequestMeta{}, c.DocumentHash,
		map[string]string{model.MetaForwardedTo: c.Signer.Email})

	updated, err := e.store.Transition(ctx, next, model.ApprovePredecessors, []model.AuditEvent{ev, fwd}, nil)
	if err != nil {
		return ActResult{}, err
	}
	e.metrics.RecordTokenIssued(string(model.RoleSigner))
	e.metrics.RecordTransition(string(ev.Type))

	notified := true
	if err := e.sendSignatureRequest(ctx, updated); err != nil {
		notified = false
		e.logger.Warn("signature request dispatch failed",
			zap.String("contract_id", c.ID), zap.Error(err))
	}
	return ActResult{Outcome: model.EventApproved, Contract: updated, Notified: notified}, nil
}

func (e *Engine) sign(ctx context.Context, c model.Contract, payload ActPayload, meta model.RequestMeta) (ActResult, error) {
	if !model.StatusIn(c.Status, model.SignPredecessors) || c.SigningToken == nil {
		return ActResult{}, model.NewInvalidStateError(
			fmt.Sprintf("contract is %s and cannot be signed", c.Status))
	}
	if details := validateSignature(payload); len(details) > 0 {
		return ActResult{}, model.NewValidationError(details)
	}

	signedAt := e.now().UTC()
	pdf, err := e.renderer.Render(document.RenderInput{
		ContractNumber: c.ContractNumber,
		Organization:   c.Organization,
		Signer:         c.Signer,
		Reviewer:       c.Reviewer,
		Terms:          c.Terms,
		GeneratedAt:    signedAt,
		Signature: &document.SignatureBlock{
			ImagePNG:    payload.SignatureImagePNG,
			SignerName:  payload.SignerName,
			SignerTitle: payload.SignerTitle,
			SignedAt:    signedAt,
			SignerIP:    meta.ClientIP,
		},
	})
	if err != nil {
		e.logger.Error("signed document render failed", zap.String("contract_id", c.ID), zap.Error(err))
		return ActResult{}, model.NewDependencyError("The signed document could not be generated. Please try again.")
	}

	signedHash := document.Digest(pdf)
	if signedHash == c.DocumentHash {
		// The signature block must change the document; identical output
		// means the renderer ignored it.
		e.logger.Error("signed document hash matches unsigned baseline", zap.String("contract_id", c.ID))
		return ActResult{}, model.NewDependencyError("The signed document could not be generated. Please try again.")
	}

	sigPath := storage.SignatureImagePath(c.Organization.ID, c.ID)
	pdfPath := storage.SignedPDFPath(c.Organization.ID, c.ID)
	consumedDigest := token.Digest(*c.SigningToken)

	next := c
	next.Status = model.StatusSigned
	next.SigningToken, next.SigningTokenExpiresAt = nil, nil
	next.SignedAt = &signedAt
	next.SignedDocumentHash = signedHash
	next.SignedPDFPath = pdfPath
	next.SignatureImagePath = sigPath
	next.UpdatedAt = signedAt

	ev := e.newEvent(c, model.EventSigned, c.Signer.Email, meta, signedHash, map[string]string{
		model.MetaSignerName:   payload.SignerName,
		model.MetaSignerTitle:  payload.SignerTitle,
		model.MetaOriginalHash: c.DocumentHash,
		model.MetaTokenDigest:  consumedDigest,
	})

	// Uploads run inside the transition, after the status swap has won:
	// a racing duplicate signature never reaches storage, and an upload
	// failure rolls the transition back.
	effects := func(ctx context.Context) error {
		if err := e.blobs.Put(ctx, sigPath, payload.SignatureImagePNG, "image/png"); err != nil {
			e.logger.Error("signature image upload failed", zap.String("contract_id", c.ID), zap.Error(err))
			return model.NewDependencyError("The signed document could not be stored. Please try again.")
		}
		if err := e.blobs.Put(ctx, pdfPath, pdf, "application/pdf"); err != nil {
			e.logger.Error("signed document upload failed", zap.String("contract_id", c.ID), zap.Error(err))
			return model.NewDependencyError("The signed document could not be stored. Please try again.")
		}
		return nil
	}

	updated, err := e.store.Transition(ctx, next, model.SignPredecessors, []model.AuditEvent{ev}, effects)
	if err != nil {
		if model.IsCode(err, model.ErrInvalidState) {
			if current, gerr := e.store.Get(ctx, c.ID); gerr == nil && current.Status.Terminal() {
				return ActResult{}, e.closedError(current.Status, model.RoleSigner)
			}
		}
		return ActResult{}, err
	}
	e.metrics.RecordTransition(string(ev.Type))

	notified := true
	if err := e.sendSignedCopies(ctx, updated); err != nil {
		notified = false
		e.logger.Warn("signed copy dispatch failed", zap.String("contract_id", c.ID), zap.Error(err))
	}
	return ActResult{Outcome: model.EventSigned, Contract: updated, Notified: notified}, nil
}

// Cancel withdraws a contract from any non-terminal state. Live tokens are
// nulled; their digest stays in the audit trail so an outstanding link
// resolves to a humane answer instead of a dead end.
func (e *Engine) Cancel(ctx context.Context, contractID, reason string, meta model.RequestMeta) (model.Contract, error) {
	c, err := e.store.Get(ctx, contractID)
	if err != nil {
		return model.Contract{}, err
	}
	if c.Status.Terminal() {
		return model.Contract{}, model.NewInvalidStateError(
			fmt.Sprintf("contract is %s and cannot be cancelled", c.Status))
	}

	now := e.now().UTC()
	md := map[string]string{}
	if reason != "" {
		md[model.MetaReason] = reason
	}
	if live, _ := c.LiveToken(); live != nil {
		md[model.MetaTokenDigest] = token.Digest(*live)
	}

	next := c
	next.Status = model.StatusCancelled
	next.ReviewerToken, next.ReviewerTokenExpiresAt = nil, nil
	next.SigningToken, next.SigningTokenExpiresAt = nil, nil
	next.UpdatedAt = now

	ev := e.newEvent(c, model.EventCancelled, meta.Actor, meta, c.DocumentHash, md)
	updated, err := e.store.Transition(ctx, next, model.CancelPredecessors, []model.AuditEvent{ev}, nil)
	if err != nil {
		return model.Contract{}, err
	}
	e.metrics.RecordTransition(string(ev.Type))
	return updated, nil
}

// History returns the full audit trail, oldest first.
func (e *Engine) History(ctx context.Context, contractID string) ([]model.AuditEvent, error) {
	return e.store.AuditTrail(ctx, contractID)
}

// VerifyResult reports which stored digest, if any, a presented document
// fingerprint matches.
type VerifyResult struct {
	Match              string `json:"match"` // unsigned, signed or none
	DocumentHash       string `json:"document_hash"`
	SignedDocumentHash string `json:"signed_document_hash,omitempty"`
}

// Verify checks a SHA-256 fingerprint against the contract's stored
// hashes, supporting out-of-band integrity checks of a document copy.
func (e *Engine) Verify(ctx context.Context, contractID, digest string) (VerifyResult, error) {
	c, err := e.store.Get(ctx, contractID)
	if err != nil {
		return VerifyResult{}, err
	}
	res := VerifyResult{
		Match:              "none",
		DocumentHash:       c.DocumentHash,
		SignedDocumentHash: c.SignedDocumentHash,
	}
	d := strings.ToLower(strings.TrimSpace(digest))
	switch {
	case d == c.DocumentHash:
		res.Match = "unsigned"
	case c.SignedDocumentHash != "" && d == c.SignedDocumentHash:
		res.Match = "signed"
	}
	return res, nil
}

// resolve looks up a bearer token and screens out everything that is not a
// live, unexpired link, translating each case into its bearer-facing
// answer. A token past its expiry triggers the lazy flip to expired.
func (e *Engine) resolve(ctx context.Context, tokenValue string) (model.Contract, model.TokenRole, error) {
	lk, err := e.store.GetByToken(ctx, tokenValue)
	if err != nil {
		if model.IsCode(err, model.ErrNotFound) {
			return model.Contract{}, "", model.NewNotFoundError(msgLinkInvalid)
		}
		return model.Contract{}, "", err
	}
	c := lk.Contract

	if lk.Consumed || c.Status.Terminal() {
		return model.Contract{}, "", e.closedError(c.Status, lk.Role)
	}

	var exp *time.Time
	if lk.Role == model.RoleReviewer {
		exp = c.ReviewerTokenExpiresAt
	} else {
		exp = c.SigningTokenExpiresAt
	}
	if exp != nil && e.now().After(*exp) {
		expired := c
		expired.Status = model.StatusExpired
		expired.UpdatedAt = e.now().UTC()
		// The token column survives the flip so the link keeps resolving.
		if _, terr := e.store.Transition(ctx, expired, model.TokenBearingStates, nil, nil); terr != nil &&
			!model.IsCode(terr, model.ErrInvalidState) {
			e.logger.Warn("expiry flip failed", zap.String("contract_id", c.ID), zap.Error(terr))
		}
		return model.Contract{}, "", model.NewExpiredError(msgLinkExpired)
	}
	return c, lk.Role, nil
}

func (e *Engine) closedError(status model.ContractStatus, role model.TokenRole) error {
	switch status {
	case model.StatusSigned:
		return model.NewTerminalStateError(msgAlreadySigned)
	case model.StatusExpired:
		return model.NewExpiredError(msgLinkExpired)
	case model.StatusCancelled:
		return model.NewTerminalStateError(msgUnavailable)
	default:
		// Consumed token on a still-running contract: the reviewer's link
		// after approval.
		if role == model.RoleReviewer {
			return model.NewTerminalStateError(msgReviewConsumed)
		}
		return model.NewTerminalStateError(msgUnavailable)
	}
}

func (e *Engine) newEvent(c model.Contract, typ model.AuditEventType, actor string,
	meta model.RequestMeta, hash string, md map[string]string) model.AuditEvent {
	if actor == "" {
		actor = model.ActorSystem
	}
	return model.AuditEvent{
		ID:           uuid.NewString(),
		ContractID:   c.ID,
		Type:         typ,
		Actor:        actor,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
		DocumentHash: hash,
		Metadata:     md,
		CreatedAt:    e.now().UTC(),
	}
}

func validateSignature(payload ActPayload) []model.FieldError {
	var details []model.FieldError
	if strings.TrimSpace(payload.SignerName) == "" {
		details = append(details, model.FieldError{
			Field: "signer_name", Code: "required", Message: "Signer name is required",
		})
	}
	switch {
	case len(payload.SignatureImagePNG) == 0:
		details = append(details, model.FieldError{
			Field: "signature_image", Code: "required", Message: "Signature image is required",
		})
	case len(payload.SignatureImagePNG) > MaxSignatureImageBytes:
		details = append(details, model.FieldError{
			Field: "signature_image", Code: "too_large",
			Message: fmt.Sprintf("Signature image exceeds %d bytes", MaxSignatureImageBytes),
		})
	case !bytes.HasPrefix(payload.SignatureImagePNG, pngMagic):
		details = append(details, model.FieldError{
			Field: "signature_image", Code: "invalid", Message: "Signature image must be a PNG",
		})
	}
	return details
}

func projectForRole(c model.Contract, role model.TokenRole) ContractView {
	v := ContractView{
		ContractNumber: c.ContractNumber,
		Organization:   c.Organization,
		Terms:          c.Terms,
		Status:         c.Status,
		SentAt:         c.SentAt,
		ReviewedAt:     c.ReviewedAt,
		ViewedAt:       c.ViewedAt,
	}
	if role == model.RoleReviewer {
		if c.Reviewer != nil {
			r := *c.Reviewer
			v.Reviewer = &r
		}
	} else {
		s := c.Signer
		v.Signer = &s
	}
	return v
}

func (e *Engine) agreementLink(tok string) string {
	return strings.TrimRight(e.opts.PublicBaseURL, "/") + "/agreements/" + tok
}

func (e *Engine) sendReviewRequest(ctx context.Context, c model.Contract) error {
	if c.Reviewer == nil || c.ReviewerToken == nil {
		return fmt.Errorf("contract %s has no live reviewer link", c.ID)
	}
	err := e.notifier.Send(ctx, e.opts.Sender, notify.Message{
		Template:       notify.TemplateReviewRequest,
		RecipientName:  c.Reviewer.Name,
		RecipientEmail: c.Reviewer.Email,
		Data: map[string]string{
			"recipient_name":  c.Reviewer.Name,
			"organization":    c.Organization.Name,
			"contract_number": c.ContractNumber,
			"link":            e.agreementLink(*c.ReviewerToken),
			"expires_at":      c.ReviewerTokenExpiresAt.Format("2 January 2006"),
		},
	})
	e.metrics.RecordNotification(string(notify.TemplateReviewRequest), resultLabel(err))
	return err
}

func (e *Engine) sendSignatureRequest(ctx context.Context, c model.Contract) error {
	if c.SigningToken == nil {
		return fmt.Errorf("contract %s has no live signing link", c.ID)
	}
	err := e.notifier.Send(ctx, e.opts.Sender, notify.Message{
		Template:       notify.TemplateSignatureRequest,
		RecipientName:  c.Signer.Name,
		RecipientEmail: c.Signer.Email,
		Data: map[string]string{
			"recipient_name":  c.Signer.Name,
			"organization":    c.Organization.Name,
			"contract_number": c.ContractNumber,
			"link":            e.agreementLink(*c.SigningToken),
			"expires_at":      c.SigningTokenExpiresAt.Format("2 January 2006"),
		},
	})
	e.metrics.RecordNotification(string(notify.TemplateSignatureRequest), resultLabel(err))
	return err
}

// sendSignedCopies mails the completion notice to the signer and, when an
// organization contact is on file, to the owner as well.
func (e *Engine) sendSignedCopies(ctx context.Context, c model.Contract) error {
	url, err := e.blobs.PresignedURL(ctx, c.SignedPDFPath, e.opts.DocumentURLTTL)
	if err != nil {
		return fmt.Errorf("presign signed document: %w", err)
	}

	recipients := []model.Party{c.Signer}
	if c.Organization.ContactEmail != "" {
		recipients = append(recipients, model.Party{
			Name: c.Organization.Name, Email: c.Organization.ContactEmail,
		})
	}
	for _, rcpt := range recipients {
		err := e.notifier.Send(ctx, e.opts.Sender, notify.Message{
			Template:       notify.TemplateSignedCopy,
			RecipientName:  rcpt.Name,
			RecipientEmail: rcpt.Email,
			Data: map[string]string{
				"recipient_name":  rcpt.Name,
				"organization":    c.Organization.Name,
				"contract_number": c.ContractNumber,
				"signer_name":     c.Signer.Name,
				"link":            url,
				"document_hash":   c.SignedDocumentHash,
			},
		})
		e.metrics.RecordNotification(string(notify.TemplateSignedCopy), resultLabel(err))
		if err != nil {
			return fmt.Errorf("send signed copy to %s: %w", rcpt.Email, err)
		}
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
