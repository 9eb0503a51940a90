package model

import "time"

// AuditEventType enumerates the recorded lifecycle events.
type AuditEventType string

const (
	EventSent           AuditEventType = "sent"
	EventSentToReviewer AuditEventType = "sent_to_reviewer"
	EventResent         AuditEventType = "resent"
	EventReviewed       AuditEventType = "reviewed"
	EventApproved       AuditEventType = "approved"
	EventViewed         AuditEventType = "viewed"
	EventSigned         AuditEventType = "signed"
	EventCancelled      AuditEventType = "cancelled"
)

// Well-known metadata keys. The metadata map is free-form but these keys
// are always present where they apply, so the trail can reconstruct who
// did what to whom.
const (
	MetaForwardedTo = "forwarded_to"
	MetaSignerName  = "signer_name"
	MetaSignerTitle = "signer_title"
	MetaOriginalHash = "original_hash"
	MetaReason       = "reason"
	// MetaTokenDigest is the SHA-256 of a consumed bearer token. The raw
	// token value is never persisted outside its live column; the digest
	// lets an already-consumed link resolve to its contract so the bearer
	// gets "already signed" instead of "link invalid".
	MetaTokenDigest = "token_digest"
)

// AuditEvent is one append-only record of a lifecycle transition. Events
// are created once, never updated or deleted, and retained indefinitely.
type AuditEvent struct {
	ID         string            `json:"id"`
	ContractID string            `json:"contract_id"`
	Type       AuditEventType    `json:"type"`
	Actor      string            `json:"actor"` // email or "system"
	ClientIP   string            `json:"client_ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	// DocumentHash snapshots the relevant digest as of this event: the
	// pre-signature hash for everything up to signing, the post-signature
	// hash for the signed event.
	DocumentHash string            `json:"document_hash"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RequestMeta carries the caller attribution recorded on audit events.
type RequestMeta struct {
	Actor     string
	ClientIP  string
	UserAgent string
}
