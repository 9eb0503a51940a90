// Package model defines the domain types shared across the contract
// lifecycle engine: the contract entity, its status machine, the audit
// event record, and the error envelope returned by the API.
package model

import (
	"fmt"
	"time"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

// Lifecycle states. draft is initial; signed, expired and cancelled are
// absorbing.
const (
	StatusDraft          ContractStatus = "draft"
	StatusSentToReviewer ContractStatus = "sent_to_reviewer"
	StatusReviewed       ContractStatus = "reviewed"
	StatusSent           ContractStatus = "sent"
	StatusViewed         ContractStatus = "viewed"
	StatusSigned         ContractStatus = "signed"
	StatusExpired        ContractStatus = "expired"
	StatusCancelled      ContractStatus = "cancelled"
)

// allStatuses is used for validation.
var allStatuses = map[ContractStatus]bool{
	StatusDraft: true, StatusSentToReviewer: true, StatusReviewed: true,
	StatusSent: true, StatusViewed: true, StatusSigned: true,
	StatusExpired: true, StatusCancelled: true,
}

// Valid reports whether s is a known lifecycle state.
func (s ContractStatus) Valid() bool { return allStatuses[s] }

// Terminal reports whether s is an absorbing state.
func (s ContractStatus) Terminal() bool {
	return s == StatusSigned || s == StatusExpired || s == StatusCancelled
}

// Predecessor sets for the guarded transitions. The store enforces these
// with a compare-and-swap so a replayed or racing request loses cleanly
// instead of double-transitioning.
var (
	// ApprovePredecessors are the states from which Act=approve is legal.
	ApprovePredecessors = []ContractStatus{StatusSentToReviewer, StatusReviewed}
	// SignPredecessors are the states from which Act=sign is legal.
	SignPredecessors = []ContractStatus{StatusSent, StatusViewed}
	// ResendPredecessors are the states from which a repeat Send is legal.
	ResendPredecessors = []ContractStatus{StatusSent, StatusSentToReviewer}
	// CancelPredecessors covers every non-terminal state.
	CancelPredecessors = []ContractStatus{
		StatusDraft, StatusSentToReviewer, StatusReviewed, StatusSent, StatusViewed,
	}
	// TokenBearingStates are the states in which a live token may exist;
	// the lazy expiry flip is CAS-guarded against this set.
	TokenBearingStates = []ContractStatus{
		StatusSentToReviewer, StatusReviewed, StatusSent, StatusViewed,
	}
)

// StatusIn reports whether s is a member of set.
func StatusIn(s ContractStatus, set []ContractStatus) bool {
	for _, m := range set {
		if s == m {
			return true
		}
	}
	return false
}

// Party identifies a human participant in the agreement.
type Party struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Title string `json:"title,omitempty"`
}

// Organization is a snapshot of the owning organization's legal identity,
// read from the surrounding product at contract creation.
type Organization struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address"`
	ContactEmail       string `json:"contact_email,omitempty"`
}

// Terms holds the commercial terms of a subscription agreement.
type Terms struct {
	Tier            string            `json:"tier"`
	AnnualPrice     int64             `json:"annual_price"` // minor currency units
	Currency        string            `json:"currency"`
	BillingInterval string            `json:"billing_interval"`
	VATRate         float64           `json:"vat_rate"`
	StartDate       time.Time         `json:"start_date"`
	DurationMonths  int               `json:"duration_months"`
	CustomTerms     map[string]string `json:"custom_terms,omitempty"`
}

// Contract is the central entity. The lifecycle engine is the only writer
// of Status, the token fields and the hash fields.
type Contract struct {
	ID             string `json:"id"`
	ContractNumber string `json:"contract_number"`

	Organization Organization `json:"organization"`
	Signer       Party        `json:"signer"`
	Reviewer     *Party       `json:"reviewer,omitempty"`
	Terms        Terms        `json:"terms"`

	Status ContractStatus `json:"status"`

	ReviewerToken          *string    `json:"-"`
	ReviewerTokenExpiresAt *time.Time `json:"-"`
	SigningToken           *string    `json:"-"`
	SigningTokenExpiresAt  *time.Time `json:"-"`

	DocumentHash       string `json:"document_hash"`
	SignedDocumentHash string `json:"signed_document_hash,omitempty"`

	UnsignedPDFPath    string `json:"unsigned_pdf_path"`
	SignedPDFPath      string `json:"signed_pdf_path,omitempty"`
	SignatureImagePath string `json:"signature_image_path,omitempty"`

	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasReviewer reports whether a reviewer was attached at draft time. The
// Send variant (direct vs. with-review) is chosen from this once, at the
// draft→sent edge, never re-derived later.
func (c *Contract) HasReviewer() bool {
	return c.Reviewer != nil && c.Reviewer.Email != ""
}

// LiveToken returns the currently live token value and its expiry, or nil
// if no token slot is populated.
func (c *Contract) LiveToken() (*string, *time.Time) {
	if c.ReviewerToken != nil {
		return c.ReviewerToken, c.ReviewerTokenExpiresAt
	}
	if c.SigningToken != nil {
		return c.SigningToken, c.SigningTokenExpiresAt
	}
	return nil, nil
}

// ValidateTokenState checks that the status/token combination is one of the
// legal pairs. It is called on every store write so an invalid combination
// (for example signed with a live token) can never be persisted.
//
// Legal pairs:
//
//	draft, signed, cancelled        -> both slots null
//	sent_to_reviewer, reviewed      -> reviewer token set, signing null
//	sent, viewed                    -> signing token set, reviewer null
//	expired                         -> slots keep whatever was live
func (c *Contract) ValidateTokenState() error {
	rev := c.ReviewerToken != nil
	sig := c.SigningToken != nil

	switch c.Status {
	case StatusDraft, StatusSigned, StatusCancelled:
		if rev || sig {
			return fmt.Errorf("contract %s: status %s must not carry a token", c.ID, c.Status)
		}
	case StatusSentToReviewer, StatusReviewed:
		if !rev || sig {
			return fmt.Errorf("contract %s: status %s requires exactly the reviewer token", c.ID, c.Status)
		}
	case StatusSent, StatusViewed:
		if rev || !sig {
			return fmt.Errorf("contract %s: status %s requires exactly the signing token", c.ID, c.Status)
		}
	case StatusExpired:
		// Expiry freezes whatever slot was live; both live is still illegal.
		if rev && sig {
			return fmt.Errorf("contract %s: expired with two live tokens", c.ID)
		}
	default:
		return fmt.Errorf("contract %s: unknown status %q", c.ID, c.Status)
	}

	if rev && sig {
		return fmt.Errorf("contract %s: both token slots live", c.ID)
	}
	if c.SignedDocumentHash != "" && c.Status != StatusSigned {
		return fmt.Errorf("contract %s: signed_document_hash set while status is %s", c.ID, c.Status)
	}
	return nil
}

// TokenRole says which party a bearer token belongs to.
type TokenRole string

const (
	RoleReviewer TokenRole = "reviewer"
	RoleSigner   TokenRole = "signer"
)

// ActorSystem is the actor recorded on engine-generated transitions.
const ActorSystem = "system"
