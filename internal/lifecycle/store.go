// Package lifecycle implements the contract lifecycle engine: the status
// state machine behind Send, View and Act, the single-use token handling,
// and the append-only audit trail.
package lifecycle

import (
	"context"

	"github.com/lancerkit/esign/model"
)

// TokenLookup is the result of resolving a bearer token.
type TokenLookup struct {
	Contract model.Contract
	Role     model.TokenRole
	// Consumed is true when the token is no longer live and was resolved
	// through its digest in the audit trail. Such a bearer gets a
	// humane "already used" answer instead of "link invalid".
	Consumed bool
}

// ContractStore persists contracts and their audit trail. Implementations
// must make Transition an atomic compare-and-swap on status: handlers run
// across many workers with no ordering guarantee, and the CAS is the only
// serialization point in the system.
type ContractStore interface {
	// Create inserts a new contract. Used by the surrounding product at
	// draft time and by test fixtures.
	Create(ctx context.Context, c model.Contract) error

	// Get retrieves a contract by ID.
	Get(ctx context.Context, id string) (model.Contract, error)

	// GetByToken resolves a bearer token by exact match against the live
	// token slots, falling back to consumed-token digests recorded in the
	// audit trail. Returns NotFound if neither resolves.
	GetByToken(ctx context.Context, tokenValue string) (TokenLookup, error)

	// Transition persists next if and only if the stored status is in
	// from, appends events in the same transaction, and runs effects (if
	// non-nil) after the swap is known to have won but before the
	// transaction is durable. An effects error aborts the whole
	// transition. A lost swap returns an INVALID_STATE error and nothing
	// is written.
	Transition(ctx context.Context, next model.Contract, from []model.ContractStatus,
		events []model.AuditEvent, effects func(context.Context) error) (model.Contract, error)

	// AuditTrail returns all events for a contract, oldest first.
	AuditTrail(ctx context.Context, contractID string) ([]model.AuditEvent, error)
}
