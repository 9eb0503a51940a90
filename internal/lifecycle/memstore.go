package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lancerkit/esign/internal/token"
	"github.com/lancerkit/esign/model"
)

// MemoryStore is an in-memory ContractStore with the same compare-and-swap
// semantics as the Postgres store. It backs unit tests and local
// development without a database.
type MemoryStore struct {
	mu        sync.Mutex
	contracts map[string]model.Contract
	events    map[string][]model.AuditEvent
	// consumed maps token digests to the contract and role they once
	// belonged to, mirroring the audit-trail digest lookup of the
	// Postgres store.
	consumed map[string]consumedToken
}

type consumedToken struct {
	contractID string
	role       model.TokenRole
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts: make(map[string]model.Contract),
		events:    make(map[string][]model.AuditEvent),
		consumed:  make(map[string]consumedToken),
	}
}

func (s *MemoryStore) Create(ctx context.Context, c model.Contract) error {
	if err := c.ValidateTokenState(); err != nil {
		return fmt.Errorf("contract state is inconsistent: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[c.ID]; ok {
		return model.NewBadRequestError("contract already exists: " + c.ID)
	}
	s.contracts[c.ID] = cloneContract(c)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return model.Contract{}, model.NewNotFoundError("contract not found: " + id)
	}
	return cloneContract(c), nil
}

func (s *MemoryStore) GetByToken(ctx context.Context, tokenValue string) (TokenLookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contracts {
		if c.ReviewerToken != nil && token.Equal(*c.ReviewerToken, tokenValue) {
			return TokenLookup{Contract: cloneContract(c), Role: model.RoleReviewer}, nil
		}
		if c.SigningToken != nil && token.Equal(*c.SigningToken, tokenValue) {
			return TokenLookup{Contract: cloneContract(c), Role: model.RoleSigner}, nil
		}
	}
	if ref, ok := s.consumed[token.Digest(tokenValue)]; ok {
		if c, ok := s.contracts[ref.contractID]; ok {
			return TokenLookup{Contract: cloneContract(c), Role: ref.role, Consumed: true}, nil
		}
	}
	return TokenLookup{}, model.NewNotFoundError("unknown token")
}

func (s *MemoryStore) Transition(ctx context.Context, next model.Contract, from []model.ContractStatus,
	events []model.AuditEvent, effects func(context.Context) error) (model.Contract, error) {
	if err := next.ValidateTokenState(); err != nil {
		return model.Contract{}, fmt.Errorf("contract state is inconsistent: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.contracts[next.ID]
	if !ok {
		return model.Contract{}, model.NewNotFoundError("contract not found: " + next.ID)
	}
	if !model.StatusIn(current.Status, from) {
		return model.Contract{}, model.NewInvalidStateError(
			"contract is " + string(current.Status) + ", cannot move to " + string(next.Status))
	}

	if effects != nil {
		if err := effects(ctx); err != nil {
			return model.Contract{}, err
		}
	}

	s.contracts[next.ID] = cloneContract(next)
	for _, ev := range events {
		s.events[next.ID] = append(s.events[next.ID], cloneEvent(ev))
		if digest, ok := ev.Metadata[model.MetaTokenDigest]; ok {
			s.consumed[digest] = consumedToken{contractID: next.ID, role: roleForEvent(ev.Type)}
		}
	}
	return cloneContract(next), nil
}

func (s *MemoryStore) AuditTrail(ctx context.Context, contractID string) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[contractID]; !ok {
		return nil, model.NewNotFoundError("contract not found: " + contractID)
	}
	src := s.events[contractID]
	out := make([]model.AuditEvent, 0, len(src))
	for _, ev := range src {
		out = append(out, cloneEvent(ev))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// roleForEvent infers which party held a consumed token from the event
// that recorded its digest.
func roleForEvent(typ model.AuditEventType) model.TokenRole {
	if typ == model.EventApproved {
		return model.RoleReviewer
	}
	return model.RoleSigner
}

func cloneContract(c model.Contract) model.Contract {
	out := c
	out.ReviewerToken = cloneStringPtr(c.ReviewerToken)
	out.ReviewerTokenExpiresAt = cloneTimePtr(c.ReviewerTokenExpiresAt)
	out.SigningToken = cloneStringPtr(c.SigningToken)
	out.SigningTokenExpiresAt = cloneTimePtr(c.SigningTokenExpiresAt)
	out.SentAt = cloneTimePtr(c.SentAt)
	out.ReviewedAt = cloneTimePtr(c.ReviewedAt)
	out.ViewedAt = cloneTimePtr(c.ViewedAt)
	out.SignedAt = cloneTimePtr(c.SignedAt)
	if c.Reviewer != nil {
		r := *c.Reviewer
		out.Reviewer = &r
	}
	if c.Terms.CustomTerms != nil {
		ct := make(map[string]string, len(c.Terms.CustomTerms))
		for k, v := range c.Terms.CustomTerms {
			ct[k] = v
		}
		out.Terms.CustomTerms = ct
	}
	return out
}

func cloneEvent(ev model.AuditEvent) model.AuditEvent {
	out := ev
	if ev.Metadata != nil {
		md := make(map[string]string, len(ev.Metadata))
		for k, v := range ev.Metadata {
			md[k] = v
		}
		out.Metadata = md
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
