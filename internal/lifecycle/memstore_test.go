package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lancerkit/esign/internal/token"
	"github.com/lancerkit/esign/model"
)

func storedContract(status model.ContractStatus) model.Contract {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	c := model.Contract{
		ID:             "c-9",
		ContractNumber: "AGR-2026-0009",
		Organization:   model.Organization{ID: "org-9", Name: "Org Nine"},
		Signer:         model.Party{Name: "Sam", Email: "sam@client.example"},
		Terms:          model.Terms{Tier: "basic", AnnualPrice: 9900, Currency: "EUR"},
		Status:         status,
		DocumentHash:   "deadbeef",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if model.StatusIn(status, []model.ContractStatus{model.StatusSent, model.StatusViewed}) {
		tok := "a1b2c3"
		exp := now.Add(24 * time.Hour)
		c.SigningToken, c.SigningTokenExpiresAt = &tok, &exp
	}
	return c
}

func TestMemoryStore_transitionCAS(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))

	next := c
	next.Status = model.StatusViewed

	_, err := s.Transition(ctx, next, []model.ContractStatus{model.StatusDraft}, nil, nil)
	require.True(t, model.IsCode(err, model.ErrInvalidState))

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, got.Status, "lost swap must not write")

	updated, err := s.Transition(ctx, next, []model.ContractStatus{model.StatusSent}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusViewed, updated.Status)
}

func TestMemoryStore_effectsErrorAborts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))

	next := c
	next.Status = model.StatusViewed
	ev := model.AuditEvent{ID: "ev-1", ContractID: c.ID, Type: model.EventViewed,
		Actor: "sam@client.example", DocumentHash: c.DocumentHash, CreatedAt: time.Now()}

	boom := errors.New("blob store down")
	_, err := s.Transition(ctx, next, []model.ContractStatus{model.StatusSent},
		[]model.AuditEvent{ev}, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, got.Status)
	trail, err := s.AuditTrail(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, trail)
}

func TestMemoryStore_rejectsInconsistentTokenState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))

	// signed must not carry a live token.
	next := c
	next.Status = model.StatusSigned
	next.SignedDocumentHash = "cafef00d"
	_, err := s.Transition(ctx, next, model.SignPredecessors, nil, nil)
	require.Error(t, err)
}

func TestMemoryStore_getByToken(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))

	lk, err := s.GetByToken(ctx, *c.SigningToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleSigner, lk.Role)
	require.False(t, lk.Consumed)
	require.Equal(t, c.ID, lk.Contract.ID)

	_, err = s.GetByToken(ctx, "nope")
	require.True(t, model.IsCode(err, model.ErrNotFound))
}

func TestMemoryStore_consumedTokenResolvesThroughDigest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))
	consumed := *c.SigningToken

	next := c
	next.Status = model.StatusSigned
	next.SigningToken, next.SigningTokenExpiresAt = nil, nil
	next.SignedDocumentHash = "cafef00d"
	ev := model.AuditEvent{
		ID: "ev-1", ContractID: c.ID, Type: model.EventSigned, Actor: "sam@client.example",
		DocumentHash: "cafef00d",
		Metadata:     map[string]string{model.MetaTokenDigest: token.Digest(consumed)},
		CreatedAt:    time.Now(),
	}
	_, err := s.Transition(ctx, next, model.SignPredecessors, []model.AuditEvent{ev}, nil)
	require.NoError(t, err)

	lk, err := s.GetByToken(ctx, consumed)
	require.NoError(t, err)
	require.True(t, lk.Consumed)
	require.Equal(t, model.RoleSigner, lk.Role)
	require.Equal(t, model.StatusSigned, lk.Contract.Status)
}

func TestMemoryStore_cloneIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := storedContract(model.StatusSent)
	require.NoError(t, s.Create(ctx, c))

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	*got.SigningToken = "mutated"
	got.Terms.Tier = "mutated"

	again, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "a1b2c3", *again.SigningToken)
	require.Equal(t, "basic", again.Terms.Tier)
}
