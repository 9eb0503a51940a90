// Package token issues the single-use bearer tokens that grant anonymous
// parties time-limited access to one contract.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Length is the encoded token length: 32 random bytes, hex-encoded.
const Length = 64

// DefaultTTL is the issuance-to-expiry window.
const DefaultTTL = 30 * 24 * time.Hour

// Issuer generates cryptographically random bearer tokens. The randomness
// source and clock are injectable for tests; production code uses
// crypto/rand and time.Now.
type Issuer struct {
	ttl  time.Duration
	rand io.Reader
	now  func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithRand overrides the randomness source.
func WithRand(r io.Reader) Option { return func(i *Issuer) { i.rand = r } }

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option { return func(i *Issuer) { i.now = now } }

// NewIssuer creates an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(ttl time.Duration, opts ...Option) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{ttl: ttl, rand: rand.Reader, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a new opaque bearer token and its expiry timestamp.
func (i *Issuer) Issue() (value string, expiresAt time.Time, err error) {
	b := make([]byte, Length/2)
	if _, err := io.ReadFull(i.rand, b); err != nil {
		return "", time.Time{}, fmt.Errorf("token: read randomness: %w", err)
	}
	return hex.EncodeToString(b), i.now().UTC().Add(i.ttl), nil
}

// Digest returns the SHA-256 hex digest of a token value. Consumed tokens
// are recorded in the audit trail by digest only, never by raw value.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Equal compares two token values in constant time. Lookup is exact match;
// no partial or prefix matching is permitted.
func Equal(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
