// Package document contains the integrity pipeline: content digests over
// raw document bytes and the deterministic PDF renderer.
package document

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the SHA-256 hex digest of raw document bytes.
// Byte-identical documents always produce identical digests, which is what
// lets any party verify a delivered file against the stored digest.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
