// Package storage persists binary documents (PDFs, signature images) and
// produces time-limited retrieval URLs for them.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Gateway is the object storage abstraction used by the lifecycle engine.
type Gateway interface {
	// Put stores an object under path, overwriting any previous version.
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Get retrieves the object bytes.
	Get(ctx context.Context, path string) ([]byte, error)
	// PresignedURL returns a time-limited retrieval URL for the object.
	PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Object paths are scoped to the owning organization and contract so a
// leaked path never crosses tenants.

// UnsignedPDFPath returns the storage path of the unsigned baseline PDF.
func UnsignedPDFPath(orgID, contractID string) string {
	return fmt.Sprintf("orgs/%s/contracts/%s/unsigned.pdf", orgID, contractID)
}

// SignedPDFPath returns the storage path of the signed PDF.
func SignedPDFPath(orgID, contractID string) string {
	return fmt.Sprintf("orgs/%s/contracts/%s/signed.pdf", orgID, contractID)
}

// SignatureImagePath returns the storage path of the raster signature.
func SignatureImagePath(orgID, contractID string) string {
	return fmt.Sprintf("orgs/%s/contracts/%s/signature.png", orgID, contractID)
}
