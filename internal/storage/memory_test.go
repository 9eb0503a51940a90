package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryGateway_roundTrip(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	path := UnsignedPDFPath("org-1", "c-1")

	if err := g.Put(ctx, path, []byte("%PDF-stub"), "application/pdf"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data, err := g.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "%PDF-stub" {
		t.Errorf("Get() = %q", data)
	}
}

func TestMemoryGateway_getMissing(t *testing.T) {
	g := NewMemoryGateway()
	if _, err := g.Get(context.Background(), "nope"); err == nil {
		t.Error("Get() of a missing object should fail")
	}
}

func TestMemoryGateway_presignedURL(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	path := SignedPDFPath("org-1", "c-1")
	if err := g.Put(ctx, path, []byte("x"), "application/pdf"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	u, err := g.PresignedURL(ctx, path, time.Hour)
	if err != nil {
		t.Fatalf("PresignedURL() error = %v", err)
	}
	if !strings.Contains(u, path) || !strings.Contains(u, "3600") {
		t.Errorf("unexpected URL %q", u)
	}
}

func TestMemoryGateway_failPuts(t *testing.T) {
	g := NewMemoryGateway()
	g.FailPuts = true
	if err := g.Put(context.Background(), "p", []byte("x"), "t"); err == nil {
		t.Error("Put() should fail when FailPuts is set")
	}
}

func TestPaths_orgScoped(t *testing.T) {
	if got, want := SignatureImagePath("org-9", "c-3"), "orgs/org-9/contracts/c-3/signature.png"; got != want {
		t.Errorf("SignatureImagePath = %q, want %q", got, want)
	}
}
