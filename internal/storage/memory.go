package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryGateway is an in-memory Gateway for testing.
type MemoryGateway struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// FailPuts makes every Put fail; used to exercise dependency-failure
	// paths in tests.
	FailPuts bool
}

type memObject struct {
	data        []byte
	contentType string
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{objects: make(map[string]memObject)}
}

// Put stores an object under path.
func (g *MemoryGateway) Put(_ context.Context, path string, data []byte, contentType string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailPuts {
		return fmt.Errorf("storage: put %s: simulated failure", path)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	g.objects[path] = memObject{data: cp, contentType: contentType}
	return nil
}

// Get retrieves the object bytes.
func (g *MemoryGateway) Get(_ context.Context, path string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	obj, ok := g.objects[path]
	if !ok {
		return nil, fmt.Errorf("storage: get %s: not found", path)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// PresignedURL returns a synthetic, expiring-looking URL.
func (g *MemoryGateway) PresignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.objects[path]; !ok {
		return "", fmt.Errorf("storage: presign %s: not found", path)
	}
	return fmt.Sprintf("memory://%s?expires_in=%ds", path, int(ttl.Seconds())), nil
}

// Len reports how many objects are stored; test helper.
func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}
