// Package memory provides in-memory store implementations, used in
// tests and as the per-run cache when no durable cache is configured.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure RawStore implements the interface.
var _ driven.RawStore = (*RawStore)(nil)

// RawStore is an in-memory implementation of driven.RawStore.
// Append-only keyed by (kind, id); safe for concurrent use.
type RawStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewRawStore creates a new in-memory raw store.
func NewRawStore() *RawStore {
	return &RawStore{payloads: make(map[string][]byte)}
}

// Has reports whether a payload is cached.
func (s *RawStore) Has(_ context.Context, kind domain.RawKind, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payloads[key(kind, id)]
	return ok
}

// Get returns the cached payload, or domain.ErrNotFound.
func (s *RawStore) Get(_ context.Context, kind domain.RawKind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.payloads[key(kind, id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores or overwrites a payload.
func (s *RawStore) Put(_ context.Context, kind domain.RawKind, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.payloads[key(kind, id)] = stored
	return nil
}

// Len returns the number of cached payloads. Test helper.
func (s *RawStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

func key(kind domain.RawKind, id string) string {
	return string(kind) + ":" + id
}
