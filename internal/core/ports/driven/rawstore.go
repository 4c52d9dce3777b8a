package driven

import (
	"context"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// RawStore persists verbatim source payloads keyed by (kind, id) and
// answers presence checks so expensive per-record fetches are skipped
// on cache hits. Entries are never invalidated automatically: change
// histories of closed records are treated as immutable, staleness is
// an accepted trade-off.
type RawStore interface {
	// Has reports whether a payload is already cached.
	Has(ctx context.Context, kind domain.RawKind, id string) bool

	// Get returns the cached payload, or domain.ErrNotFound.
	Get(ctx context.Context, kind domain.RawKind, id string) ([]byte, error)

	// Put stores or overwrites a payload.
	Put(ctx context.Context, kind domain.RawKind, id string, data []byte) error
}
