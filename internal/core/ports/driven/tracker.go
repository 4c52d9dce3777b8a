package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// Tracker drives paginated retrieval from a remote record tracker.
// Each source type (bugzilla, github, ...) implements this interface.
type Tracker interface {
	// Name returns the tracker type identifier.
	Name() string

	// Origin returns the tracker base URL. Record ids embed the origin
	// namespace, which keeps concurrent source pipelines disjoint.
	Origin() string

	// ListIDs fetches one page of (id, change marker) pairs in the
	// source's ascending change order, lower-bounded by from. The
	// bound is inclusive: records sharing the boundary marker are
	// re-listed and must be de-duplicated on arrival by the caller.
	// A nil from means full sync. An empty page ends the cycle.
	ListIDs(ctx context.Context, from *time.Time) ([]domain.ListEntry, error)

	// FetchRecords retrieves the full payloads for a batch of ids.
	// Batches are bounded by the source's configured batch size to
	// keep request URLs and memory in check.
	FetchRecords(ctx context.Context, ids []string) ([]domain.RawRecord, error)
}
