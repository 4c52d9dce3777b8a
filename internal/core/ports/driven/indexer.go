package driven

import (
	"context"
	"fmt"
	"time"
)

// BulkDoc is one document headed for the search engine.
type BulkDoc struct {
	// ID is the document id; writes are idempotent overwrites by id.
	ID string

	// Body is the JSON-serialisable document.
	Body any
}

// BulkIndexer buffers documents per index and writes them in bulk
// batches. A batch is flushed when it reaches the configured size and
// unconditionally at stream end, including a zero-size trailing batch.
type BulkIndexer interface {
	// Add buffers one document, flushing first if the buffer is full.
	Add(ctx context.Context, index string, doc BulkDoc) error

	// Flush writes the remaining partial batch. Always issues the
	// write, even when the buffer is empty.
	Flush(ctx context.Context, index string) error
}

// CursorSource answers the last-synchronised watermark question from
// the enriched index. An empty index or absent field is the expected
// first-run condition, not an error.
type CursorSource interface {
	// LastUpdate returns the maximum value of the given date field
	// over the index, or nil when no cursor exists yet. Only
	// transport and index errors propagate.
	LastUpdate(ctx context.Context, index, field string) (*time.Time, error)
}

// BulkError reports a rejected bulk write with the batch's id range.
// The driver does not retry: it surfaces the failure and halts the
// cycle so the next run resumes from the last advanced cursor.
type BulkError struct {
	Index      string
	StatusCode int
	FirstID    string
	LastID     string
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk write to %s rejected (status %d, ids %s..%s)",
		e.Index, e.StatusCode, e.FirstID, e.LastID)
}
