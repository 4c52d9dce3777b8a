package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// DefaultBatchSize is the flush threshold when none is configured.
const DefaultBatchSize = 1000

// Ensure Writer implements the interface.
var _ driven.BulkIndexer = (*Writer)(nil)

// Writer buffers documents per index and writes them with the bulk
// API. Writes are idempotent overwrites by document id.
type Writer struct {
	client *Client
	size   int

	mu  sync.Mutex
	buf map[string][]driven.BulkDoc
}

// NewWriter creates a bulk writer flushing every batchSize documents.
func NewWriter(client *Client, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{
		client: client,
		size:   batchSize,
		buf:    make(map[string][]driven.BulkDoc),
	}
}

// Add buffers one document, flushing the index's batch first when it
// is full.
func (w *Writer) Add(ctx context.Context, index string, doc driven.BulkDoc) error {
	w.mu.Lock()
	w.buf[index] = append(w.buf[index], doc)
	full := len(w.buf[index]) >= w.size
	w.mu.Unlock()

	if full {
		return w.Flush(ctx, index)
	}
	return nil
}

// Flush writes the index's buffered batch. The write is issued even
// for an empty buffer; the engine's answer to an empty batch is
// ignored.
func (w *Writer) Flush(ctx context.Context, index string) error {
	w.mu.Lock()
	docs := w.buf[index]
	w.buf[index] = nil
	w.mu.Unlock()

	return w.write(ctx, index, docs)
}

// write sends one bulk batch. A rejected batch whose payload carries
// invalid UTF-8 is re-encoded lossily and retried once; any other
// rejection surfaces as a BulkError with the batch's id range.
func (w *Writer) write(ctx context.Context, index string, docs []driven.BulkDoc) error {
	body, err := ndjson(docs)
	if err != nil {
		return err
	}

	start := time.Now()
	ok, status, err := w.send(ctx, index, body)
	metrics.ObserveWrite(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if !ok && len(docs) > 0 && !utf8.Valid(body) {
		logger.Warn("elastic: bulk to %s rejected, retrying with re-encoded payload", index)
		body = []byte(strings.ToValidUTF8(string(body), ""))
		ok, status, err = w.send(ctx, index, body)
		if err != nil {
			return err
		}
	}

	if len(docs) == 0 {
		// Trailing empty write: issued for its side effect only.
		logger.Debug("elastic: empty bulk to %s (status %d)", index, status)
		return nil
	}
	if !ok {
		return &driven.BulkError{
			Index:      index,
			StatusCode: status,
			FirstID:    docs[0].ID,
			LastID:     docs[len(docs)-1].ID,
		}
	}

	metrics.BatchSent()
	metrics.DocsIndexed(len(docs))
	logger.Debug("elastic: wrote %d docs to %s", len(docs), index)
	return nil
}

// send performs one bulk request and reports whether the engine
// accepted every action.
func (w *Writer) send(ctx context.Context, index string, body []byte) (ok bool, status int, err error) {
	status, payload, err := w.client.do(ctx, http.MethodPost, "/"+index+"/_bulk", body, "application/x-ndjson")
	if err != nil {
		return false, 0, err
	}
	if status >= 300 {
		return false, status, nil
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			return false, status, fmt.Errorf("decoding bulk response from %s: %w", index, err)
		}
	}
	return !result.Errors, status, nil
}

// ndjson renders a batch as bulk actions: one index header and one
// document body per line.
func ndjson(docs []driven.BulkDoc) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range docs {
		header, err := json.Marshal(map[string]map[string]string{
			"index": {"_id": doc.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("encoding bulk header for %s: %w", doc.ID, err)
		}
		body, err := json.Marshal(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding doc %s: %w", doc.ID, err)
		}
		buf.Write(header)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
