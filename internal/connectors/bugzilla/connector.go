package bugzilla

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// MaxIDsPerRequest bounds one show_bug.cgi request so URLs and
// responses stay manageable.
const MaxIDsPerRequest = 200

// DefaultPageSize bounds one buglist.cgi listing page when the source
// does not configure one.
const DefaultPageSize = 10000

// Ensure Connector implements the interface.
var _ driven.Tracker = (*Connector)(nil)

// Connector drives paginated retrieval from a Bugzilla server.
type Connector struct {
	client   *Client
	rawStore driven.RawStore
	pageSize int
}

// New creates a bugzilla connector. Listing pages are persisted to the
// raw store as an audit trail and capped at pageSize entries; the
// driver re-lists from the advanced cursor until the pages run out.
func New(client *Client, rawStore driven.RawStore, pageSize int) *Connector {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Connector{client: client, rawStore: rawStore, pageSize: pageSize}
}

// Name returns the connector type identifier.
func (c *Connector) Name() string {
	return Name
}

// Origin returns the tracker base URL.
func (c *Connector) Origin() string {
	return c.client.Origin()
}

// ListIDs fetches one listing page lower-bounded by from, in ascending
// changeddate order. The raw CSV page is stored before parsing.
func (c *Connector) ListIDs(ctx context.Context, from *time.Time) ([]domain.ListEntry, error) {
	version, err := c.client.Version(ctx)
	if err != nil {
		return nil, err
	}

	url := c.client.listingURL(from, version, c.pageSize)
	logger.Info("bugzilla: getting issues list from %s", url)

	start := time.Now()
	payload, err := c.client.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("listing fetch: %w", err)
	}
	metrics.ObserveList(time.Since(start).Seconds())

	entries, err := ParseListing(payload)
	if err != nil {
		return nil, err
	}

	if len(entries) > 0 {
		last := entries[len(entries)-1].ChangedAt.Format(domain.TimeProfile)
		if err := c.rawStore.Put(ctx, domain.KindListing, last, payload); err != nil {
			return nil, fmt.Errorf("storing listing page: %w", err)
		}
	}

	metrics.IDsListed(len(entries))
	return entries, nil
}

// FetchRecords retrieves full bug payloads for a set of ids, chunking
// requests at MaxIDsPerRequest. Each bug's verbatim XML is returned as
// one raw record.
func (c *Connector) FetchRecords(ctx context.Context, ids []string) ([]domain.RawRecord, error) {
	records := make([]domain.RawRecord, 0, len(ids))

	for start := 0; start < len(ids); start += MaxIDsPerRequest {
		end := start + MaxIDsPerRequest
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		logger.Info("bugzilla: getting %d issues data", len(chunk))
		began := time.Now()
		payload, err := c.client.get(ctx, c.client.detailURL(chunk))
		if err != nil {
			return nil, fmt.Errorf("detail fetch: %w", err)
		}
		metrics.ObserveFetch(time.Since(began).Seconds())

		bugs, err := ParseBugs(payload)
		if err != nil {
			return nil, err
		}

		fetchedAt := time.Now().UTC()
		for i := range bugs {
			if bugs[i].ID == "" {
				logger.Warn("bugzilla: skipping bug without bug_id in batch %s..%s", chunk[0], chunk[len(chunk)-1])
				continue
			}
			records = append(records, domain.RawRecord{
				ID:        bugs[i].ID,
				Kind:      domain.KindRecord,
				Payload:   bugs[i].Verbatim(),
				FetchedAt: fetchedAt,
			})
		}
	}

	metrics.RecordsFetched(len(records))
	return records, nil
}
