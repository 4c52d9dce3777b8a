package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// Name is the connector type identifier.
const Name = "twitter"

// searcher is the slice of the API client the tracker uses.
type searcher interface {
	Search(ctx context.Context, query string, maxID int64, count int) ([]json.RawMessage, error)
}

// Ensure Tracker implements the interface.
var _ driven.Tracker = (*Tracker)(nil)

// Tracker lists tweets matching one search query. Search pages carry
// the full payloads, so FetchRecords serves from the listing pass.
type Tracker struct {
	search   searcher
	query    string
	pageSize int

	tweets map[string][]byte
}

// NewTracker creates a tracker for one search query. pageSize bounds
// one search page, capped at the API's maximum.
func NewTracker(search searcher, query string, pageSize int) *Tracker {
	if pageSize <= 0 || pageSize > maxSearchPageSize {
		pageSize = maxSearchPageSize
	}
	return &Tracker{search: search, query: query, pageSize: pageSize, tweets: make(map[string][]byte)}
}

// Name returns the connector type.
func (t *Tracker) Name() string {
	return Name
}

// Origin identifies the query in stored records.
func (t *Tracker) Origin() string {
	return "https://twitter.com/search?q=" + t.query
}

// ListIDs pages backwards through the search results, newest first,
// until a tweet older than the lower bound or an empty page.
func (t *Tracker) ListIDs(ctx context.Context, from *time.Time) ([]domain.ListEntry, error) {
	start := time.Now()
	defer func() { metrics.ObserveList(time.Since(start).Seconds()) }()

	var entries []domain.ListEntry
	var maxID int64

	for {
		statuses, err := t.search.Search(ctx, t.query, maxID, t.pageSize)
		if err != nil {
			return nil, err
		}
		if len(statuses) == 0 {
			break
		}

		reachedBound := false
		for _, status := range statuses {
			var tweet Tweet
			if err := json.Unmarshal(status, &tweet); err != nil {
				logger.Warn("twitter: skipping undecodable status: %v", err)
				continue
			}

			created, err := ParseCreatedAt(tweet.CreatedAt)
			if err != nil {
				logger.Warn("twitter: skipping tweet %s: %v", tweet.IDStr, err)
				continue
			}
			if from != nil && created.Before(*from) {
				reachedBound = true
				break
			}

			id, err := strconv.ParseInt(tweet.IDStr, 10, 64)
			if err != nil {
				logger.Warn("twitter: skipping tweet with bad id %q", tweet.IDStr)
				continue
			}
			if maxID == 0 || id < maxID {
				maxID = id
			}

			t.tweets[tweet.IDStr] = append([]byte(nil), status...)
			entries = append(entries, domain.ListEntry{ID: tweet.IDStr, ChangedAt: created})
		}

		if reachedBound || len(statuses) < t.pageSize {
			break
		}
	}

	metrics.IDsListed(len(entries))
	return entries, nil
}

// FetchRecords returns the verbatim status payloads for the given
// ids, from the current run's search pass.
func (t *Tracker) FetchRecords(_ context.Context, ids []string) ([]domain.RawRecord, error) {
	fetchedAt := time.Now().UTC()
	records := make([]domain.RawRecord, 0, len(ids))
	for _, id := range ids {
		payload, ok := t.tweets[id]
		if !ok {
			return nil, fmt.Errorf("tweet %s not in the search pass: %w", id, domain.ErrNotFound)
		}
		records = append(records, domain.RawRecord{
			ID:        id,
			Kind:      domain.KindRecord,
			Payload:   payload,
			FetchedAt: fetchedAt,
		})
	}
	metrics.RecordsFetched(len(records))
	return records, nil
}
