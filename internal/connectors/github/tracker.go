package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// Name is the connector type identifier.
const Name = "github"

// pullLister is the slice of the API client the tracker uses.
type pullLister interface {
	ListPulls(ctx context.Context, owner, repo string, page, perPage int) ([]*gh.PullRequest, bool, error)
}

// Ensure Tracker implements the interface.
var _ driven.Tracker = (*Tracker)(nil)

// Tracker lists pull requests of one repository. The listing carries
// the full payloads, so FetchRecords serves from the listing pass.
type Tracker struct {
	client   pullLister
	owner    string
	repo     string
	pageSize int

	pulls map[string][]byte
}

// NewTracker creates a tracker for one repository. pageSize bounds one
// listing page; the client clamps it to the API's maximum.
func NewTracker(client pullLister, owner, repo string, pageSize int) *Tracker {
	return &Tracker{client: client, owner: owner, repo: repo, pageSize: pageSize, pulls: make(map[string][]byte)}
}

// Name returns the connector type.
func (t *Tracker) Name() string {
	return Name
}

// Origin identifies the repository in stored records.
func (t *Tracker) Origin() string {
	return "https://github.com/" + t.owner + "/" + t.repo
}

// ListIDs pages through the repository's pull requests, ordered by
// update time ascending, and returns those at or after the lower
// bound, keyed by PR number.
func (t *Tracker) ListIDs(ctx context.Context, from *time.Time) ([]domain.ListEntry, error) {
	start := time.Now()
	defer func() { metrics.ObserveList(time.Since(start).Seconds()) }()

	var entries []domain.ListEntry
	page := 1

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pulls, more, err := t.client.ListPulls(ctx, t.owner, t.repo, page, t.pageSize)
		if err != nil {
			return nil, err
		}

		for _, pull := range pulls {
			updated := pull.GetUpdatedAt().Time.UTC()
			if from != nil && updated.Before(*from) {
				continue
			}

			id := strconv.Itoa(pull.GetNumber())
			payload, err := json.Marshal(pull)
			if err != nil {
				logger.Warn("github: skipping unencodable pull %s: %v", id, err)
				continue
			}

			t.pulls[id] = payload
			entries = append(entries, domain.ListEntry{ID: id, ChangedAt: updated})
		}

		if !more {
			break
		}
		page++
	}

	metrics.IDsListed(len(entries))
	return entries, nil
}

// FetchRecords returns the pull request payloads for the given ids,
// from the current run's listing pass.
func (t *Tracker) FetchRecords(_ context.Context, ids []string) ([]domain.RawRecord, error) {
	fetchedAt := time.Now().UTC()
	records := make([]domain.RawRecord, 0, len(ids))
	for _, id := range ids {
		payload, ok := t.pulls[id]
		if !ok {
			return nil, fmt.Errorf("pull %s not in the listing pass: %w", id, domain.ErrNotFound)
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
