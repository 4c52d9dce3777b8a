package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// fakeTracker serves listing pages keyed by the query lower bound and
// records payloads per id.
type fakeTracker struct {
	records map[string]time.Time
	// sticky is re-listed on every page, like a boundary record whose
	// marker equals the page cutoff.
	sticky  string
	listErr error
	fetched [][]string
}

func (f *fakeTracker) Name() string   { return "fake" }
func (f *fakeTracker) Origin() string { return "http://fake.example.org" }

func (f *fakeTracker) ListIDs(_ context.Context, from *time.Time) ([]domain.ListEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var entries []domain.ListEntry
	for id, changed := range f.records {
		// Inclusive lower bound, like a chfieldfrom query.
		if from == nil || !changed.Before(*from) || id == f.sticky {
			entries = append(entries, domain.ListEntry{ID: id, ChangedAt: changed})
		}
	}
	return entries, nil
}

func (f *fakeTracker) FetchRecords(_ context.Context, ids []string) ([]domain.RawRecord, error) {
	f.fetched = append(f.fetched, ids)
	records := make([]domain.RawRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, domain.RawRecord{
			ID:      id,
			Kind:    domain.KindRecord,
			Payload: []byte("<bug>" + id + "</bug>"),
		})
	}
	return records, nil
}

// fakeEnricher wraps records into trivial documents.
type fakeEnricher struct {
	richErr error
}

func (f *fakeEnricher) FieldDate() string { return "changeddate" }

func (f *fakeEnricher) UniqueID(raw domain.RawRecord) (string, error) { return raw.ID, nil }

func (f *fakeEnricher) RichItem(_ context.Context, raw domain.RawRecord) (any, error) {
	if f.richErr != nil {
		return nil, f.richErr
	}
	return map[string]string{"id": raw.ID}, nil
}

func (f *fakeEnricher) Identities(domain.RawRecord) ([]domain.Identity, error) { return nil, nil }

func (f *fakeEnricher) Mappings() map[string]string { return nil }

// fakeIndexer records adds and flushes and serves the cursor from the
// docs it has accepted, like the real enriched index does.
type fakeIndexer struct {
	docs    map[string]time.Time
	added   []string
	flushes int
	addErr  error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{docs: make(map[string]time.Time)}
}

func (f *fakeIndexer) Add(_ context.Context, _ string, doc driven.BulkDoc) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, doc.ID)
	return nil
}

func (f *fakeIndexer) Flush(context.Context, string) error {
	f.flushes++
	return nil
}

func (f *fakeIndexer) LastUpdate(context.Context, string, string) (*time.Time, error) {
	var max *time.Time
	for _, t := range f.docs {
		if max == nil || t.After(*max) {
			v := t
			max = &v
		}
	}
	return max, nil
}

func date(day, hour int) time.Time {
	return time.Date(2020, 1, day, hour, 0, 0, 0, time.UTC)
}

func newTestHarvester(tracker *fakeTracker, indexer *fakeIndexer) (*Harvester, *memory.RawStore) {
	store := memory.NewRawStore()
	source := domain.Source{Name: "fake", Index: "fake_index", BatchSize: 2}
	h := NewHarvester(source, tracker, &fakeEnricher{}, store, indexer, indexer)
	return h, store
}

func TestHarvester_FullSync(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{
		"1": date(1, 10),
		"2": date(2, 11),
		"3": date(3, 12),
	}}
	indexer := newFakeIndexer()
	h, store := newTestHarvester(tracker, indexer)

	stats, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.DocsIndexed)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, indexer.added)
	assert.Equal(t, "2020-01-03T12:00:00", stats.Cursor)

	for _, id := range []string{"1", "2", "3"} {
		assert.True(t, store.Has(context.Background(), domain.KindRecord, id),
			"raw payload cached for %s", id)
	}
}

func TestHarvester_IncrementalSkipsIndexed(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{
		"1": date(1, 10),
		"2": date(2, 11),
	}}
	indexer := newFakeIndexer()
	// Record 1 is already indexed; the cursor sits on its marker.
	indexer.docs["1"] = date(1, 10)
	h, _ := newTestHarvester(tracker, indexer)

	stats, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, indexer.added, "only the record past the watermark is processed")
	assert.Equal(t, 1, stats.DocsIndexed)
	assert.Equal(t, "2020-01-02T11:00:00", stats.Cursor)
}

func TestHarvester_SecondRunIsIdempotent(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{
		"1": date(1, 10),
		"2": date(2, 11),
	}}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	stats, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.DocsIndexed)

	// The enriched index now holds both docs; rerun from its cursor.
	for _, id := range indexer.added {
		indexer.docs[id] = tracker.records[id]
	}
	indexer.added = nil

	stats, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.DocsIndexed, "nothing changed upstream, nothing re-indexed")
	assert.Empty(t, indexer.added)
}

func TestHarvester_BoundaryRecordDeduplicated(t *testing.T) {
	// Record 1 sits on the page boundary and is re-listed on every
	// page; the per-run seen set keeps it processed once.
	tracker := &fakeTracker{
		records: map[string]time.Time{
			"1": date(1, 10),
			"2": date(2, 11),
		},
		sticky: "1",
	}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	stats, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DocsIndexed)
	assert.ElementsMatch(t, []string{"1", "2"}, indexer.added,
		"the boundary record is indexed exactly once per run")
}

func TestHarvester_BatchSizeSplitsFetches(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{
		"1": date(1, 10), "2": date(1, 11), "3": date(1, 12),
	}}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	_, err := h.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, tracker.fetched, 2, "3 ids at batch size 2 take two fetches")
	assert.Len(t, tracker.fetched[0], 2)
	assert.Len(t, tracker.fetched[1], 1)
}

func TestHarvester_TrailingFlushAlwaysIssued(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{}}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	stats, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.DocsIndexed)
	assert.Equal(t, 1, indexer.flushes, "the empty run still issues the trailing flush")
}

func TestHarvester_ListErrorAborts(t *testing.T) {
	tracker := &fakeTracker{listErr: errors.New("tracker down")}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing ids")
}

func TestHarvester_IndexErrorAborts(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{"1": date(1, 10)}}
	indexer := newFakeIndexer()
	indexer.addErr = &driven.BulkError{Index: "fake_index", StatusCode: 500, FirstID: "1", LastID: "1"}
	h, _ := newTestHarvester(tracker, indexer)

	_, err := h.Run(context.Background())
	var bulkErr *driven.BulkError
	require.ErrorAs(t, err, &bulkErr)
}

func TestHarvester_ContextCancellation(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{"1": date(1, 10)}}
	indexer := newFakeIndexer()
	h, _ := newTestHarvester(tracker, indexer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarvester_EnrichErrorNamesRecord(t *testing.T) {
	tracker := &fakeTracker{records: map[string]time.Time{"7": date(1, 10)}}
	indexer := newFakeIndexer()
	store := memory.NewRawStore()
	source := domain.Source{Name: "fake", Index: "fake_index", BatchSize: 2}
	h := NewHarvester(source, tracker, &fakeEnricher{richErr: fmt.Errorf("bad payload")}, store, indexer, indexer)

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enriching 7")
}
