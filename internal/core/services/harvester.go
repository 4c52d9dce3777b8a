package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// Ensure Harvester implements the interface.
var _ driving.Harvester = (*Harvester)(nil)

// Harvester drives one source through the harvest cycle: compute the
// cursor from the enriched index, list changed ids, fetch and cache
// the raw payloads, enrich and bulk-index, advance the cursor, repeat
// until the source reports nothing new.
//
// The cursor lives in the index, so a rerun after any failure resumes
// from the last fully indexed watermark. Delivery is at-least-once;
// writes are idempotent overwrites by record id.
type Harvester struct {
	source   domain.Source
	tracker  driven.Tracker
	enricher driven.Enricher
	rawStore driven.RawStore
	indexer  driven.BulkIndexer
	cursors  driven.CursorSource
}

// NewHarvester creates a harvester for one source.
func NewHarvester(
	source domain.Source,
	tracker driven.Tracker,
	enricher driven.Enricher,
	rawStore driven.RawStore,
	indexer driven.BulkIndexer,
	cursors driven.CursorSource,
) *Harvester {
	return &Harvester{
		source:   source,
		tracker:  tracker,
		enricher: enricher,
		rawStore: rawStore,
		indexer:  indexer,
		cursors:  cursors,
	}
}

// Run executes the harvest cycle until the fixed point: an effectively
// empty id page arriving twice with no cursor advance in between.
// Fetch and index errors abort the run; the trailing flush is issued
// on the success path only.
func (h *Harvester) Run(ctx context.Context) (driving.HarvestStats, error) {
	var stats driving.HarvestStats

	cursor, err := h.computeCursor(ctx)
	if err != nil {
		return stats, err
	}
	if cursor.IsZero() {
		logger.Info("%s: no cursor, starting full sync", h.tracker.Name())
	} else {
		logger.Info("%s: resuming from %s", h.tracker.Name(), cursor)
	}

	// Ids already processed in this run. Boundary records shared
	// between consecutive pages are skipped on arrival.
	seen := make(map[string]struct{})
	emptyPages := 0

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entries, err := h.tracker.ListIDs(ctx, cursor.NextLowerBound())
		if err != nil {
			return stats, fmt.Errorf("listing ids: %w", err)
		}
		stats.IDsListed += len(entries)
		stats.Cycles++

		fresh := make([]string, 0, len(entries))
		for _, entry := range entries {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			fresh = append(fresh, entry.ID)
		}

		advanced := false
		for _, entry := range entries {
			if cursor.Advance(entry.ChangedAt) {
				advanced = true
			}
		}

		if len(fresh) == 0 {
			if advanced {
				emptyPages = 0
				continue
			}
			emptyPages++
			if emptyPages >= 2 {
				break
			}
			continue
		}
		emptyPages = 0

		logger.Debug("%s: %d new ids this page", h.tracker.Name(), len(fresh))
		if err := h.processBatches(ctx, fresh, &stats); err != nil {
			return stats, err
		}
	}

	// Trailing flush, issued even when the last batch was empty.
	if err := h.indexer.Flush(ctx, h.source.Index); err != nil {
		return stats, fmt.Errorf("flushing %s: %w", h.source.Index, err)
	}

	stats.Cursor = cursor.String()
	logger.Info("%s: harvest done, %d docs indexed, cursor %s",
		h.tracker.Name(), stats.DocsIndexed, stats.Cursor)
	return stats, nil
}

// computeCursor reads the watermark from the enriched index. A missing
// index or empty field means full sync.
func (h *Harvester) computeCursor(ctx context.Context) (domain.Cursor, error) {
	last, err := h.cursors.LastUpdate(ctx, h.source.Index, h.enricher.FieldDate())
	if err != nil {
		return domain.Cursor{}, fmt.Errorf("computing cursor for %s: %w", h.source.Index, err)
	}
	return domain.Cursor{Value: last}, nil
}

// processBatches fetches, caches, enriches and indexes a page of ids
// in batches of the source's batch size.
func (h *Harvester) processBatches(ctx context.Context, ids []string, stats *driving.HarvestStats) error {
	size := h.source.BatchSize
	if size <= 0 {
		size = len(ids)
	}

	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}

		records, err := h.tracker.FetchRecords(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("fetching records: %w", err)
		}
		stats.RecordsFetched += len(records)

		for _, record := range records {
			if err := h.process(ctx, record); err != nil {
				return err
			}
			stats.DocsIndexed++
		}

		if err := h.indexer.Flush(ctx, h.source.Index); err != nil {
			return fmt.Errorf("flushing %s: %w", h.source.Index, err)
		}
	}
	return nil
}

// process writes one record to the raw tier and its enrichment to the
// enriched index.
func (h *Harvester) process(ctx context.Context, record domain.RawRecord) error {
	if err := h.rawStore.Put(ctx, record.Kind, record.ID, record.Payload); err != nil {
		return fmt.Errorf("storing raw %s: %w", record.ID, err)
	}

	rich, err := h.enricher.RichItem(ctx, record)
	if err != nil {
		return fmt.Errorf("enriching %s: %w", record.ID, err)
	}

	if err := h.indexer.Add(ctx, h.source.Index, driven.BulkDoc{ID: record.ID, Body: rich}); err != nil {
		return fmt.Errorf("indexing %s: %w", record.ID, err)
	}
	return nil
}
