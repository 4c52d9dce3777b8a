package driving

import "context"

// HarvestStats summarises one pipeline run.
type HarvestStats struct {
	// IDsListed counts listing entries seen, including boundary
	// duplicates that were de-duplicated on arrival.
	IDsListed int

	// RecordsFetched counts full records retrieved.
	RecordsFetched int

	// DocsIndexed counts documents handed to the bulk indexer across
	// both tiers.
	DocsIndexed int

	// Cycles counts fetch cycles until the fixed point was reached.
	Cycles int

	// Cursor is the final watermark in the engine's time profile,
	// empty when the index stayed empty.
	Cursor string
}

// Harvester runs the incremental harvest pipeline for one source
// until no new ids remain. A failed run returns a non-nil error; a
// rerun is always safe because the cursor lives in the index.
type Harvester interface {
	Run(ctx context.Context) (HarvestStats, error)
}
