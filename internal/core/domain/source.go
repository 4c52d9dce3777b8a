package domain

import "strings"

// Source represents a configured tracker source.
// Each source is an independent pipeline instance with its own pair of
// indices; concurrent sources share no state.
type Source struct {
	// Name identifies the source type (e.g., "bugzilla", "mbox").
	Name string

	// URL is the tracker base URL.
	URL string

	// Index is the enriched-tier index name.
	Index string

	// BatchSize bounds one detail-fetch request and one bulk write.
	BatchSize int

	// Detail selects how much is harvested: "list", "issue" or "change".
	Detail string
}

// RawIndex returns the raw-tier index name for this source.
func (s Source) RawIndex() string {
	return s.Index + "_raw"
}

// IndexName derives a search-engine index name from a tracker URL.
// Index names must be lower case; path separators are flattened.
func IndexName(prefix, trackerURL string) string {
	name := trackerURL
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	name = strings.TrimSuffix(name, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ToLower(prefix + "_" + name)
}
