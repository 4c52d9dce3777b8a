package domain

import "time"

// RawKind identifies the raw-tier payload families a source produces.
type RawKind string

const (
	// KindRecord is a full record payload (bug XML, pull request JSON, ...).
	KindRecord RawKind = "record"

	// KindChanges is a per-record change-history document.
	KindChanges RawKind = "changes"

	// KindListing is an id-listing page kept as an audit trail.
	KindListing RawKind = "listing"
)

// RawRecord is a verbatim payload fetched from a tracker.
// It is immutable once stored and only overwritten on re-fetch.
type RawRecord struct {
	// ID is the source-unique record identifier. It doubles as the
	// search-engine document id for both tiers.
	ID string

	// Kind classifies the payload within the raw tier.
	Kind RawKind

	// Payload is the verbatim bytes as fetched (XML, JSON, CSV, HTML).
	Payload []byte

	// FetchedAt is when the payload was retrieved.
	FetchedAt time.Time
}

// ChangeRecord is one field transition recovered from a record's
// change-history document. Records are ordered by document position,
// which is assumed chronological ascending.
type ChangeRecord struct {
	// ChangedBy is the actor as written in the history (identity-like string).
	ChangedBy string `json:"changed_by"`

	// Field is the normalised field name that changed.
	Field string `json:"field"`

	// OldValue is the value before the change.
	OldValue string `json:"removed"`

	// NewValue is the value after the change.
	NewValue string `json:"added"`

	// Timestamp is when the change was made.
	Timestamp time.Time `json:"date"`
}

// ListEntry is one element of a tracker id-listing page: a record id
// plus its change marker, in the source's natural change order.
type ListEntry struct {
	// ID is the record identifier.
	ID string

	// ChangedAt is the record's last-change marker. Two records may
	// legitimately share the same marker value.
	ChangedAt time.Time
}
