package domain

import "time"

// TimeProfile is the ISO-8601-without-timezone layout used for every
// date written to the search engine. The engine's date auto-detection
// expects this exact profile.
const TimeProfile = "2006-01-02T15:04:05"

// TimeQuantum is the source's minimum time resolution. The next fetch
// lower bound is the last marker plus one quantum so the boundary
// record is not re-listed forever; equal-marker records are instead
// de-duplicated on arrival.
const TimeQuantum = time.Second

// Cursor is the incremental-sync watermark for one source: the most
// recent change marker among all currently indexed enriched records.
// A nil Value signals "no cursor yet" and triggers a full sync.
type Cursor struct {
	Value *time.Time
}

// IsZero reports whether no watermark has been established.
func (c Cursor) IsZero() bool {
	return c.Value == nil
}

// Advance moves the cursor forward to t. The cursor never regresses:
// an older or equal t is ignored.
func (c *Cursor) Advance(t time.Time) bool {
	if c.Value != nil && !t.After(*c.Value) {
		return false
	}
	v := t
	c.Value = &v
	return true
}

// NextLowerBound returns the inclusive query lower bound for the next
// fetch page: the watermark plus one time quantum, or nil for full sync.
func (c Cursor) NextLowerBound() *time.Time {
	if c.Value == nil {
		return nil
	}
	t := c.Value.Add(TimeQuantum)
	return &t
}

// String renders the watermark in the engine's time profile.
func (c Cursor) String() string {
	if c.Value == nil {
		return ""
	}
	return c.Value.Format(TimeProfile)
}
