package bugzilla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListing(t *testing.T) {
	csv := `bug_id,"product","component","assigned_to","bug_status","resolution","short_desc","changeddate"
15,"Tools","Harvester","jdoe@example.org","NEW","---","Crash on startup","2013-06-25 11:55:46"
16,"Tools","Harvester","asmith@example.org","ASSIGNED","---","Slow listing, very slow","2013-06-25 11:55:46"
17,"Tools","Parser","jdoe@example.org","RESOLVED","FIXED","Bad cell count","2013-06-26 08:00:00"
`

	entries, err := ParseListing([]byte(csv))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "15", entries[0].ID)
	assert.Equal(t, time.Date(2013, 6, 25, 11, 55, 46, 0, time.UTC), entries[0].ChangedAt)

	// Two records legitimately share a change marker.
	assert.Equal(t, entries[0].ChangedAt, entries[1].ChangedAt)

	// The marker is the last column even when earlier fields contain commas.
	assert.Equal(t, "16", entries[1].ID)
	assert.Equal(t, time.Date(2013, 6, 26, 8, 0, 0, 0, time.UTC), entries[2].ChangedAt)
}

func TestParseListing_MalformedLineSkipped(t *testing.T) {
	csv := `bug_id,"product","changeddate"
15,"Tools","2013-06-25 11:55:46"
16,"Tools","exception rendering date"
17,"Tools","2013-06-26 08:00:00"
`

	entries, err := ParseListing([]byte(csv))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "15", entries[0].ID)
	assert.Equal(t, "17", entries[1].ID)
}

func TestParseListing_Empty(t *testing.T) {
	entries, err := ParseListing([]byte("bug_id,\"changeddate\"\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseTime_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2013-06-25 11:55:46", time.Date(2013, 6, 25, 11, 55, 46, 0, time.UTC)},
		{"2013-06-25 11:55:46 PDT", time.Date(2013, 6, 25, 11, 55, 46, 0, time.UTC)},
		{"2013-06-25T11:55:46", time.Date(2013, 6, 25, 11, 55, 46, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "zone information is dropped for the naive profile")
		})
	}

	_, err := parseTime("not a date")
	assert.Error(t, err)
}
