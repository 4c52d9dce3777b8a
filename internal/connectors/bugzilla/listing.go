package bugzilla

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// listingTimeLayouts are the changeddate renderings seen across
// Bugzilla deployments. Tried in order.
var listingTimeLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseTime parses a Bugzilla timestamp, dropping any zone so all
// stored dates share the engine's naive-time profile.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range listingTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// ParseListing decodes a buglist.cgi CSV page into (id, changeddate)
// pairs in the page's order. The first row is the header. The id is
// the first column and the change marker the last, matching every
// Bugzilla CSV column set. Malformed lines are skipped with a
// diagnostic, not fatal to the page.
func ParseListing(payload []byte) ([]domain.ListEntry, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1

	entries := make([]domain.ListEntry, 0)
	first := true
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("bugzilla: skipping malformed CSV line: %v", err)
			continue
		}
		if first {
			first = false
			continue
		}
		if len(fields) < 2 {
			logger.Warn("bugzilla: skipping short CSV line: %q", strings.Join(fields, ","))
			continue
		}

		id := strings.TrimSpace(fields[0])
		marker := strings.Trim(strings.TrimSpace(fields[len(fields)-1]), `"`)
		changed, err := parseTime(marker)
		if err != nil {
			logger.Warn("bugzilla: skipping listing line for bug %s: %v", id, err)
			continue
		}

		entries = append(entries, domain.ListEntry{ID: id, ChangedAt: changed})
	}
	return entries, nil
}
