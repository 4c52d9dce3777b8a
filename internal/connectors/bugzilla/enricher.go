package bugzilla

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// Name is the connector type identifier.
const Name = "bugzilla"

// DefaultProject is the bucket for records with no explicit project
// mapping.
const DefaultProject = "unknown"

// secondsPerDay converts update intervals to fractional days.
const secondsPerDay = 86400.0

// RichBug is the enriched-tier document for one bug: the selected raw
// fields plus the derived and identity fields. Optional values are
// nullable, not absent keys.
type RichBug struct {
	ID         string  `json:"id"`
	ShortDesc  string  `json:"short_desc"`
	Product    string  `json:"product"`
	Component  string  `json:"component"`
	Version    string  `json:"version"`
	Priority   string  `json:"priority"`
	Status     string  `json:"status"`
	Resolution string  `json:"resolution"`
	Reporter   *string `json:"reporter"`
	AssignedTo *string `json:"assigned_to"`

	ReporterName   *string `json:"reporter_name"`
	AssignedToName *string `json:"assigned_to_name"`
	ReporterUUID   *string `json:"reporter_uuid"`
	AssignedToUUID *string `json:"assigned_to_uuid"`

	CreatedOn   *string `json:"created_on"`
	UpdatedOn   *string `json:"updated_on"`
	ChangedDate *string `json:"changeddate"`

	NumberOfComments     int      `json:"number_of_comments"`
	TimeToLastUpdateDays *float64 `json:"time_to_last_update_days"`
	URL                  *string  `json:"url"`
	Project              string   `json:"project"`

	Changes []domain.ChangeRecord `json:"changes"`
}

// Ensure Enricher implements the interface.
var _ driven.Enricher = (*Enricher)(nil)

// Enricher builds enriched bug documents. Pure except for identifier
// derivation, project-mapping lookups and the cache-or-fetch of the
// change-history document.
type Enricher struct {
	client     *Client
	rawStore   driven.RawStore
	parser     *ChangesParser
	identities driven.IdentityService
	projects   driven.ProjectMapper
	detail     string
}

// NewEnricher creates a bugzilla enricher. detail selects how much is
// derived: "change" includes the parsed change history, "issue" stops
// at the bug fields.
func NewEnricher(
	client *Client,
	rawStore driven.RawStore,
	identities driven.IdentityService,
	projects driven.ProjectMapper,
	detail string,
) *Enricher {
	return &Enricher{
		client:     client,
		rawStore:   rawStore,
		parser:     NewChangesParser(),
		identities: identities,
		projects:   projects,
		detail:     detail,
	}
}

// FieldDate names the enriched date field the cursor is computed from.
func (e *Enricher) FieldDate() string {
	return "changeddate"
}

// UniqueID extracts the bug id from a raw record.
func (e *Enricher) UniqueID(raw domain.RawRecord) (string, error) {
	bug, err := ParseBug(raw.Payload)
	if err != nil {
		return "", err
	}
	return bug.ID, nil
}

// RichItem builds the enriched document for one raw bug.
func (e *Enricher) RichItem(ctx context.Context, raw domain.RawRecord) (any, error) {
	bug, err := ParseBug(raw.Payload)
	if err != nil {
		return nil, err
	}

	rich := &RichBug{
		ID:               bug.ID,
		ShortDesc:        bug.ShortDesc,
		Product:          bug.Product,
		Component:        bug.Component,
		Version:          bug.Version,
		Priority:         bug.Priority,
		Status:           bug.BugStatus,
		Resolution:       bug.Resolution,
		NumberOfComments: len(bug.Comments),
		Changes:          []domain.ChangeRecord{},
	}

	if bug.Reporter != nil && bug.Reporter.Text != "" {
		rich.Reporter = domain.StringPtr(bug.Reporter.Text)
		if bug.Reporter.Name != "" {
			rich.ReporterName = domain.StringPtr(bug.Reporter.Name)
		}
		uuid, err := e.identities.UUID(ctx, ShIdentity(RoleFields{Reporter: bug.Reporter}), Name)
		if err != nil {
			return nil, fmt.Errorf("reporter uuid: %w", err)
		}
		rich.ReporterUUID = &uuid
	}
	if bug.AssignedTo != nil && bug.AssignedTo.Text != "" {
		rich.AssignedTo = domain.StringPtr(bug.AssignedTo.Text)
		if bug.AssignedTo.Name != "" {
			rich.AssignedToName = domain.StringPtr(bug.AssignedTo.Name)
		}
		uuid, err := e.identities.UUID(ctx, ShIdentity(RoleFields{AssignedTo: bug.AssignedTo}), Name)
		if err != nil {
			return nil, fmt.Errorf("assignee uuid: %w", err)
		}
		rich.AssignedToUUID = &uuid
	}

	created := reformatDate(bug.CreationTS, bug.ID, "creation_ts")
	updated := reformatDate(bug.DeltaTS, bug.ID, "delta_ts")
	rich.CreatedOn = created
	rich.UpdatedOn = updated
	rich.ChangedDate = updated
	rich.TimeToLastUpdateDays = timeToLastUpdateDays(created, updated)

	url := e.client.Origin() + "/show_bug.cgi?id=" + bug.ID
	rich.URL = &url

	project, ok := e.projects.Project(Name, bug.Product)
	if !ok {
		project = DefaultProject
	}
	rich.Project = project

	if e.detail == "change" {
		changes, err := e.changes(ctx, bug.ID)
		if err != nil {
			return nil, err
		}
		rich.Changes = changes
	}

	metrics.DocEnriched()
	return rich, nil
}

// changes returns the parsed change history for a bug, serving the
// HTML from the raw cache when present and fetching, storing and
// parsing it otherwise. Re-parsing cached bytes is deterministic, so
// the change sequence is recomputed fresh on every enrichment pass.
func (e *Enricher) changes(ctx context.Context, bugID string) ([]domain.ChangeRecord, error) {
	var markup []byte
	if e.rawStore.Has(ctx, domain.KindChanges, bugID) {
		cached, err := e.rawStore.Get(ctx, domain.KindChanges, bugID)
		if err != nil {
			return nil, fmt.Errorf("cached changes for %s: %w", bugID, err)
		}
		metrics.CacheHit()
		markup = cached
	} else {
		metrics.CacheMiss()
		url := e.client.activityURL(bugID)
		logger.Info("bugzilla: getting changes for bug %s from %s", bugID, url)
		fetched, err := e.client.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetching changes for %s: %w", bugID, err)
		}
		if err := e.rawStore.Put(ctx, domain.KindChanges, bugID, fetched); err != nil {
			return nil, fmt.Errorf("caching changes for %s: %w", bugID, err)
		}
		markup = fetched
	}

	return e.parser.Parse(markup, bugID)
}

// Identities enumerates every actor occurrence in a raw bug. Change
// actors are included when the change history is already cached; the
// enumeration never triggers a network fetch.
func (e *Enricher) Identities(raw domain.RawRecord) ([]domain.Identity, error) {
	bug, err := ParseBug(raw.Payload)
	if err != nil {
		return nil, err
	}

	var changes []domain.ChangeRecord
	ctx := context.Background()
	if e.rawStore.Has(ctx, domain.KindChanges, bug.ID) {
		if markup, err := e.rawStore.Get(ctx, domain.KindChanges, bug.ID); err == nil {
			changes, _ = e.parser.Parse(markup, bug.ID)
		}
	}

	return Identities(bug, changes), nil
}

// Mappings returns engine mappings keeping the facet fields verbatim.
func (e *Enricher) Mappings() map[string]string {
	mapping := `
	{
	    "properties": {
	       "product":     {"type": "keyword"},
	       "component":   {"type": "keyword"},
	       "assigned_to": {"type": "keyword"}
	    }
	}`
	return map[string]string{"items": mapping}
}

// reformatDate renders a raw timestamp in the engine's time profile.
// Unparsable or missing dates degrade to nil with a diagnostic.
func reformatDate(value, bugID, field string) *string {
	if value == "" {
		return nil
	}
	t, err := parseTime(value)
	if err != nil {
		logger.Warn("bugzilla: bug %s has unparsable %s: %v", bugID, field, err)
		return nil
	}
	return domain.StringPtr(t.Format(domain.TimeProfile))
}

// timeToLastUpdateDays computes (updated - created) in days, rounded
// to two decimals. Nil when either endpoint is missing.
func timeToLastUpdateDays(created, updated *string) *float64 {
	if created == nil || updated == nil {
		return nil
	}
	from, err1 := time.Parse(domain.TimeProfile, *created)
	to, err2 := time.Parse(domain.TimeProfile, *updated)
	if err1 != nil || err2 != nil {
		return nil
	}
	days := to.Sub(from).Seconds() / secondsPerDay
	days = math.Round(days*100) / 100
	return &days
}
