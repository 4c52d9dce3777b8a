package bugzilla

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/projects"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/identity"
)

const bugXML = `<bug>
  <bug_id>15</bug_id>
  <creation_ts>2020-01-01 00:00:00</creation_ts>
  <delta_ts>2020-01-03 12:00:00</delta_ts>
  <short_desc>Crash on startup</short_desc>
  <product>Tools</product>
  <component>Harvester</component>
  <version>1.0</version>
  <priority>P2</priority>
  <bug_status>ASSIGNED</bug_status>
  <resolution></resolution>
  <reporter name="John Doe">jdoe@example.org</reporter>
  <assigned_to name="Alice Smith">asmith@example.org</assigned_to>
  <long_desc><who name="John Doe">jdoe@example.org</who><bug_when>2020-01-01 00:00:00</bug_when><thetext>initial report</thetext></long_desc>
  <long_desc><who>asmith@example.org</who><bug_when>2020-01-02 09:00:00</bug_when><thetext>taking this</thetext></long_desc>
</bug>`

func newTestEnricher(t *testing.T, detail string) (*Enricher, *memory.RawStore) {
	t.Helper()

	client, err := NewClient("http://bugs.example.org/", "", "")
	require.NoError(t, err)

	store := memory.NewRawStore()
	mapper := projects.NewMapper()
	mapper.Set(Name, "Tools", "tooling")

	return NewEnricher(client, store, identity.New(), mapper, detail), store
}

func rawBug(payload string) domain.RawRecord {
	return domain.RawRecord{ID: "15", Kind: domain.KindRecord, Payload: []byte(payload)}
}

func TestEnricher_RichItem(t *testing.T) {
	e, _ := newTestEnricher(t, "issue")

	item, err := e.RichItem(context.Background(), rawBug(bugXML))
	require.NoError(t, err)
	rich, ok := item.(*RichBug)
	require.True(t, ok)

	assert.Equal(t, "15", rich.ID)
	assert.Equal(t, "Crash on startup", rich.ShortDesc)
	assert.Equal(t, 2, rich.NumberOfComments)

	require.NotNil(t, rich.CreatedOn)
	assert.Equal(t, "2020-01-01T00:00:00", *rich.CreatedOn)
	require.NotNil(t, rich.UpdatedOn)
	assert.Equal(t, "2020-01-03T12:00:00", *rich.UpdatedOn)
	require.NotNil(t, rich.ChangedDate)
	assert.Equal(t, *rich.UpdatedOn, *rich.ChangedDate, "the cursor field mirrors the update marker")

	require.NotNil(t, rich.TimeToLastUpdateDays)
	assert.Equal(t, 2.5, *rich.TimeToLastUpdateDays)

	require.NotNil(t, rich.URL)
	assert.Equal(t, "http://bugs.example.org/show_bug.cgi?id=15", *rich.URL)

	require.NotNil(t, rich.Reporter)
	assert.Equal(t, "jdoe@example.org", *rich.Reporter)
	require.NotNil(t, rich.ReporterName)
	assert.Equal(t, "John Doe", *rich.ReporterName)
	require.NotNil(t, rich.ReporterUUID)
	require.NotNil(t, rich.AssignedToUUID)
	assert.NotEqual(t, *rich.ReporterUUID, *rich.AssignedToUUID)

	assert.Equal(t, "tooling", rich.Project)
	assert.Empty(t, rich.Changes, "issue detail excludes the change history")
}

func TestEnricher_RichItem_MissingDates(t *testing.T) {
	e, _ := newTestEnricher(t, "issue")

	const noDates = `<bug><bug_id>16</bug_id><product>Other</product></bug>`
	item, err := e.RichItem(context.Background(), rawBug(noDates))
	require.NoError(t, err, "missing fields degrade to null, never abort")
	rich := item.(*RichBug)

	assert.Nil(t, rich.CreatedOn)
	assert.Nil(t, rich.UpdatedOn)
	assert.Nil(t, rich.TimeToLastUpdateDays)
	assert.Nil(t, rich.Reporter)
	assert.Nil(t, rich.ReporterUUID)
	assert.Equal(t, DefaultProject, rich.Project, "unmapped products land in the default bucket")
}

func TestEnricher_RichItem_ChangesFromCache(t *testing.T) {
	e, store := newTestEnricher(t, "change")
	ctx := context.Background()

	// Pre-populate the cache so no network fetch happens.
	require.NoError(t, store.Put(ctx, domain.KindChanges, "15", []byte(activityHTML)))

	item, err := e.RichItem(ctx, rawBug(bugXML))
	require.NoError(t, err)
	rich := item.(*RichBug)

	require.Len(t, rich.Changes, 3)
	assert.Equal(t, "status", rich.Changes[0].Field)

	// A second pass re-parses the same cached bytes deterministically.
	again, err := e.RichItem(ctx, rawBug(bugXML))
	require.NoError(t, err)
	assert.Equal(t, rich.Changes, again.(*RichBug).Changes)
}

func TestEnricher_UniqueID(t *testing.T) {
	e, _ := newTestEnricher(t, "issue")

	id, err := e.UniqueID(rawBug(bugXML))
	require.NoError(t, err)
	assert.Equal(t, "15", id)

	_, err = e.UniqueID(rawBug(`<bug><product>Tools</product></bug>`))
	assert.ErrorIs(t, err, ErrNoBugID)
}

func TestEnricher_Identities(t *testing.T) {
	e, store := newTestEnricher(t, "change")
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, domain.KindChanges, "15", []byte(activityHTML)))

	ids, err := e.Identities(rawBug(bugXML))
	require.NoError(t, err)

	// reporter + assignee + 2 comment authors + 3 change actors.
	assert.Len(t, ids, 7)
}

func TestTimeToLastUpdateDays(t *testing.T) {
	created := domain.StringPtr("2020-01-01T00:00:00")
	updated := domain.StringPtr("2020-01-03T12:00:00")

	days := timeToLastUpdateDays(created, updated)
	require.NotNil(t, days)
	assert.Equal(t, 2.5, *days)

	assert.Nil(t, timeToLastUpdateDays(nil, updated))
	assert.Nil(t, timeToLastUpdateDays(created, nil))
}
