package github

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// DefaultProject is the bucket for repositories with no explicit
// mapping.
const DefaultProject = "unknown"

// secondsPerDay converts close intervals to fractional days.
const secondsPerDay = 86400.0

// RichPull is the enriched-tier document for one pull request.
type RichPull struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`

	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
	ClosedAt  *string `json:"closed_at"`
	MergedAt  *string `json:"merged_at"`

	TimeToCloseDays *float64 `json:"time_to_close_days"`
	URL             string   `json:"url"`

	UserLogin string  `json:"user_login"`
	UserName  *string `json:"user_name"`
	UserEmail *string `json:"user_email"`
	UserOrg   *string `json:"user_org"`
	UserUUID  *string `json:"user_uuid"`

	AssigneeLogin *string `json:"assignee_login"`
	AssigneeName  *string `json:"assignee_name"`
	AssigneeUUID  *string `json:"assignee_uuid"`

	Labels  []string `json:"labels"`
	Project string   `json:"project"`
}

// ShIdentity synthesises an identity from a login and its profile.
// The profile may be nil; the login alone still identifies the actor.
func ShIdentity(login string, user *gh.User) domain.Identity {
	var id domain.Identity
	if login != "" {
		id.Username = domain.StringPtr(login)
	}
	if user != nil {
		if name := user.GetName(); name != "" {
			id.Name = domain.StringPtr(name)
		}
		if email := user.GetEmail(); email != "" {
			id.Email = domain.StringPtr(email)
		}
	}
	return id
}

// Ensure Enricher implements the interface.
var _ driven.Enricher = (*Enricher)(nil)

// Enricher builds enriched documents from raw pull request payloads,
// completing author fields from user profiles through a per-run
// cache.
type Enricher struct {
	users      *UserCache
	identities driven.IdentityService
	projects   driven.ProjectMapper
	repoKey    string
}

// NewEnricher creates a github enricher for one repository.
func NewEnricher(users *UserCache, identities driven.IdentityService, projects driven.ProjectMapper, owner, repo string) *Enricher {
	return &Enricher{
		users:      users,
		identities: identities,
		projects:   projects,
		repoKey:    owner + "/" + repo,
	}
}

// FieldDate names the enriched date field the cursor is computed from.
func (e *Enricher) FieldDate() string {
	return "updated_at"
}

// UniqueID extracts the PR number from a raw payload.
func (e *Enricher) UniqueID(raw domain.RawRecord) (string, error) {
	var pull gh.PullRequest
	if err := json.Unmarshal(raw.Payload, &pull); err != nil {
		return "", fmt.Errorf("decoding pull %s: %w", raw.ID, err)
	}
	if pull.GetNumber() == 0 {
		return "", fmt.Errorf("pull without number: %w", domain.ErrMissingField)
	}
	return fmt.Sprintf("%d", pull.GetNumber()), nil
}

// RichItem builds the enriched document for one raw pull request.
func (e *Enricher) RichItem(ctx context.Context, raw domain.RawRecord) (any, error) {
	var pull gh.PullRequest
	if err := json.Unmarshal(raw.Payload, &pull); err != nil {
		return nil, fmt.Errorf("decoding pull %s: %w", raw.ID, err)
	}

	rich := &RichPull{
		ID:        pull.GetNumber(),
		Title:     pull.GetTitle(),
		State:     pull.GetState(),
		URL:       pull.GetHTMLURL(),
		CreatedAt: formatTimestamp(pull.CreatedAt),
		UpdatedAt: formatTimestamp(pull.UpdatedAt),
		ClosedAt:  formatTimestamp(pull.ClosedAt),
		MergedAt:  formatTimestamp(pull.MergedAt),
		Labels:    []string{},
	}
	for _, label := range pull.Labels {
		rich.Labels = append(rich.Labels, label.GetName())
	}
	rich.TimeToCloseDays = timeToCloseDays(pull.CreatedAt, pull.ClosedAt)

	if login := pull.GetUser().GetLogin(); login != "" {
		rich.UserLogin = login
		user, err := e.users.Get(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("user profile for pull %s: %w", raw.ID, err)
		}
		if user != nil {
			if name := user.GetName(); name != "" {
				rich.UserName = domain.StringPtr(name)
			}
			if email := user.GetEmail(); email != "" {
				rich.UserEmail = domain.StringPtr(email)
			}
			if org := user.GetCompany(); org != "" {
				rich.UserOrg = domain.StringPtr(org)
			}
		}
		uuid, err := e.identities.UUID(ctx, ShIdentity(login, user), Name)
		if err != nil {
			return nil, fmt.Errorf("user uuid for pull %s: %w", raw.ID, err)
		}
		rich.UserUUID = &uuid
	}

	if login := pull.GetAssignee().GetLogin(); login != "" {
		rich.AssigneeLogin = domain.StringPtr(login)
		user, err := e.users.Get(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("assignee profile for pull %s: %w", raw.ID, err)
		}
		if user != nil {
			if name := user.GetName(); name != "" {
				rich.AssigneeName = domain.StringPtr(name)
			}
		}
		uuid, err := e.identities.UUID(ctx, ShIdentity(login, user), Name)
		if err != nil {
			return nil, fmt.Errorf("assignee uuid for pull %s: %w", raw.ID, err)
		}
		rich.AssigneeUUID = &uuid
	}

	project, ok := e.projects.Project(Name, e.repoKey)
	if !ok {
		project = DefaultProject
	}
	rich.Project = project

	metrics.DocEnriched()
	return rich, nil
}

// Identities enumerates the actors in one raw pull request: the
// author and, when set, the assignee. Profiles come from the per-run
// cache only.
func (e *Enricher) Identities(raw domain.RawRecord) ([]domain.Identity, error) {
	var pull gh.PullRequest
	if err := json.Unmarshal(raw.Payload, &pull); err != nil {
		return nil, fmt.Errorf("decoding pull %s: %w", raw.ID, err)
	}

	var ids []domain.Identity
	if login := pull.GetUser().GetLogin(); login != "" {
		ids = append(ids, ShIdentity(login, e.users.users[login]))
	}
	if login := pull.GetAssignee().GetLogin(); login != "" {
		ids = append(ids, ShIdentity(login, e.users.users[login]))
	}
	return ids, nil
}

// Mappings returns engine mappings keeping the facet fields verbatim.
func (e *Enricher) Mappings() map[string]string {
	mapping := `
	{
	    "properties": {
	       "state":      {"type": "keyword"},
	       "user_login": {"type": "keyword"},
	       "labels":     {"type": "keyword"}
	    }
	}`
	return map[string]string{"items": mapping}
}

// formatTimestamp renders an API timestamp in the engine's time
// profile, nil when absent.
func formatTimestamp(ts *gh.Timestamp) *string {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	return domain.StringPtr(ts.Time.UTC().Format(domain.TimeProfile))
}

// timeToCloseDays computes (closed - created) in days, rounded to two
// decimals. Nil while the pull request is open.
func timeToCloseDays(created, closed *gh.Timestamp) *float64 {
	if created == nil || closed == nil || created.Time.IsZero() || closed.Time.IsZero() {
		return nil
	}
	days := closed.Time.Sub(created.Time).Seconds() / secondsPerDay
	days = math.Round(days*100) / 100
	return &days
}
