package twitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// DefaultProject is the bucket for tweets whose hashtags have no
// mapping.
const DefaultProject = "unknown"

// RichTweet is the enriched-tier document for one tweet.
type RichTweet struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	CreatedAt *string `json:"created_at"`

	UserID         string  `json:"user_id"`
	UserName       string  `json:"user_name"`
	UserScreenName string  `json:"user_screen_name"`
	UserLocation   string  `json:"user_location"`
	UserUUID       *string `json:"user_uuid"`

	Hashtags  []string `json:"hashtags_analyzed"`
	Retweeted int      `json:"retweeted"`
	URL       string   `json:"url"`
	Project   string   `json:"project"`
}

// ShIdentity synthesises an identity from a tweet's user.
func ShIdentity(tweet *Tweet) domain.Identity {
	var id domain.Identity
	if tweet.User.ScreenName != "" {
		id.Username = domain.StringPtr(tweet.User.ScreenName)
	}
	if tweet.User.Name != "" {
		id.Name = domain.StringPtr(tweet.User.Name)
	}
	return id
}

// Ensure Enricher implements the interface.
var _ driven.Enricher = (*Enricher)(nil)

// Enricher builds enriched documents from raw tweet payloads.
type Enricher struct {
	identities driven.IdentityService
	projects   driven.ProjectMapper
}

// NewEnricher creates a twitter enricher.
func NewEnricher(identities driven.IdentityService, projects driven.ProjectMapper) *Enricher {
	return &Enricher{identities: identities, projects: projects}
}

// FieldDate names the enriched date field the cursor is computed from.
func (e *Enricher) FieldDate() string {
	return "created_at"
}

// UniqueID extracts the tweet id from a raw payload.
func (e *Enricher) UniqueID(raw domain.RawRecord) (string, error) {
	var tweet Tweet
	if err := json.Unmarshal(raw.Payload, &tweet); err != nil {
		return "", fmt.Errorf("decoding tweet %s: %w", raw.ID, err)
	}
	if tweet.IDStr == "" {
		return "", fmt.Errorf("tweet without id: %w", domain.ErrMissingField)
	}
	return tweet.IDStr, nil
}

// RichItem builds the enriched document for one raw tweet.
func (e *Enricher) RichItem(ctx context.Context, raw domain.RawRecord) (any, error) {
	var tweet Tweet
	if err := json.Unmarshal(raw.Payload, &tweet); err != nil {
		return nil, fmt.Errorf("decoding tweet %s: %w", raw.ID, err)
	}

	rich := &RichTweet{
		ID:             tweet.IDStr,
		Text:           tweet.Text,
		UserID:         tweet.User.IDStr,
		UserName:       tweet.User.Name,
		UserScreenName: tweet.User.ScreenName,
		UserLocation:   tweet.User.Location,
		Hashtags:       []string{},
		URL:            "https://twitter.com/" + tweet.User.ScreenName + "/status/" + tweet.IDStr,
	}
	if tweet.Retweeted {
		rich.Retweeted = 1
	}

	if created, err := ParseCreatedAt(tweet.CreatedAt); err == nil {
		rich.CreatedAt = domain.StringPtr(created.Format(domain.TimeProfile))
	} else {
		logger.Warn("twitter: tweet %s has unparsable created_at: %v", tweet.IDStr, err)
	}

	if tweet.User.ScreenName != "" || tweet.User.Name != "" {
		uuid, err := e.identities.UUID(ctx, ShIdentity(&tweet), Name)
		if err != nil {
			return nil, fmt.Errorf("user uuid for tweet %s: %w", tweet.IDStr, err)
		}
		rich.UserUUID = &uuid
	}

	// The first mapped hashtag names the project.
	rich.Project = DefaultProject
	for _, tag := range tweet.Entities.Hashtags {
		rich.Hashtags = append(rich.Hashtags, tag.Text)
		if rich.Project == DefaultProject {
			if project, ok := e.projects.Project(Name, tag.Text); ok {
				rich.Project = project
			}
		}
	}

	metrics.DocEnriched()
	return rich, nil
}

// Identities enumerates the actors in one raw tweet: the author.
func (e *Enricher) Identities(raw domain.RawRecord) ([]domain.Identity, error) {
	var tweet Tweet
	if err := json.Unmarshal(raw.Payload, &tweet); err != nil {
		return nil, fmt.Errorf("decoding tweet %s: %w", raw.ID, err)
	}
	if tweet.User.ScreenName == "" && tweet.User.Name == "" {
		return nil, nil
	}
	return []domain.Identity{ShIdentity(&tweet)}, nil
}

// Mappings returns engine mappings keeping the facet fields verbatim.
func (e *Enricher) Mappings() map[string]string {
	mapping := `
	{
	    "properties": {
	       "user_screen_name":  {"type": "keyword"},
	       "hashtags_analyzed": {"type": "keyword"},
	       "project":           {"type": "keyword"}
	    }
	}`
	return map[string]string{"items": mapping}
}
