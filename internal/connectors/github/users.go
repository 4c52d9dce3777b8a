package github

import (
	"context"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// userSource is the slice of the API client the cache uses.
type userSource interface {
	GetUser(ctx context.Context, login string) (*gh.User, error)
}

// UserCache memoises user profile lookups for one run. Enrichment
// touches the same handful of logins over and over; each costs one
// API request the first time only.
type UserCache struct {
	source userSource
	users  map[string]*gh.User
}

// NewUserCache creates an empty cache over the given client.
func NewUserCache(source userSource) *UserCache {
	return &UserCache{source: source, users: make(map[string]*gh.User)}
}

// Get returns the profile for a login, fetching it on first use. A
// missing or inaccessible profile is cached as nil so it is not
// re-requested.
func (c *UserCache) Get(ctx context.Context, login string) (*gh.User, error) {
	if user, ok := c.users[login]; ok {
		metrics.CacheHit()
		return user, nil
	}
	metrics.CacheMiss()

	user, err := c.source.GetUser(ctx, login)
	if err != nil {
		if IsNotFound(err) {
			logger.Debug("github: no profile for %s", login)
			c.users[login] = nil
			return nil, nil
		}
		return nil, err
	}

	c.users[login] = user
	return user, nil
}
