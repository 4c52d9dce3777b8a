package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 30 * time.Second

// MaxPageSize is the API's maximum list page size.
const MaxPageSize = 100

// Client wraps the go-github client with rate limiting.
type Client struct {
	gh          *gh.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client authenticating with a static access
// token. Works for both PAT and OAuth access tokens.
func NewClient(ctx context.Context, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	return &Client{
		gh:          gh.NewClient(tc),
		rateLimiter: NewRateLimiter(),
	}
}

// ListPulls returns one page of pull requests ordered by update time
// ascending, plus whether more pages follow. perPage is clamped to the
// API's maximum.
func (c *Client) ListPulls(ctx context.Context, owner, repo string, page, perPage int) ([]*gh.PullRequest, bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limit wait: %w", err)
	}

	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}
	pulls, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return nil, false, c.wrapError(err, "list pulls")
	}
	c.updateRateLimitFromResponse(resp)

	return pulls, HasNextPage(resp.Header.Get("Link")), nil
}

// GetUser fetches a user profile by login.
func (c *Client) GetUser(ctx context.Context, login string) (*gh.User, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, c.wrapError(err, "get user")
	}
	c.updateRateLimitFromResponse(resp)
	return user, nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// updateRateLimitFromResponse updates the rate limiter from response
// headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to this package's error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        ghErr.Response.Request.URL.String(),
		}
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   c.rateLimiter.ResetTime(),
			Remaining: c.rateLimiter.Remaining(),
			Limit:     c.rateLimiter.Limit(),
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
