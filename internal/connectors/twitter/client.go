package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// API endpoints for application-only access.
const (
	DefaultBaseURL = "https://api.twitter.com/1.1"
	TokenURL       = "https://api.twitter.com/oauth2/token"
)

// maxSearchPageSize is the API's maximum tweets per search page.
const maxSearchPageSize = 100

// twitterTimeLayout is the created_at format the API emits.
const twitterTimeLayout = time.RubyDate

// Tweet is the subset of a status payload the pipeline reads. The
// verbatim JSON travels separately to the raw tier.
type Tweet struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Retweeted bool   `json:"retweeted"`

	Entities struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
	} `json:"entities"`

	User struct {
		IDStr      string `json:"id_str"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		Location   string `json:"location"`
	} `json:"user"`
}

// ParseCreatedAt converts a created_at value to UTC.
func ParseCreatedAt(value string) (time.Time, error) {
	t, err := time.Parse(twitterTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing tweet date %q: %w", value, err)
	}
	return t.UTC(), nil
}

// Client searches tweets with an application-only bearer token
// obtained through the client-credentials flow.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client authenticating with the given application
// key and secret.
func NewClient(ctx context.Context, key, secret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     TokenURL,
	}
	return &Client{
		base: DefaultBaseURL,
		http: cfg.Client(ctx),
		// The search endpoint allows 450 requests per 15 minutes.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// searchResponse carries each status verbatim so the raw tier stores
// exactly what the API returned.
type searchResponse struct {
	Statuses []json.RawMessage `json:"statuses"`
}

// Search returns one page of up to count tweets matching the query,
// newest first, with ids strictly below maxID when maxID is non-zero.
func (c *Client) Search(ctx context.Context, query string, maxID int64, count int) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if count <= 0 || count > maxSearchPageSize {
		count = maxSearchPageSize
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("result_type", "recent")
	if maxID > 0 {
		params.Set("max_id", strconv.FormatInt(maxID-1, 10))
	}

	endpoint := c.base + "/search/tweets.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("searching %q: %w", query, domain.ErrRateLimited)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searching %q: status %d", query, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return result.Statuses, nil
}
