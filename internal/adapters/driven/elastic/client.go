package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// DefaultTimeout bounds every engine request.
const DefaultTimeout = 60 * time.Second

// Ensure Client implements the interface.
var _ driven.CursorSource = (*Client)(nil)

// Client talks to one search-engine endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given endpoint, for example
// "http://localhost:9200".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
	}
}

// do issues one request and returns the status code and body. Bodies
// are always fully read so connections can be reused.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, payload, nil
}

// EnsureIndex creates an index with the given mappings when it does
// not exist yet. An already-existing index is left untouched.
func (c *Client) EnsureIndex(ctx context.Context, index string, mappings map[string]string) error {
	status, _, err := c.do(ctx, http.MethodHead, "/"+index, nil, "")
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		logger.Debug("elastic: index %s already exists", index)
		return nil
	}

	body := []byte("{}")
	if m, ok := mappings["items"]; ok {
		body = []byte(`{"mappings": ` + m + `}`)
	}
	status, payload, err := c.do(ctx, http.MethodPut, "/"+index, body, "application/json")
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("creating index %s (status %d): %s: %w",
			index, status, truncate(payload), domain.ErrIndexUnavailable)
	}
	logger.Info("elastic: created index %s", index)
	return nil
}

// DeleteIndex removes an index. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	status, payload, err := c.do(ctx, http.MethodDelete, "/"+index, nil, "")
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("deleting index %s (status %d): %s: %w",
			index, status, truncate(payload), domain.ErrIndexUnavailable)
	}
	logger.Info("elastic: deleted index %s", index)
	return nil
}

// cursorTimeLayouts are the formats the engine renders a max-date
// aggregation in, depending on the field mapping.
var cursorTimeLayouts = []string{
	domain.TimeProfile,
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
}

// LastUpdate returns the maximum value of the given date field over
// the index, or nil when the index is empty, missing or the field has
// no values. Nil is the full-sync signal, not an error.
func (c *Client) LastUpdate(ctx context.Context, index, field string) (*time.Time, error) {
	query := fmt.Sprintf(`{"size": 0, "aggs": {"1": {"max": {"field": %q}}}}`, field)
	status, payload, err := c.do(ctx, http.MethodPost, "/"+index+"/_search", []byte(query), "application/json")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 300 {
		return nil, fmt.Errorf("querying cursor on %s (status %d): %s: %w",
			index, status, truncate(payload), domain.ErrIndexUnavailable)
	}

	var result struct {
		Aggregations struct {
			One struct {
				ValueAsString *string `json:"value_as_string"`
			} `json:"1"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding cursor response from %s: %w", index, err)
	}
	if result.Aggregations.One.ValueAsString == nil {
		return nil, nil
	}

	raw := *result.Aggregations.One.ValueAsString
	for _, layout := range cursorTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparsable cursor value %q on %s: %w",
		raw, index, domain.ErrInvalidInput)
}

// truncate caps engine error bodies for log and error messages.
func truncate(payload []byte) string {
	const max = 200
	s := string(payload)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
