package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// DefaultFields maps each payload kind to the source field it is
// stored under in the raw tier.
var DefaultFields = map[domain.RawKind]string{
	domain.KindRecord:  "xml",
	domain.KindChanges: "html",
	domain.KindListing: "csv",
}

// Ensure RawStore implements the interface.
var _ driven.RawStore = (*RawStore)(nil)

// RawStore keeps raw payloads in a dedicated engine index, one
// document per (kind, id). Writes overwrite by id; entries are never
// invalidated.
type RawStore struct {
	client *Client
	index  string
	fields map[domain.RawKind]string
}

// NewRawStore creates a raw tier over the given index. fields selects
// the source field per payload kind; nil uses DefaultFields.
func NewRawStore(client *Client, index string, fields map[domain.RawKind]string) *RawStore {
	if fields == nil {
		fields = DefaultFields
	}
	return &RawStore{client: client, index: index, fields: fields}
}

// docPath addresses one payload document. Ids are URL-escaped since
// tracker ids may carry reserved characters.
func (s *RawStore) docPath(kind domain.RawKind, id string) string {
	return "/" + s.index + "/_doc/" + url.PathEscape(string(kind)+":"+id)
}

// field returns the source field for a kind, defaulting to "data" for
// kinds outside the configured map.
func (s *RawStore) field(kind domain.RawKind) string {
	if f, ok := s.fields[kind]; ok {
		return f
	}
	return "data"
}

// Has reports whether a payload is cached. Transport failures count
// as absent: the caller falls back to fetching.
func (s *RawStore) Has(ctx context.Context, kind domain.RawKind, id string) bool {
	status, _, err := s.client.do(ctx, http.MethodHead, s.docPath(kind, id), nil, "")
	return err == nil && status == http.StatusOK
}

// Get returns a cached payload.
func (s *RawStore) Get(ctx context.Context, kind domain.RawKind, id string) ([]byte, error) {
	status, payload, err := s.client.do(ctx, http.MethodGet, s.docPath(kind, id), nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("raw %s/%s: %w", kind, id, domain.ErrNotFound)
	}
	if status >= 300 {
		return nil, fmt.Errorf("reading raw %s/%s (status %d): %w",
			kind, id, status, domain.ErrIndexUnavailable)
	}

	var doc struct {
		Source map[string]string `json:"_source"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding raw %s/%s: %w", kind, id, err)
	}
	data, ok := doc.Source[s.field(kind)]
	if !ok {
		return nil, fmt.Errorf("raw %s/%s has no %q field: %w",
			kind, id, s.field(kind), domain.ErrMissingField)
	}
	return []byte(data), nil
}

// Put stores a payload, overwriting any previous version.
func (s *RawStore) Put(ctx context.Context, kind domain.RawKind, id string, data []byte) error {
	body, err := json.Marshal(map[string]string{s.field(kind): string(data)})
	if err != nil {
		return fmt.Errorf("encoding raw %s/%s: %w", kind, id, err)
	}
	status, payload, err := s.client.do(ctx, http.MethodPut, s.docPath(kind, id), body, "application/json")
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("writing raw %s/%s (status %d): %s: %w",
			kind, id, status, truncate(payload), domain.ErrIndexUnavailable)
	}
	return nil
}
