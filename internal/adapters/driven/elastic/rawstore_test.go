package elastic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

func TestRawStore_RoundTrip(t *testing.T) {
	docs := make(map[string]map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			var doc map[string]string
			require.NoError(t, json.Unmarshal(body, &doc))
			docs[r.URL.Path] = doc
			w.WriteHeader(http.StatusCreated)
		case http.MethodHead:
			if _, ok := docs[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodGet:
			doc, ok := docs[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"_source": doc})
		}
	}))
	defer srv.Close()

	store := NewRawStore(NewClient(srv.URL), "bugs_raw", nil)
	ctx := context.Background()

	assert.False(t, store.Has(ctx, domain.KindChanges, "15"))
	_, err := store.Get(ctx, domain.KindChanges, "15")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, domain.KindChanges, "15", []byte("<html>activity</html>")))
	assert.True(t, store.Has(ctx, domain.KindChanges, "15"))

	got, err := store.Get(ctx, domain.KindChanges, "15")
	require.NoError(t, err)
	assert.Equal(t, "<html>activity</html>", string(got))

	// Each kind lands under its own source field.
	assert.Contains(t, docs["/bugs_raw/_doc/changes:15"], "html")

	require.NoError(t, store.Put(ctx, domain.KindRecord, "15", []byte("<bug/>")))
	assert.Contains(t, docs["/bugs_raw/_doc/record:15"], "xml")

	require.NoError(t, store.Put(ctx, domain.KindListing, "2020-01-01", []byte("id,changed")))
	assert.Contains(t, docs["/bugs_raw/_doc/listing:2020-01-01"], "csv")
}

func TestRawStore_HasToleratesEngineOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	store := NewRawStore(NewClient(srv.URL), "bugs_raw", nil)
	assert.False(t, store.Has(context.Background(), domain.KindRecord, "1"))
}
