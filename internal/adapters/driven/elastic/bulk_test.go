package elastic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

func bulkServer(t *testing.T, bodies *[]string, respond func(n int) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bugs/_bulk", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*bodies = append(*bodies, string(body))

		status, payload := respond(len(*bodies))
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
}

func acceptAll(int) (int, string) {
	return http.StatusOK, `{"errors": false}`
}

func TestWriter_FlushesOnThreshold(t *testing.T) {
	var bodies []string
	srv := bulkServer(t, &bodies, acceptAll)
	defer srv.Close()

	w := NewWriter(NewClient(srv.URL), 2)
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, "bugs", driven.BulkDoc{ID: "1", Body: map[string]string{"id": "1"}}))
	assert.Empty(t, bodies, "below threshold, nothing written yet")

	require.NoError(t, w.Add(ctx, "bugs", driven.BulkDoc{ID: "2", Body: map[string]string{"id": "2"}}))
	require.Len(t, bodies, 1)

	lines := strings.Split(strings.TrimRight(bodies[0], "\n"), "\n")
	require.Len(t, lines, 4, "one header and one body per doc")
	assert.JSONEq(t, `{"index": {"_id": "1"}}`, lines[0])
	assert.JSONEq(t, `{"id": "1"}`, lines[1])
	assert.JSONEq(t, `{"index": {"_id": "2"}}`, lines[2])
}

func TestWriter_TrailingEmptyFlush(t *testing.T) {
	var bodies []string
	srv := bulkServer(t, &bodies, func(int) (int, string) {
		// Engines reject empty bulk bodies; the writer shrugs it off.
		return http.StatusBadRequest, `{"error": "no requests added"}`
	})
	defer srv.Close()

	w := NewWriter(NewClient(srv.URL), 10)
	require.NoError(t, w.Flush(context.Background(), "bugs"))

	require.Len(t, bodies, 1, "the empty write is still issued")
	assert.Empty(t, bodies[0])
}

func TestWriter_RejectionReportsIDRange(t *testing.T) {
	var bodies []string
	srv := bulkServer(t, &bodies, func(int) (int, string) {
		return http.StatusOK, `{"errors": true}`
	})
	defer srv.Close()

	w := NewWriter(NewClient(srv.URL), 10)
	ctx := context.Background()
	for _, id := range []string{"7", "8", "9"} {
		require.NoError(t, w.Add(ctx, "bugs", driven.BulkDoc{ID: id, Body: map[string]string{}}))
	}

	err := w.Flush(ctx, "bugs")
	var bulkErr *driven.BulkError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, "bugs", bulkErr.Index)
	assert.Equal(t, "7", bulkErr.FirstID)
	assert.Equal(t, "9", bulkErr.LastID)
	require.Len(t, bodies, 1, "rejected batches are not retried when the payload is valid")
}

func TestWriter_ReencodesInvalidUTF8Once(t *testing.T) {
	var bodies []string
	srv := bulkServer(t, &bodies, func(n int) (int, string) {
		if n == 1 {
			return http.StatusBadRequest, `{"error": "invalid"}`
		}
		return http.StatusOK, `{"errors": false}`
	})
	defer srv.Close()

	w := NewWriter(NewClient(srv.URL), 10)
	ctx := context.Background()
	// Raw payloads pass through verbatim, invalid bytes included.
	raw := json.RawMessage("{\"xml\": \"broken \xff\xfe bytes\"}")
	require.NoError(t, w.Add(ctx, "bugs", driven.BulkDoc{ID: "1", Body: raw}))

	require.NoError(t, w.Flush(ctx, "bugs"))
	require.Len(t, bodies, 2)
	assert.False(t, utf8.ValidString(bodies[0]))
	assert.True(t, utf8.ValidString(bodies[1]), "the retry carries a lossily re-encoded payload")
}
