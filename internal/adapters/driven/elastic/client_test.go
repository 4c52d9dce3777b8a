package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LastUpdate(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     *time.Time
		wantErr  bool
	}{
		{
			name:   "max date present",
			status: http.StatusOK,
			response: `{"aggregations": {"1": {"value": 1.5e12,
				"value_as_string": "2020-01-03T12:00:00"}}}`,
			want: timePtr(time.Date(2020, 1, 3, 12, 0, 0, 0, time.UTC)),
		},
		{
			name:     "empty index yields no cursor",
			status:   http.StatusOK,
			response: `{"aggregations": {"1": {"value": null}}}`,
			want:     nil,
		},
		{
			name:     "missing index yields no cursor",
			status:   http.StatusNotFound,
			response: `{"error": "index_not_found_exception"}`,
			want:     nil,
		},
		{
			name:     "engine failure propagates",
			status:   http.StatusInternalServerError,
			response: `{"error": "boom"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/bugs/_search", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL).LastUpdate(context.Background(), "bugs", "changeddate")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.True(t, tt.want.Equal(*got))
			}
		})
	}
}

func TestClient_EnsureIndex(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			assert.Equal(t, "/bugs", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	mappings := map[string]string{"items": `{"properties": {"product": {"type": "keyword"}}}`}
	require.NoError(t, NewClient(srv.URL).EnsureIndex(context.Background(), "bugs", mappings))
	assert.True(t, created)
}

func TestClient_EnsureIndex_AlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected %s request", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).EnsureIndex(context.Background(), "bugs", nil))
}

func TestClient_DeleteIndex_MissingIsFine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).DeleteIndex(context.Background(), "bugs"))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
