package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "harvest version")
}

func TestSelectSources(t *testing.T) {
	cfg := &file.Config{Sources: []file.SourceConfig{
		{Type: "bugzilla", Name: "mozilla"},
		{Type: "github", Name: "tools"},
	}}

	all, err := selectSources(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "no names selects every source")

	one, err := selectSources(cfg, []string{"tools"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "github", one[0].Type)

	_, err = selectSources(cfg, []string{"absent"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildPipeline_WiresEverySourceType(t *testing.T) {
	cfg := &file.Config{}
	cfg.Elastic.Endpoint = "http://localhost:9200"

	tests := []struct {
		name      string
		src       file.SourceConfig
		wantIndex string
	}{
		{
			name: "bugzilla index derived from the tracker origin",
			src: file.SourceConfig{
				Type: "bugzilla", Name: "mozilla",
				URL:      "http://bugs.example.org/buglist.cgi?product=Tools",
				PageSize: 500, BatchSize: 100,
			},
			wantIndex: "bugzilla_bugs.example.org",
		},
		{
			name: "github index derived from the repository",
			src: file.SourceConfig{
				Type: "github", Name: "tools",
				Owner: "Example", Repo: "Tools", Token: "t",
			},
			wantIndex: "github_example_tools",
		},
		{
			name: "mbox index derived from the archive directory",
			src: file.SourceConfig{
				Type: "mbox", Name: "list",
				Path: "/var/archives/mylist/",
			},
			wantIndex: "mbox_mylist",
		},
		{
			name: "twitter index derived from the query",
			src: file.SourceConfig{
				Type: "twitter", Name: "tag",
				Key: "k", Secret: "s", Query: "#devrel",
			},
			wantIndex: "twitter_devrel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildPipeline(context.Background(), cfg, tt.src)
			require.NoError(t, err)
			defer p.Close()

			assert.Equal(t, tt.wantIndex, p.source.Index)
			assert.Equal(t, tt.wantIndex+"_raw", p.source.RawIndex())
			require.NotNil(t, p.harvester)
			require.NotNil(t, p.enricher)
		})
	}
}

func TestBuildPipeline_UnknownType(t *testing.T) {
	cfg := &file.Config{}
	cfg.Elastic.Endpoint = "http://localhost:9200"

	_, err := buildPipeline(context.Background(), cfg, file.SourceConfig{Type: "gerrit"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
