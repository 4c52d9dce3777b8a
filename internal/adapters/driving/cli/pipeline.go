package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/elastic"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/projects"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/harvest-cli/internal/connectors/bugzilla"
	"github.com/custodia-labs/harvest-cli/internal/connectors/github"
	"github.com/custodia-labs/harvest-cli/internal/connectors/mbox"
	"github.com/custodia-labs/harvest-cli/internal/connectors/twitter"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/core/services"
	"github.com/custodia-labs/harvest-cli/internal/identity"
)

// pipeline bundles everything one source needs: the harvester, the
// engine client for index management and the enricher for mappings.
type pipeline struct {
	source    domain.Source
	harvester *services.Harvester
	enricher  driven.Enricher
	engine    *elastic.Client
	closers   []func() error
}

// Close releases the pipeline's local resources.
func (p *pipeline) Close() error {
	var first error
	for _, close := range p.closers {
		if err := close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadConfig reads the configuration from --config or the default
// location.
func loadConfig() (*file.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return file.Load(path)
}

// selectSources returns the configured sources matching the given
// names, or all of them when no names are given.
func selectSources(cfg *file.Config, names []string) ([]file.SourceConfig, error) {
	if len(names) == 0 {
		return cfg.Sources, nil
	}

	var selected []file.SourceConfig
	for _, name := range names {
		found := false
		for _, src := range cfg.Sources {
			if src.Name == name {
				selected = append(selected, src)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("source %q not configured: %w", name, domain.ErrNotFound)
		}
	}
	return selected, nil
}

// buildPipeline wires one source's connector, stores and harvester.
func buildPipeline(ctx context.Context, cfg *file.Config, src file.SourceConfig) (*pipeline, error) {
	engine := elastic.NewClient(cfg.Elastic.Endpoint)

	mapper := projects.NewMapper()
	if cfg.Projects.Path != "" {
		loaded, err := projects.Load(cfg.Projects.Path)
		if err != nil {
			return nil, fmt.Errorf("loading project mappings: %w", err)
		}
		mapper = loaded
	}
	identities := identity.New()

	p := &pipeline{engine: engine}

	var tracker driven.Tracker
	var enricher driven.Enricher
	var rawStore driven.RawStore
	var index string

	switch src.Type {
	case "bugzilla":
		client, err := bugzilla.NewClient(src.URL, src.User, src.Password)
		if err != nil {
			return nil, err
		}
		index = src.Index
		if index == "" {
			index = domain.IndexName(bugzilla.Name, client.Origin())
		}
		// The connector and enricher share the harvester's raw store
		// so listing pages and change histories land in the same tier.
		rawStore, err = p.newRawStore(cfg, engine, index)
		if err != nil {
			return nil, err
		}
		tracker = bugzilla.New(client, rawStore, src.PageSize)
		enricher = bugzilla.NewEnricher(client, rawStore, identities, mapper, src.Detail)

	case "github":
		client := github.NewClient(ctx, src.Token)
		index = src.Index
		if index == "" {
			index = domain.IndexName(github.Name, src.Owner+"/"+src.Repo)
		}
		tracker = github.NewTracker(client, src.Owner, src.Repo, src.PageSize)
		enricher = github.NewEnricher(github.NewUserCache(client), identities, mapper, src.Owner, src.Repo)

	case "mbox":
		index = src.Index
		if index == "" {
			index = domain.IndexName(mbox.Name, filepath.Base(strings.TrimRight(src.Path, "/")))
		}
		tracker = mbox.NewTracker(src.Path)
		enricher = mbox.NewEnricher(src.Path, identities, mapper)

	case "twitter":
		client := twitter.NewClient(ctx, src.Key, src.Secret)
		index = src.Index
		if index == "" {
			index = domain.IndexName(twitter.Name, strings.TrimPrefix(src.Query, "#"))
		}
		tracker = twitter.NewTracker(client, src.Query, src.PageSize)
		enricher = twitter.NewEnricher(identities, mapper)

	default:
		return nil, fmt.Errorf("source type %q: %w", src.Type, domain.ErrUnsupportedType)
	}

	p.source = domain.Source{
		Name:      src.Name,
		URL:       src.URL,
		Index:     index,
		BatchSize: src.BatchSize,
		Detail:    src.Detail,
	}
	p.enricher = enricher

	if rawStore == nil {
		var err error
		rawStore, err = p.newRawStore(cfg, engine, index)
		if err != nil {
			return nil, err
		}
	}

	indexer := elastic.NewWriter(engine, src.BatchSize)
	p.harvester = services.NewHarvester(p.source, tracker, enricher, rawStore, indexer, engine)
	return p, nil
}

// newRawStore selects the raw tier: the local cache when configured,
// the engine's raw index otherwise.
func (p *pipeline) newRawStore(cfg *file.Config, engine *elastic.Client, index string) (driven.RawStore, error) {
	if cfg.Cache.Dir != "" {
		store, err := sqlite.NewRawStore(cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, store.Close)
		return store, nil
	}
	return elastic.NewRawStore(engine, index+"_raw", nil), nil
}
