// Package file loads the harvest configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// Default values applied to fields the file leaves out.
const (
	DefaultEndpoint  = "http://localhost:9200"
	DefaultPageSize  = 10000
	DefaultBatchSize = 1000
	DefaultDetail    = "change"
)

// SourceConfig describes one tracker to harvest.
type SourceConfig struct {
	// Type selects the connector: bugzilla, mbox, twitter or github.
	Type string `toml:"type"`

	// Name labels the source in logs and identity scoping. Defaults
	// to Type.
	Name string `toml:"name"`

	// URL is the tracker origin (bugzilla), or is unused for sources
	// addressed by other fields.
	URL string `toml:"url"`

	// User and Password authenticate bugzilla requests.
	User     string `toml:"user"`
	Password string `toml:"password"`

	// Token authenticates github requests; Key and Secret are the
	// twitter application credentials.
	Token  string `toml:"token"`
	Key    string `toml:"key"`
	Secret string `toml:"secret"`

	// Owner and Repo address a github repository.
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`

	// Path is the mbox archive directory.
	Path string `toml:"path"`

	// Query is the twitter search query.
	Query string `toml:"query"`

	// Index is the enriched index name. Empty derives it from the URL.
	Index string `toml:"index"`

	// Detail selects the enrichment depth: "change" or "issue".
	Detail string `toml:"detail"`

	// PageSize bounds listing pages; BatchSize bounds bulk batches.
	PageSize  int `toml:"page_size"`
	BatchSize int `toml:"batch_size"`
}

// Config is the full harvest configuration.
type Config struct {
	Elastic struct {
		// Endpoint is the search-engine base URL.
		Endpoint string `toml:"endpoint"`
	} `toml:"elastic"`

	Cache struct {
		// Dir holds the local raw cache database. Empty disables the
		// local cache, keeping raw payloads in the engine only.
		Dir string `toml:"dir"`
	} `toml:"cache"`

	Projects struct {
		// Path is the YAML project-mapping file.
		Path string `toml:"path"`
	} `toml:"projects"`

	Sources []SourceConfig `toml:"sources"`
}

// DefaultPath returns the default configuration file location,
// ~/.harvest/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".harvest", "config.toml"), nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Elastic.Endpoint == "" {
		c.Elastic.Endpoint = DefaultEndpoint
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			src.Name = src.Type
		}
		if src.Detail == "" {
			src.Detail = DefaultDetail
		}
		if src.PageSize <= 0 {
			src.PageSize = DefaultPageSize
		}
		if src.BatchSize <= 0 {
			src.BatchSize = DefaultBatchSize
		}
	}
}

func (c *Config) validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured: %w", domain.ErrInvalidInput)
	}
	for _, src := range c.Sources {
		switch src.Type {
		case "bugzilla":
			if src.URL == "" {
				return fmt.Errorf("bugzilla source needs a url: %w", domain.ErrInvalidInput)
			}
		case "github":
			if src.Owner == "" || src.Repo == "" {
				return fmt.Errorf("github source needs owner and repo: %w", domain.ErrInvalidInput)
			}
		case "mbox":
			if src.Path == "" {
				return fmt.Errorf("mbox source needs a path: %w", domain.ErrInvalidInput)
			}
		case "twitter":
			if src.Key == "" || src.Secret == "" || src.Query == "" {
				return fmt.Errorf("twitter source needs key, secret and query: %w", domain.ErrInvalidInput)
			}
		case "":
			return fmt.Errorf("source with no type: %w", domain.ErrInvalidInput)
		default:
			return fmt.Errorf("unknown source type %q: %w", src.Type, domain.ErrUnsupportedType)
		}
	}
	return nil
}
