// Package projects resolves (source, key) pairs to project buckets
// from a YAML projects map file. The map is external configuration:
// sources key it differently (bugzilla by product, mailing lists by
// archive path, twitter by hashtag).
package projects

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure Mapper implements the interface.
var _ driven.ProjectMapper = (*Mapper)(nil)

// Mapper is a file-backed project mapper.
type Mapper struct {
	// mappings is source name -> key -> project.
	mappings map[string]map[string]string
}

// NewMapper creates an empty mapper; every lookup misses.
func NewMapper() *Mapper {
	return &Mapper{mappings: make(map[string]map[string]string)}
}

// Load reads a projects map YAML file of the form:
//
//	bugzilla:
//	  Tools: tooling
//	mls:
//	  /mnt/mailman_archives/dev.mbox/dev.mbox: platform
func Load(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading projects map: %w", err)
	}

	var mappings map[string]map[string]string
	if err := yaml.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parsing projects map: %w", err)
	}
	if mappings == nil {
		mappings = make(map[string]map[string]string)
	}
	return &Mapper{mappings: mappings}, nil
}

// Project returns the mapped project for a (source, key) pair and
// whether the mapping was explicit. Misses are not errors: callers
// fall back to their default bucket.
func (m *Mapper) Project(source, key string) (string, bool) {
	bySource, ok := m.mappings[source]
	if !ok {
		return "", false
	}
	project, ok := bySource[key]
	return project, ok
}

// Set adds one mapping. Test and wiring helper.
func (m *Mapper) Set(source, key, project string) {
	if m.mappings[source] == nil {
		m.mappings[source] = make(map[string]string)
	}
	m.mappings[source][key] = project
}
