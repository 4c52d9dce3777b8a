package projects

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yml")
	content := `bugzilla:
  Tools: tooling
  Core: platform
mls:
  /mnt/mailman_archives/dev.mbox/dev.mbox: platform
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	m, err := Load(path)
	require.NoError(t, err)

	project, ok := m.Project("bugzilla", "Tools")
	assert.True(t, ok)
	assert.Equal(t, "tooling", project)

	_, ok = m.Project("bugzilla", "Unmapped Product")
	assert.False(t, ok, "misses are reported, not defaulted here")

	_, ok = m.Project("twitter", "anything")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestMapper_Set(t *testing.T) {
	m := NewMapper()
	m.Set("twitter", "golang", "language")

	project, ok := m.Project("twitter", "golang")
	assert.True(t, ok)
	assert.Equal(t, "language", project)
}
