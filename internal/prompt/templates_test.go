package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/roundtable/internal/domain"
)

func TestDefaultTemplatesInsertTopic(t *testing.T) {
	templates, err := Default().Templates("the future of work")
	require.NoError(t, err)
	require.Len(t, templates, len(domain.Roles()))

	assert.Contains(t, templates[domain.RoleResearcher], "research specialist focusing on the future of work")
	assert.Contains(t, templates[domain.RoleCritic], "critical thinker examining the future of work")
	for _, role := range domain.Roles() {
		assert.NotContains(t, templates[role], "{{")
	}
}

func TestParseOverridesOneRole(t *testing.T) {
	lib, err := Parse([]byte("roles:\n  critic: \"Tear apart {{.Topic}}.\"\n"))
	require.NoError(t, err)

	templates, err := lib.Templates("remote work")
	require.NoError(t, err)
	assert.Equal(t, "Tear apart remote work.", templates[domain.RoleCritic])
	assert.Contains(t, templates[domain.RoleResearcher], "remote work")
}

func TestParseRejectsUnknownRole(t *testing.T) {
	_, err := Parse([]byte("roles:\n  jester: \"hi\"\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	lib, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, lib)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  analyst: \"Measure {{.Topic}}.\"\n"), 0o644))
	lib, err = Load(path)
	require.NoError(t, err)
	templates, err := lib.Templates("x")
	require.NoError(t, err)
	assert.Equal(t, "Measure x.", templates[domain.RoleAnalyst])

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
