package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, model.DialectGeneric, cfg.Dialect)
	assert.True(t, cfg.ColumnLineage)
	assert.False(t, cfg.FilterCTEs)
	assert.True(t, cfg.IncludeGlobalLineage)
	assert.True(t, cfg.LintEnabled)
}

func TestLoadReadsOverrides(t *testing.T) {
	path := writeConfigFile(t, `
dialect: mysql
options:
  filterCTEs: true
lint:
  enabled: false
  disabledRules:
    - LINT_FAN_IN_WRITE
`)

	l, err := Load(path)
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, model.DialectMySQL, cfg.Dialect)
	assert.True(t, cfg.FilterCTEs)
	assert.False(t, cfg.LintEnabled)
	assert.Equal(t, []string{"LINT_FAN_IN_WRITE"}, cfg.DisabledLintRules)
}

func TestIsYamlOnlyKey(t *testing.T) {
	assert.True(t, IsYamlOnlyKey("dialect"))
	assert.True(t, IsYamlOnlyKey("lint.enabled"))
	assert.False(t, IsYamlOnlyKey("options.filterCTEs"))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, "dialect: generic\n")
	l, err := Load(path)
	require.NoError(t, err)

	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("dialect: postgres\n"), 0o644))

	require.Eventually(t, func() bool {
		return l.Current().Dialect == model.DialectPostgres
	}, 2*time.Second, 10*time.Millisecond)
}
