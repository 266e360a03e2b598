package policyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"), "/ws")
	assert.Equal(t, "/ws", cfg.WorkspaceRoot)
	assert.True(t, cfg.Normalization.Filesystem.CollapseTemp)
	assert.Equal(t, ArgvModeFull, cfg.Normalization.Exec.ArgvMode)
}

func TestLoadDeepMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
version: 1
normalization:
  filesystem:
    collapse_temp: false
policy:
  network:
    allow_hosts: ["api.good.com"]
    enforce_allowlist: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg := Load(path, "/ws")
	assert.False(t, cfg.Normalization.Filesystem.CollapseTemp)
	assert.True(t, cfg.Normalization.Filesystem.CollapseHome, "untouched default should survive merge")
	assert.Equal(t, []string{"api.good.com"}, cfg.Policy.Network.AllowHosts)
	assert.True(t, cfg.Policy.Network.EnforceAllowlist)
}

func TestLoadLegacyRedactHostsRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
redaction:
  redact_hosts: ["internal.corp"]
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg := Load(path, "/ws")
	assert.Equal(t, []string{"internal.corp"}, cfg.Redaction.RedactURLs)
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	cfg := Load(path, "/ws")
	assert.Equal(t, "/ws", cfg.WorkspaceRoot)
}

func TestLoadSchemaViolationFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// argv_mode must be one of full|hash|none.
	require.NoError(t, os.WriteFile(path, []byte("normalization:\n  exec:\n    argv_mode: bogus\n"), 0o644))

	cfg := Load(path, "/ws")
	assert.Equal(t, ArgvModeFull, cfg.Normalization.Exec.ArgvMode)
}

func TestLoadRelativeWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace_root: sub\n"), 0o644))

	cfg := Load(path, "/ws")
	assert.Equal(t, filepath.Join("/ws", "sub"), cfg.WorkspaceRoot)
}
