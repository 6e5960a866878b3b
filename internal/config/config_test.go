package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/wpgh/internal/asset"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv(EnvRepoRoot, "")
	t.Setenv(EnvWPBin, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.True(t, cfg.HistoryEnabled())
	assert.True(t, cfg.TrackingEnabled())

	db, err := cfg.HistoryDB()
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(db))
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	content := `repo_root: /srv/www
wp_bin: /usr/local/bin/wp
wp_path: /srv/www/wordpress
track_changes: false
history:
  enabled: false
  db: /var/lib/wpgh.db
logging:
  level: debug
  format: json
messages:
  plugin:
    update: "Bump {{.ID}} to {{.Version}}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wpgh.yml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wpgh.yml"), cfg.Path)
	assert.Equal(t, "/srv/www", cfg.RepoRoot)
	assert.Equal(t, "/usr/local/bin/wp", cfg.WPBin)
	assert.Equal(t, "/srv/www/wordpress", cfg.WPPath)
	assert.False(t, cfg.TrackingEnabled())
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	db, err := cfg.HistoryDB()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wpgh.db", db)

	ov := cfg.Messages.Overrides()
	assert.Equal(t, "Bump {{.ID}} to {{.Version}}", ov[asset.Plugin][asset.Update])
	assert.Empty(t, ov[asset.Theme][asset.Install])
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	content := `repo_root = "/srv/www"
content_dir = "/srv/www/wp-content"

[messages.theme]
install = "Add theme {{.Name}}"
`
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/www", cfg.RepoRoot)
	assert.Equal(t, "/srv/www/wp-content", cfg.ContentDir)
	assert.Equal(t, "Add theme {{.Name}}", cfg.Messages.Theme.Install)
}

func TestLoad_XDGDir(t *testing.T) {
	dir := isolate(t)
	xdg := filepath.Join(dir, "xdg", "wpgh")
	require.NoError(t, os.MkdirAll(xdg, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "wpgh.toml"), []byte(`wp_bin = "wp-cli.phar"`), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "wp-cli.phar", cfg.WPBin)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wpgh.yaml"), []byte("repo_root: /from/file\n"), 0644))
	t.Setenv(EnvRepoRoot, "/from/env")
	t.Setenv(EnvWPBin, "/opt/wp")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.RepoRoot)
	assert.Equal(t, "/opt/wp", cfg.WPBin)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("repo_root: [unterminated"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "sites"), expandPath("~/sites"))
	assert.Equal(t, "/abs", expandPath("/abs"))
	assert.Equal(t, "", expandPath(""))
}
