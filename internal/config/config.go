package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/logging"
	"github.com/blackwell-systems/wpgh/internal/message"
)

// Environment overrides.
const (
	EnvRepoRoot = "WP_CLI_GIT_HELPER_REPO_ROOT"
	EnvWPBin    = "WPGH_WP_BIN"
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{"wpgh.yml", "wpgh.yaml", "wpgh.toml"}

// Config is the contents of wpgh.yml (or wpgh.toml).
type Config struct {
	// RepoRoot is the git work tree. Defaults to the WordPress ABSPATH.
	RepoRoot string `yaml:"repo_root" toml:"repo_root"`
	// WPBin is the WP-CLI executable.
	WPBin string `yaml:"wp_bin" toml:"wp_bin"`
	// WPPath is passed to WP-CLI as --path.
	WPPath string `yaml:"wp_path" toml:"wp_path"`
	// ContentDir overrides WP_CONTENT_DIR discovery.
	ContentDir string `yaml:"content_dir" toml:"content_dir"`
	// TrackChanges enables the filesystem recorder (default true).
	TrackChanges *bool `yaml:"track_changes" toml:"track_changes"`

	History  HistoryConfig  `yaml:"history" toml:"history"`
	Logging  logging.Config `yaml:"logging" toml:"logging"`
	Messages MessagesConfig `yaml:"messages" toml:"messages"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled" toml:"enabled"`
	DB      string `yaml:"db" toml:"db"`
}

// MessagesConfig overrides commit message templates.
type MessagesConfig struct {
	Plugin OperationTemplates `yaml:"plugin" toml:"plugin"`
	Theme  OperationTemplates `yaml:"theme" toml:"theme"`
}

// OperationTemplates holds text/template strings per operation.
type OperationTemplates struct {
	Install string `yaml:"install" toml:"install"`
	Update  string `yaml:"update" toml:"update"`
}

// Overrides converts the templates for the message builder.
func (m MessagesConfig) Overrides() message.Overrides {
	return message.Overrides{
		asset.Plugin: {asset.Install: m.Plugin.Install, asset.Update: m.Plugin.Update},
		asset.Theme:  {asset.Install: m.Theme.Install, asset.Update: m.Theme.Update},
	}
}

// HistoryEnabled reports whether runs should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// TrackingEnabled reports whether the filesystem recorder should run.
func (c *Config) TrackingEnabled() bool {
	return c.TrackChanges == nil || *c.TrackChanges
}

// HistoryDB returns the history database path, defaulting to
// ~/.wpgh/history.db.
func (c *Config) HistoryDB() (string, error) {
	if c.History.DB != "" {
		return expandPath(c.History.DB), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".wpgh", "history.db"), nil
}

// Load reads the config file at path. With an empty path it searches the
// current directory, then Dir(); finding nothing yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = find()
	}

	cfg := &Config{}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func find() string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if dir, err := Dir(); err == nil {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	c.Path = path
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRepoRoot); v != "" {
		c.RepoRoot = v
	}
	if v := os.Getenv(EnvWPBin); v != "" {
		c.WPBin = v
	}
	c.RepoRoot = expandPath(c.RepoRoot)
	c.WPPath = expandPath(c.WPPath)
	c.ContentDir = expandPath(c.ContentDir)
}

// expandPath expands a leading tilde.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
