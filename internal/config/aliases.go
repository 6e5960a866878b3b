// Package config loads wpgh settings: the wpgh.yml/wpgh.toml config file,
// environment overrides, and the asset alias file.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the wpgh config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/wpgh if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "wpgh"), nil
}

// AliasConfig maps short names typed on the command line to asset slugs,
// e.g. "jp=jetpack" or "woo=woocommerce".
type AliasConfig struct {
	Aliases map[string]string
}

// LoadAliases reads the aliases file at {dir}/aliases and returns the parsed
// config. If the file does not exist, an empty config is returned without an
// error. Invalid or malformed lines are silently skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	path := filepath.Join(dir, "aliases")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		alias := strings.TrimSpace(line[:idx])
		slug := strings.TrimSpace(line[idx+1:])

		if alias == "" || slug == "" {
			continue
		}

		cfg.Aliases[alias] = slug
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Resolve replaces every alias in ids with its slug. Unknown names pass
// through unchanged.
func (a *AliasConfig) Resolve(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if a != nil {
			if slug, ok := a.Aliases[id]; ok {
				out[i] = slug
				continue
			}
		}
		out[i] = id
	}
	return out
}
