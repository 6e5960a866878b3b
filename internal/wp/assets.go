package wp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/wpgh/internal/asset"
)

// pluginListEntry is one element of `wp plugin list --format=json`.
type pluginListEntry struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Version string `json:"version"`
	File    string `json:"file"`
	Status  string `json:"status"`
}

// themeGetOutput is `wp theme get <slug> --format=json --fields=name,version`.
type themeGetOutput struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var _ asset.Source = (*Client)(nil)

// ListPlugins returns installed plugins keyed by main file. Must-use plugins
// and drop-ins are not part of the regular plugin directory and are left out.
func (c *Client) ListPlugins(ctx context.Context) (map[string]asset.PluginInfo, error) {
	out, err := c.output(ctx, "plugin", "list", "--format=json", "--fields=name,title,version,file,status")
	if err != nil {
		return nil, err
	}

	var entries []pluginListEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse wp plugin list output: %w", err)
	}

	plugins := make(map[string]asset.PluginInfo, len(entries))
	for _, e := range entries {
		if e.Status == "must-use" || e.Status == "dropin" {
			continue
		}
		file := e.File
		if file == "" {
			// Older WP-CLI releases lack the file field; slug/slug.php is
			// the common layout.
			file = e.Name + "/" + e.Name + ".php"
		}
		name := e.Title
		if name == "" {
			name = e.Name
		}
		plugins[file] = asset.PluginInfo{Name: name, Version: e.Version}
	}
	return plugins, nil
}

// PluginIDs returns the slug of every installed plugin, sorted.
func (c *Client) PluginIDs(ctx context.Context) ([]string, error) {
	plugins, err := c.ListPlugins(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(plugins))
	ids := make([]string, 0, len(plugins))
	for file := range plugins {
		slug := asset.PluginSlug(file)
		if seen[slug] {
			continue
		}
		seen[slug] = true
		ids = append(ids, slug)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetTheme looks up a theme by stylesheet slug. A theme that is not
// installed is reported with exists == false.
func (c *Client) GetTheme(ctx context.Context, id string) (asset.ThemeInfo, bool, error) {
	_, err := c.output(ctx, "theme", "is-installed", id)
	if err != nil {
		if exitCode(err) == 1 {
			return asset.ThemeInfo{}, false, nil
		}
		return asset.ThemeInfo{}, false, err
	}

	out, err := c.output(ctx, "theme", "get", id, "--fields=name,version", "--format=json")
	if err != nil {
		return asset.ThemeInfo{}, false, err
	}

	var th themeGetOutput
	if err := json.Unmarshal(out, &th); err != nil {
		return asset.ThemeInfo{}, false, fmt.Errorf("failed to parse wp theme get output for %s: %w", id, err)
	}
	return asset.ThemeInfo{Name: th.Name, Version: th.Version}, true, nil
}

// ThemeIDs returns the slug of every installed theme, sorted.
func (c *Client) ThemeIDs(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, "theme", "list", "--field=name")
	if err != nil {
		return nil, err
	}
	return nameLines(out), nil
}

// UpdatableIDs returns the slugs of assets of kind that WP-CLI reports an
// update for. This is the set `update --all` will touch.
func (c *Client) UpdatableIDs(ctx context.Context, kind asset.Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown asset kind %q", asset.ErrInvalidArguments, kind)
	}
	out, err := c.output(ctx, string(kind), "list", "--update=available", "--field=name")
	if err != nil {
		return nil, err
	}
	return nameLines(out), nil
}

// nameLines parses `--field=name` output, one slug per line, sorted.
func nameLines(out []byte) []string {
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	sort.Strings(ids)
	return ids
}

// IDs returns every installed asset of kind.
func (c *Client) IDs(ctx context.Context, kind asset.Kind) ([]string, error) {
	switch kind {
	case asset.Plugin:
		return c.PluginIDs(ctx)
	case asset.Theme:
		return c.ThemeIDs(ctx)
	}
	return nil, fmt.Errorf("%w: unknown asset kind %q", asset.ErrInvalidArguments, kind)
}
