package asset

import (
	"context"
	"fmt"
	"path"
	"sort"
)

// Inspector looks up the current metadata of one asset. A missing asset is
// reported as found == false, never as an error.
type Inspector interface {
	Lookup(ctx context.Context, id string) (md Metadata, found bool, err error)
}

// PluginInfo is the descriptor the package manager reports for a plugin file.
type PluginInfo struct {
	Name    string
	Version string
}

// PluginLister enumerates installed plugins keyed by main file path
// relative to the plugins directory (e.g. "jetpack/jetpack.php").
type PluginLister interface {
	ListPlugins(ctx context.Context) (map[string]PluginInfo, error)
}

// ThemeInfo is the descriptor the package manager reports for a theme.
type ThemeInfo struct {
	Name    string
	Version string
}

// ThemeGetter looks up a single theme by stylesheet slug.
type ThemeGetter interface {
	GetTheme(ctx context.Context, id string) (ThemeInfo, bool, error)
}

// PluginInspector resolves plugin ids against the plugin list.
type PluginInspector struct {
	Lister PluginLister
}

// Lookup matches id against a single-file plugin ("hello.php") or a plugin
// directory ("jetpack/jetpack.php"). A directory name of "." never matches.
func (p *PluginInspector) Lookup(ctx context.Context, id string) (Metadata, bool, error) {
	plugins, err := p.Lister.ListPlugins(ctx)
	if err != nil {
		return Metadata{}, false, err
	}

	// Map iteration is random; walk files in sorted order so a slug that
	// matches more than one entry resolves the same way every time.
	files := make([]string, 0, len(plugins))
	for file := range plugins {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		if !PluginFileMatches(file, id) {
			continue
		}
		info := plugins[file]
		return Metadata{ID: id, Name: info.Name, Version: info.Version, File: file}, true, nil
	}
	return Metadata{}, false, nil
}

// PluginFileMatches reports whether a plugin main file belongs to slug id.
func PluginFileMatches(file, id string) bool {
	if id == "" || id == "." {
		return false
	}
	return file == id+".php" || path.Dir(file) == id
}

// PluginSlug derives the identifier for a plugin main file.
func PluginSlug(file string) string {
	if dir := path.Dir(file); dir != "." {
		return dir
	}
	base := path.Base(file)
	return base[:len(base)-len(path.Ext(base))]
}

// ThemeInspector resolves theme ids through a ThemeGetter.
type ThemeInspector struct {
	Getter ThemeGetter
}

// Lookup returns the theme's declared name and version.
func (t *ThemeInspector) Lookup(ctx context.Context, id string) (Metadata, bool, error) {
	theme, exists, err := t.Getter.GetTheme(ctx, id)
	if err != nil {
		return Metadata{}, false, err
	}
	if !exists {
		return Metadata{}, false, nil
	}
	return Metadata{ID: id, Name: theme.Name, Version: theme.Version}, true, nil
}

// Source provides both lookups; the WP-CLI client satisfies it.
type Source interface {
	PluginLister
	ThemeGetter
}

// ForKind returns the inspector variant for kind.
func ForKind(kind Kind, src Source) (Inspector, error) {
	switch kind {
	case Plugin:
		return &PluginInspector{Lister: src}, nil
	case Theme:
		return &ThemeInspector{Getter: src}, nil
	}
	return nil, fmt.Errorf("%w: unknown asset kind %q", ErrInvalidArguments, kind)
}
