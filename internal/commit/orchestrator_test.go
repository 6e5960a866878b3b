package commit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/message"
	"github.com/blackwell-systems/wpgh/internal/store"
)

// fakeSite is an in-memory WordPress whose state the mutate step replaces.
type fakeSite struct {
	plugins map[string]asset.PluginInfo
	themes  map[string]asset.ThemeInfo
	lookups int
}

func (f *fakeSite) ListPlugins(ctx context.Context) (map[string]asset.PluginInfo, error) {
	f.lookups++
	return f.plugins, nil
}

func (f *fakeSite) GetTheme(ctx context.Context, id string) (asset.ThemeInfo, bool, error) {
	f.lookups++
	th, ok := f.themes[id]
	return th, ok, nil
}

type commitCall struct {
	path    string
	message string
}

type fakeVCS struct {
	staged    []string
	commits   []commitCall
	failStage map[string]error
	failNext  []error // consumed per Commit call
}

func (f *fakeVCS) Stage(ctx context.Context, path string) error {
	if err := f.failStage[filepath.Base(path)]; err != nil {
		return err
	}
	f.staged = append(f.staged, path)
	return nil
}

func (f *fakeVCS) Commit(ctx context.Context, msg string) error {
	if len(f.failNext) > 0 {
		err := f.failNext[0]
		f.failNext = f.failNext[1:]
		if err != nil {
			return err
		}
	}
	f.commits = append(f.commits, commitCall{path: f.staged[len(f.staged)-1], message: msg})
	return nil
}

func (f *fakeVCS) HeadCommit(ctx context.Context) (string, error) {
	return "40588985cc6ef1904350932106737be933b141ce", nil
}

type fakeTracker struct {
	touched map[string]bool
	dirs    []string
}

func (f *fakeTracker) Track(dir string) (func() map[string]bool, error) {
	f.dirs = append(f.dirs, dir)
	return func() map[string]bool { return f.touched }, nil
}

func newTestOrchestrator(t *testing.T, site *fakeSite, vcs *fakeVCS, assetDirs ...string) *Orchestrator {
	t.Helper()
	content := t.TempDir()
	for _, d := range assetDirs {
		require.NoError(t, os.MkdirAll(filepath.Join(content, d), 0755))
	}
	b, err := message.New(nil)
	require.NoError(t, err)
	return New(site, vcs, b, content)
}

func TestRun_PluginInstall(t *testing.T) {
	site := &fakeSite{plugins: map[string]asset.PluginInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "plugins/jetpack")

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Plugin,
		IDs:  []string{"jetpack"},
		Mutate: func(ctx context.Context) error {
			site.plugins = map[string]asset.PluginInfo{
				"jetpack/jetpack.php": {Name: "Jetpack by WordPress.com", Version: "3.0"},
			}
			return nil
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].Before)
	require.Len(t, vcs.commits, 1)
	assert.Equal(t, "Install plugin: jetpack.\n\nName: Jetpack by WordPress.com\nVersion: 3.0", vcs.commits[0].message)
	assert.Equal(t, filepath.Join(o.ContentDir, "plugins", "jetpack"), vcs.commits[0].path)
	require.Len(t, res.Committed, 1)
	assert.Equal(t, "40588985cc6ef1904350932106737be933b141ce", res.Committed[0].Hash)
}

func TestRun_ThemeUpdate(t *testing.T) {
	site := &fakeSite{themes: map[string]asset.ThemeInfo{"make": {Name: "Make", Version: "1.0.0"}}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "themes/make")

	_, err := o.Run(context.Background(), Request{
		Op:   asset.Update,
		Kind: asset.Theme,
		IDs:  []string{"make"},
		Mutate: func(ctx context.Context) error {
			site.themes["make"] = asset.ThemeInfo{Name: "Make", Version: "1.4.6"}
			return nil
		},
	})
	require.NoError(t, err)

	require.Len(t, vcs.commits, 1)
	assert.Equal(t, "Update theme: make.\n\nName: Make\nNew version: 1.4.6\nPrevious version: 1.0.0", vcs.commits[0].message)
}

func TestRun_TypoProducesNothing(t *testing.T) {
	site := &fakeSite{plugins: map[string]asset.PluginInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs)

	res, err := o.Run(context.Background(), Request{
		Op:     asset.Install,
		Kind:   asset.Plugin,
		IDs:    []string{"jetpak"},
		Mutate: func(ctx context.Context) error { return nil },
	})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, vcs.commits)
}

func TestRun_MutationFailure(t *testing.T) {
	site := &fakeSite{plugins: map[string]asset.PluginInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "plugins/jetpack")
	boom := errors.New("exit status 1")

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Plugin,
		IDs:  []string{"jetpack"},
		Mutate: func(ctx context.Context) error {
			site.plugins = map[string]asset.PluginInfo{"jetpack/jetpack.php": {Name: "Jetpack", Version: "3.0"}}
			return boom
		},
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrExternalMutation)
	assert.ErrorIs(t, err, boom)
	var me *MutationError
	assert.ErrorAs(t, err, &me)
	// only the before snapshot ran
	assert.Equal(t, 1, site.lookups)
	assert.Empty(t, vcs.staged)
	assert.Empty(t, vcs.commits)
}

func TestRun_InvalidArguments(t *testing.T) {
	site := &fakeSite{}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs)
	called := false
	mutate := func(ctx context.Context) error { called = true; return nil }

	tests := []Request{
		{Op: "delete", Kind: asset.Plugin, Mutate: mutate},
		{Op: asset.Install, Kind: "core", Mutate: mutate},
		{Op: asset.Install, Kind: asset.Plugin},
	}
	for _, req := range tests {
		_, err := o.Run(context.Background(), req)
		assert.ErrorIs(t, err, asset.ErrInvalidArguments)
	}
	assert.False(t, called)
	assert.Zero(t, site.lookups)
}

func TestRun_SkipsMissingDirectory(t *testing.T) {
	site := &fakeSite{themes: map[string]asset.ThemeInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "themes/make")

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Theme,
		IDs:  []string{"make", "storefront"},
		Mutate: func(ctx context.Context) error {
			site.themes["make"] = asset.ThemeInfo{Name: "Make", Version: "1.4.6"}
			site.themes["storefront"] = asset.ThemeInfo{Name: "Storefront", Version: "4.5"}
			return nil
		},
	})
	require.NoError(t, err)

	assert.Len(t, res.Records, 2)
	assert.Len(t, vcs.commits, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "storefront", res.Skipped[0].ID)
}

func TestRun_SingleFilePlugin(t *testing.T) {
	site := &fakeSite{plugins: map[string]asset.PluginInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "plugins")
	require.NoError(t, os.WriteFile(filepath.Join(o.ContentDir, "plugins", "hello.php"), []byte("<?php\n"), 0644))

	_, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Plugin,
		IDs:  []string{"hello"},
		Mutate: func(ctx context.Context) error {
			site.plugins = map[string]asset.PluginInfo{"hello.php": {Name: "Hello Dolly", Version: "1.7.2"}}
			return nil
		},
	})
	require.NoError(t, err)
	require.Len(t, vcs.staged, 1)
	assert.Equal(t, filepath.Join(o.ContentDir, "plugins", "hello.php"), vcs.staged[0])
}

func TestRun_UpdateWithoutPriorState(t *testing.T) {
	site := &fakeSite{themes: map[string]asset.ThemeInfo{"make": {Name: "Make", Version: "1.0.0"}}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "themes/make", "themes/storefront")

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Update,
		Kind: asset.Theme,
		IDs:  []string{"storefront", "make"},
		Mutate: func(ctx context.Context) error {
			site.themes["storefront"] = asset.ThemeInfo{Name: "Storefront", Version: "4.5"}
			site.themes["make"] = asset.ThemeInfo{Name: "Make", Version: "1.4.6"}
			return nil
		},
	})

	assert.ErrorIs(t, err, asset.ErrMissingPriorState)
	assert.NotErrorIs(t, err, ErrVersionControl)
	require.NotNil(t, res)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "storefront", res.Failed[0].ID)
	// the other asset is still committed
	require.Len(t, vcs.commits, 1)
	assert.Contains(t, vcs.commits[0].message, "Update theme: make.")
	assert.Len(t, vcs.staged, 1)
}

func TestRun_CommitFailureContinues(t *testing.T) {
	site := &fakeSite{plugins: map[string]asset.PluginInfo{}}
	nothing := errors.New("nothing to commit")
	vcs := &fakeVCS{
		failStage: map[string]error{"akismet": errors.New("pathspec did not match")},
		failNext:  []error{nothing, nil},
	}
	o := newTestOrchestrator(t, site, vcs, "plugins/jetpack", "plugins/akismet", "plugins/hello-dolly")

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Plugin,
		IDs:  []string{"jetpack", "akismet", "hello-dolly"},
		Mutate: func(ctx context.Context) error {
			site.plugins = map[string]asset.PluginInfo{
				"jetpack/jetpack.php":         {Name: "Jetpack", Version: "3.0"},
				"akismet/akismet.php":         {Name: "Akismet", Version: "5.3"},
				"hello-dolly/hello-dolly.php": {Name: "Hello Dolly", Version: "1.7.2"},
			}
			return nil
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionControl)
	assert.ErrorIs(t, err, nothing)

	require.NotNil(t, res)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "jetpack", res.Failed[0].ID)
	assert.Equal(t, "akismet", res.Failed[1].ID)

	var ce *CommitError
	require.ErrorAs(t, res.Failed[1].Err, &ce)
	assert.Equal(t, StepStage, ce.Step)

	require.Len(t, res.Committed, 1)
	assert.Equal(t, "hello-dolly", res.Committed[0].ID)
}

func TestRun_CommitOrderFollowsAfterSnapshot(t *testing.T) {
	site := &fakeSite{themes: map[string]asset.ThemeInfo{}}
	vcs := &fakeVCS{}
	o := newTestOrchestrator(t, site, vcs, "themes/a", "themes/b")

	_, err := o.Run(context.Background(), Request{
		Op:   asset.Install,
		Kind: asset.Theme,
		IDs:  []string{"b", "a"},
		Mutate: func(ctx context.Context) error {
			site.themes["a"] = asset.ThemeInfo{Name: "A", Version: "1"}
			site.themes["b"] = asset.ThemeInfo{Name: "B", Version: "1"}
			return nil
		},
	})
	require.NoError(t, err)
	require.Len(t, vcs.commits, 2)
	assert.Contains(t, vcs.commits[0].message, "Install theme: b.")
	assert.Contains(t, vcs.commits[1].message, "Install theme: a.")
}

func TestRun_TrackerAndHistory(t *testing.T) {
	st, err := store.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.CreateSchema())
	defer st.Close()

	site := &fakeSite{themes: map[string]asset.ThemeInfo{"make": {Name: "Make", Version: "1.0.0"}}}
	vcs := &fakeVCS{}
	tracker := &fakeTracker{touched: map[string]bool{"make": true}}
	o := newTestOrchestrator(t, site, vcs, "themes/make")
	o.Tracker = tracker
	o.History = st
	o.RepoRoot = "/srv/www"

	res, err := o.Run(context.Background(), Request{
		Op:   asset.Update,
		Kind: asset.Theme,
		IDs:  []string{"make"},
		Mutate: func(ctx context.Context) error {
			site.themes["make"] = asset.ThemeInfo{Name: "Make", Version: "1.4.6"}
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(o.ContentDir, "themes")}, tracker.dirs)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Touched)

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].CommitCount)

	commits, err := st.GetRunCommits(runs[0].ID)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "1.0.0", commits[0].PreviousVersion)
	assert.Equal(t, "1.4.6", commits[0].Version)
	assert.True(t, commits[0].Touched)
	assert.Equal(t, "40588985cc6ef1904350932106737be933b141ce", commits[0].CommitHash)
}

func TestRun_HistoryRecordsMutationFailure(t *testing.T) {
	st, err := store.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.CreateSchema())
	defer st.Close()

	o := newTestOrchestrator(t, &fakeSite{}, &fakeVCS{})
	o.History = st

	_, err = o.Run(context.Background(), Request{
		Op:     asset.Install,
		Kind:   asset.Plugin,
		IDs:    []string{"jetpack"},
		Mutate: func(ctx context.Context) error { return errors.New("download failed") },
	})
	require.Error(t, err)

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "download failed")
}
