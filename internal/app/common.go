package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/commit"
	"github.com/blackwell-systems/wpgh/internal/config"
	"github.com/blackwell-systems/wpgh/internal/git"
	"github.com/blackwell-systems/wpgh/internal/logging"
	"github.com/blackwell-systems/wpgh/internal/message"
	"github.com/blackwell-systems/wpgh/internal/output"
	"github.com/blackwell-systems/wpgh/internal/store"
	"github.com/blackwell-systems/wpgh/internal/watcher"
	"github.com/blackwell-systems/wpgh/internal/wp"
)

// session holds what one command invocation needs: config, logger, the
// WP-CLI client and, when enabled, the history store.
type session struct {
	cfg     *config.Config
	log     *logrus.Entry
	wp      *wp.Client
	aliases *config.AliasConfig
	history *store.Store
}

// openSession loads config and sets up logging. It does not touch WP-CLI
// or git.
func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logging.Configure(cfg.Logging, os.Stderr)
	if verbose {
		logging.SetVerbose()
	}
	log := logging.NewLogger("app")
	if cfg.Path != "" {
		log.WithField("path", cfg.Path).Debug("loaded config")
	}

	s := &session{cfg: cfg, log: log}

	wpPath := cfg.WPPath
	if wpPathFlag != "" {
		wpPath = wpPathFlag
	}
	s.wp = newWPClient(cfg.WPBin, wpPath)

	s.aliases = &config.AliasConfig{}
	if dir, err := config.Dir(); err == nil {
		if a, err := config.LoadAliases(dir); err != nil {
			log.WithError(err).Warn("failed to read aliases file")
		} else {
			s.aliases = a
		}
	}

	return s, nil
}

// Close releases the history store.
func (s *session) Close() error {
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// getDBPath returns the history database path from the flag or config.
func (s *session) getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	return s.cfg.HistoryDB()
}

// openHistory opens the history store unless history is disabled. Failure
// to open it is logged, not fatal: commits matter more than the record.
func (s *session) openHistory() *store.Store {
	if noHistory || !s.cfg.HistoryEnabled() {
		return nil
	}
	path, err := s.getDBPath()
	if err != nil {
		s.log.WithError(err).Warn("history disabled")
		return nil
	}
	st, err := store.Open(path)
	if err != nil {
		s.log.WithError(err).Warn("history disabled")
		return nil
	}
	s.history = st
	return st
}

// contentDir returns WP_CONTENT_DIR from config or WP-CLI.
func (s *session) contentDir(ctx context.Context) (string, error) {
	if s.cfg.ContentDir != "" {
		return s.cfg.ContentDir, nil
	}
	dir, err := s.wp.ContentDir(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to locate wp-content: %w", err)
	}
	return dir, nil
}

// repoRoot resolves the git repository: flag, then env/config, then the
// WordPress root.
func (s *session) repoRoot(ctx context.Context) (string, error) {
	if repoRootFlag != "" {
		return repoRootFlag, nil
	}
	if s.cfg.RepoRoot != "" {
		return s.cfg.RepoRoot, nil
	}
	root, err := s.wp.ABSPath(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to locate the WordPress root (set --repo-root or %s): %w", config.EnvRepoRoot, err)
	}
	return root, nil
}

// orchestrator wires the collaborators for an install or update.
func (s *session) orchestrator(ctx context.Context) (*commit.Orchestrator, error) {
	contentDir, err := s.contentDir(ctx)
	if err != nil {
		return nil, err
	}
	root, err := s.repoRoot(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := git.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	messages, err := message.New(s.cfg.Messages.Overrides())
	if err != nil {
		return nil, fmt.Errorf("invalid message template in %s: %w", s.cfg.Path, err)
	}

	var src asset.Source = s.wp
	if output.IsTerminal(os.Stderr) {
		src = spinnerSource{s.wp}
	}

	orch := commit.New(src, repo, messages, contentDir)
	orch.RepoRoot = repo.Root
	if s.cfg.TrackingEnabled() {
		orch.Tracker = watcher.Tracker{}
	}
	if st := s.openHistory(); st != nil {
		orch.History = st
	}

	s.log.WithFields(logrus.Fields{
		"repo":        repo.Root,
		"content_dir": contentDir,
	}).Debug("orchestrator ready")
	return orch, nil
}

// commitRequest builds the orchestrator request; the mutation streams
// WP-CLI output to the command's stdout and stderr.
func commitRequest(inv *invocation, ids []string, client *wp.Client, cmd *cobra.Command) commit.Request {
	return commit.Request{
		Op:   inv.Op,
		Kind: inv.Kind,
		IDs:  ids,
		Mutate: func(ctx context.Context) error {
			return client.Run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), inv.wpArgs()...)
		},
	}
}

// spinnerSource shows a spinner on stderr while WP-CLI is queried.
type spinnerSource struct {
	asset.Source
}

func (s spinnerSource) ListPlugins(ctx context.Context) (map[string]asset.PluginInfo, error) {
	sp := output.NewSpinner("Reading installed plugins")
	sp.Start()
	defer sp.Stop()
	return s.Source.ListPlugins(ctx)
}

func (s spinnerSource) GetTheme(ctx context.Context, id string) (asset.ThemeInfo, bool, error) {
	sp := output.NewSpinner("Reading theme " + id)
	sp.Start()
	defer sp.Stop()
	return s.Source.GetTheme(ctx, id)
}
