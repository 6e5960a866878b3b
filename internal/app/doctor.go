package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/config"
	"github.com/blackwell-systems/wpgh/internal/git"
	"github.com/blackwell-systems/wpgh/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that WP-CLI, git and the repository are usable",
	Long: `Runs diagnostic checks before you rely on wpgh.

Checks:
  • git and WP-CLI are on PATH
  • WP-CLI can reach the WordPress install
  • The repository root is a git work tree
  • The history database is accessible`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintln(out, "Running wpgh diagnostics...")
	fmt.Fprintln(out)

	// Critical issues make the command fail; warnings only get reported.
	criticalIssues := 0
	warningIssues := 0

	if s.cfg.Path != "" {
		fmt.Fprintln(out, "✓ Config loaded:", s.cfg.Path)
	}

	// Check 1: git on PATH
	if p, err := lookPath("git"); err != nil {
		fmt.Fprintln(out, "✗ git not found on PATH")
		criticalIssues++
	} else {
		fmt.Fprintln(out, "✓ git found:", p)
	}

	// Check 2: WP-CLI on PATH and answering
	wpOK := true
	if p, err := lookPath(s.wp.Bin); err != nil {
		fmt.Fprintf(out, "✗ WP-CLI (%s) not found on PATH\n", s.wp.Bin)
		fmt.Fprintf(out, "  Action: install WP-CLI or set wp_bin / %s\n", config.EnvWPBin)
		criticalIssues++
		wpOK = false
	} else if v, err := s.wp.Version(ctx); err != nil {
		fmt.Fprintln(out, "✗ WP-CLI failed to run:", err)
		criticalIssues++
		wpOK = false
	} else {
		fmt.Fprintf(out, "✓ WP-CLI %s: %s\n", v, p)
	}

	// Check 3: WordPress reachable
	if wpOK {
		if dir, err := s.contentDir(ctx); err != nil {
			fmt.Fprintln(out, "✗ Cannot locate wp-content:", err)
			fmt.Fprintln(out, "  Action: run from the WordPress directory or pass --wp-path")
			criticalIssues++
		} else {
			fmt.Fprintln(out, "✓ wp-content:", dir)
			for _, kind := range []asset.Kind{asset.Plugin, asset.Theme} {
				if ids, err := s.wp.IDs(ctx, kind); err != nil {
					fmt.Fprintf(out, "⚠ Cannot list %ss: %v\n", kind, err)
					warningIssues++
				} else {
					fmt.Fprintf(out, "✓ %d %ss installed\n", len(ids), kind)
				}
			}
		}
	}

	// Check 4: repository
	if root, err := s.repoRoot(ctx); err != nil {
		fmt.Fprintln(out, "✗ Cannot determine repository root:", err)
		criticalIssues++
	} else if !git.IsRepo(ctx, root) {
		fmt.Fprintln(out, "✗ Not a git work tree:", root)
		fmt.Fprintln(out, "  Action: run 'git init' there or set --repo-root")
		criticalIssues++
	} else {
		fmt.Fprintln(out, "✓ Repository:", root)
	}

	// Check 5: history database, warning only
	warningIssues += checkHistory(out, s)

	fmt.Fprintln(out)
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		return nil
	}
	if criticalIssues > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Fprintf(out, "Found %d warning(s). wpgh is usable.\n", warningIssues)
	return nil
}

func checkHistory(out io.Writer, s *session) int {
	if noHistory || !s.cfg.HistoryEnabled() {
		fmt.Fprintln(out, "⚠ History disabled")
		return 1
	}
	path, err := s.getDBPath()
	if err != nil {
		fmt.Fprintln(out, "⚠ History database path error:", err)
		return 1
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "✓ History database will be created at:", path)
		return 0
	}
	st, err := store.New(path)
	if err != nil {
		fmt.Fprintln(out, "⚠ Cannot open history database:", err)
		return 1
	}
	defer st.Close()
	runs, err := st.ListRuns(0)
	if err != nil {
		fmt.Fprintln(out, "⚠ Cannot read history:", err)
		return 1
	}
	fmt.Fprintf(out, "✓ History database: %s (%d runs)\n", path, len(runs))
	return 0
}
