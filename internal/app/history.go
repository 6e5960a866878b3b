package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpgh/internal/output"
	"github.com/blackwell-systems/wpgh/internal/store"
)

var (
	historyFlagLimit int
	historyFlagAsset string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id | latest]",
	Short: "Show past installs and updates and the commits they created",
	Long: `Show runs recorded in the history database.

Without arguments, lists the most recent runs. With a run ID (or 'latest'),
shows the outcome for every asset in that run: the version change, the
commit hash, or why it was skipped or failed.`,
	Example: `  wpgh history                 # List recent runs
  wpgh history --limit 50      # List more runs
  wpgh history latest          # Show the most recent run
  wpgh history 12              # Show run 12
  wpgh history --asset akismet # Every recorded commit for one asset`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlagLimit, "limit", "n", 20, "number of runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyFlagAsset, "asset", "", "show every recorded commit for one asset")
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := s.getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nRuns are recorded by 'wpgh plugin|theme install|update'.")
		return nil
	}

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.history = st

	out := cmd.OutOrStdout()

	if historyFlagAsset != "" {
		commits, err := st.AssetHistory(historyFlagAsset)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nHistory for %s:\n\n", historyFlagAsset)
		fmt.Fprint(out, output.RenderCommitTable(commits))
		return nil
	}

	if len(args) == 0 {
		runs, err := st.ListRuns(historyFlagLimit)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderRunTable(runs))
		if len(runs) > 0 {
			fmt.Fprintln(out, "\nShow a run with: wpgh history <id>")
		}
		return nil
	}

	runID, err := resolveRunID(st, args[0])
	if err != nil {
		return err
	}

	run, err := st.GetRun(runID)
	if err != nil {
		return fmt.Errorf("%w\n\nRun 'wpgh history' to see recorded runs", err)
	}
	commits, err := st.GetRunCommits(runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nRun Details:\n")
	fmt.Fprintf(out, "  ID: %d\n", run.ID)
	fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Command: wpgh %s %s %s\n", run.Kind, run.Operation, strings.Join(run.Identifiers, " "))
	fmt.Fprintf(out, "  Repository: %s\n", run.RepoRoot)
	fmt.Fprintf(out, "  Status: %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(out, "  Error: %s\n", run.Error)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderCommitTable(commits))

	return nil
}

// resolveRunID accepts a numeric ID or "latest".
func resolveRunID(st *store.Store, arg string) (int64, error) {
	if strings.ToLower(arg) == "latest" {
		runs, err := st.ListRuns(1)
		if err != nil {
			return 0, err
		}
		if len(runs) == 0 {
			return 0, fmt.Errorf("no runs recorded")
		}
		return runs[0].ID, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run ID: %s (must be a number or 'latest')", arg)
	}
	return id, nil
}
