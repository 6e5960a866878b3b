package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/output"
	"github.com/blackwell-systems/wpgh/internal/wp"
)

var (
	configPath   string
	dbPath       string
	repoRootFlag string
	wpPathFlag   string
	verbose      bool
	noHistory    bool

	allFlag bool

	// newWPClient is replaced in tests to fake WP-CLI.
	newWPClient = wp.New

	// RootCmd is the root command for wpgh
	RootCmd = &cobra.Command{
		Use:   "wpgh <plugin|theme> <install|update> [ids...] [-- wp-args...]",
		Short: "Commit WordPress plugin and theme changes to git, one asset at a time",
		Long: `wpgh wraps 'wp plugin|theme install|update' with git bookkeeping.

Before WP-CLI runs, wpgh records the name and version of every asset you
named. Afterwards it compares, then stages each changed asset's directory and
creates one commit per asset with a generated message.

The git repository defaults to the WordPress root (ABSPATH). Override it with
--repo-root or WP_CLI_GIT_HELPER_REPO_ROOT.

Examples:
  # Install a plugin and commit it
  wpgh plugin install akismet

  # Update two plugins, one commit each
  wpgh plugin update akismet jetpack

  # Update every theme
  wpgh theme update --all

  # Pass extra flags through to WP-CLI
  wpgh plugin install woocommerce -- --activate

  # Show what past runs committed
  wpgh history`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAsset,
	}
)

func init() {
	addGlobalFlags(RootCmd.PersistentFlags())
	RootCmd.Flags().BoolVar(&allFlag, "all", false, "update every asset with an available update")

	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(doctorCmd)
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configPath, "config", "", "config file (default: ./wpgh.yml or ~/.config/wpgh/wpgh.yml)")
	fs.StringVar(&dbPath, "db", "", "history database path (default: ~/.wpgh/history.db)")
	fs.StringVar(&repoRootFlag, "repo-root", "", "git repository to commit into (default: WordPress ABSPATH)")
	fs.StringVar(&wpPathFlag, "wp-path", "", "WordPress path passed to WP-CLI as --path")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	fs.BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
}

// Execute runs the root command. An interrupt cancels the running WP-CLI
// or git process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// argError is an invalid command line. Its message is shown verbatim.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func (e *argError) Unwrap() error { return asset.ErrInvalidArguments }

func invalidArgs(format string, a ...any) error {
	return &argError{msg: fmt.Sprintf(format, a...)}
}

// invocation is a parsed `wpgh <kind> <op> ...` command line.
type invocation struct {
	Kind  asset.Kind
	Op    asset.Operation
	IDs   []string
	All   bool
	Extra []string // forwarded to WP-CLI after the ids
}

// parseInvocation splits the positional arguments. dash is the index of the
// first argument after "--", or -1.
func parseInvocation(args []string, dash int, all bool) (*invocation, error) {
	var extra []string
	if dash >= 0 && dash <= len(args) {
		extra = args[dash:]
		args = args[:dash]
	}

	if len(args) == 0 {
		return nil, invalidArgs("'wpgh' can only be run with 'plugin' or 'theme' commands.")
	}
	kind, err := asset.ParseKind(args[0])
	if err != nil {
		return nil, invalidArgs("'wpgh' can only be run with 'plugin' or 'theme' commands.")
	}

	if len(args) < 2 {
		return nil, invalidArgs("'wpgh %s' can only be run with 'update' or 'install' commands.", kind)
	}
	op, err := asset.ParseOperation(args[1])
	if err != nil {
		return nil, invalidArgs("'wpgh %s' can only be run with 'update' or 'install' commands.", kind)
	}

	inv := &invocation{Kind: kind, Op: op, IDs: args[2:], All: all, Extra: extra}
	if all && op == asset.Install {
		return nil, invalidArgs("'--all' can only be used with 'update'.")
	}
	if all && len(inv.IDs) > 0 {
		return nil, invalidArgs("'--all' cannot be combined with %s names.", kind)
	}
	return inv, nil
}

// wpArgs builds the WP-CLI command line for inv.
func (inv *invocation) wpArgs() []string {
	args := []string{string(inv.Kind), string(inv.Op)}
	if inv.All {
		args = append(args, "--all")
	}
	args = append(args, inv.IDs...)
	return append(args, inv.Extra...)
}

func runAsset(cmd *cobra.Command, args []string) error {
	inv, err := parseInvocation(args, cmd.ArgsLenAtDash(), allFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	inv.IDs = s.aliases.Resolve(inv.IDs)
	ids := inv.IDs
	if inv.All {
		// only assets with a pending update can change
		ids, err = s.wp.UpdatableIDs(ctx, inv.Kind)
		if err != nil {
			return fmt.Errorf("failed to list %s updates: %w", inv.Kind, err)
		}
	}

	orch, err := s.orchestrator(ctx)
	if err != nil {
		return err
	}

	res, err := orch.Run(ctx, commitRequest(inv, ids, s.wp, cmd))
	if res != nil {
		fmt.Fprint(cmd.OutOrStdout(), output.RenderResult(inv.Kind, inv.Op, res))
		if err != nil {
			return fmt.Errorf("%d %s(s) could not be committed: %w", len(res.Failed), inv.Kind, err)
		}
	}
	return err
}
