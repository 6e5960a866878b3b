// Package wp drives WP-CLI: it lists and looks up plugins and themes, passes
// install/update commands through, and discovers WordPress paths.
package wp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/wpgh/internal/logging"
)

// DefaultBin is the WP-CLI executable looked up on PATH.
const DefaultBin = "wp"

// Runner executes external commands.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Stream runs the command with its output attached to stdout/stderr.
	Stream(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output runs name with args and returns stdout. Stderr is folded into the
// error on failure.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w (stderr: %s)", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Stream runs name with args, attaching its output streams.
func (ExecRunner) Stream(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Client talks to one WordPress install through WP-CLI.
type Client struct {
	// Bin is the WP-CLI executable, DefaultBin when empty.
	Bin string
	// Path is passed as --path when non-empty.
	Path string
	// Runner defaults to ExecRunner.
	Runner Runner

	log *logrus.Entry
}

// New creates a client for the WordPress install at path (or the current
// directory when path is empty).
func New(bin, path string) *Client {
	if bin == "" {
		bin = DefaultBin
	}
	return &Client{
		Bin:    bin,
		Path:   path,
		Runner: ExecRunner{},
		log:    logging.NewLogger("wp"),
	}
}

func (c *Client) args(args ...string) []string {
	if c.Path == "" {
		return args
	}
	return append(args, "--path="+c.Path)
}

func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	full := c.args(args...)
	if c.log != nil {
		c.log.WithField("args", strings.Join(full, " ")).Debug("running wp-cli")
	}
	out, err := c.Runner.Output(ctx, c.Bin, full...)
	if err != nil {
		return nil, fmt.Errorf("wp %s failed: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Run passes a user command through to WP-CLI, streaming its output.
func (c *Client) Run(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	full := c.args(args...)
	if c.log != nil {
		c.log.WithField("args", strings.Join(full, " ")).Debug("running wp-cli passthrough")
	}
	if err := c.Runner.Stream(ctx, stdout, stderr, c.Bin, full...); err != nil {
		return fmt.Errorf("wp %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Eval runs a PHP snippet and returns its trimmed output.
func (c *Client) Eval(ctx context.Context, php string) (string, error) {
	out, err := c.output(ctx, "eval", php)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ContentDir returns WP_CONTENT_DIR.
func (c *Client) ContentDir(ctx context.Context) (string, error) {
	dir, err := c.Eval(ctx, "echo WP_CONTENT_DIR;")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("wp eval returned an empty WP_CONTENT_DIR")
	}
	return dir, nil
}

// ABSPath returns the WordPress root (ABSPATH).
func (c *Client) ABSPath(ctx context.Context) (string, error) {
	dir, err := c.Eval(ctx, "echo ABSPATH;")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("wp eval returned an empty ABSPATH")
	}
	return dir, nil
}

// Version returns the WP-CLI version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.Runner.Output(ctx, c.Bin, "cli", "version")
	if err != nil {
		return "", fmt.Errorf("wp cli version failed: %w", err)
	}
	// "WP-CLI 2.10.0"
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected wp cli version output: %q", string(out))
	}
	return fields[len(fields)-1], nil
}

// exitCode returns the process exit code wrapped in err, or -1.
// *exec.ExitError satisfies the interface.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
