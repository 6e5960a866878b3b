// Package git stages and commits asset directories through the git CLI.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/wpgh/internal/logging"
)

// Repository is a git work tree rooted at Root.
type Repository struct {
	Root string
	log  *logrus.Entry
}

// Open returns a Repository for dir after checking that dir is inside a
// git work tree.
func Open(ctx context.Context, dir string) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path %s: %w", dir, err)
	}
	r := &Repository{Root: abs, log: logging.NewLogger("git")}

	out, err := r.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return nil, fmt.Errorf("%s is not a git repository: %w", abs, err)
	}
	if strings.TrimSpace(out) != "true" {
		return nil, fmt.Errorf("%s is not inside a git work tree", abs)
	}
	return r, nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	_, err := Open(ctx, dir)
	return err == nil
}

// Stage adds every change under path, including deletions.
func (r *Repository) Stage(ctx context.Context, path string) error {
	if _, err := r.run(ctx, "add", "-A", "--", path); err != nil {
		return fmt.Errorf("git add %s: %w", path, err)
	}
	return nil
}

// Commit records the staged changes with message.
func (r *Repository) Commit(ctx context.Context, message string) error {
	if _, err := r.run(ctx, "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// HeadCommit returns the full hash of HEAD.
func (r *Repository) HeadCommit(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	if r.log != nil {
		r.log.WithField("args", strings.Join(args, " ")).Debug("running git")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// git commit reports "nothing to commit" on stdout
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("%w (output: %s)", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
