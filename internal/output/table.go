// Package output provides terminal output utilities for wpgh.
//
// This package includes:
//   - Table rendering for recorded runs and the commits they produced
//   - A summary of a single install or update run
//   - A spinner for slow WP-CLI queries
//
// All table rendering functions use plain characters and ANSI color codes for
// terminal output. Color is only emitted when stdout is a TTY and NO_COLOR is
// unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/commit"
	"github.com/blackwell-systems/wpgh/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderRunTable renders a table of recorded runs. Runs are shown in the
// order given; the store returns newest first.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-15s %-16s %-10s %-7s %s\n",
		"ID", "Started", "Command", "Status", "Commits", "Assets"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, run := range runs {
		command := run.Kind + " " + run.Operation
		// pad before coloring so escape codes don't break alignment
		status := colorize(getStatusColor(run.Status), fmt.Sprintf("%-10s", run.Status))

		sb.WriteString(fmt.Sprintf("%-5d %-15s %-16s %s %-7d %s\n",
			run.ID,
			formatRelativeTime(run.StartedAt),
			command,
			status,
			run.CommitCount,
			truncate(formatIdentifiers(run.Identifiers), 30)))
	}

	return sb.String()
}

// RenderCommitTable renders the per-asset outcomes of one run.
func RenderCommitTable(commits []*store.CommitRecord) string {
	if len(commits) == 0 {
		return "No assets changed in this run.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-22s %-10s %-9s %s\n",
		"Asset", "Version", "Status", "Commit", "Error"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, c := range commits {
		status := colorize(getStatusColor(c.Status), fmt.Sprintf("%-10s", c.Status))
		hash := shortHash(c.CommitHash)
		if hash == "" {
			hash = "—"
		}

		sb.WriteString(fmt.Sprintf("%-24s %-22s %s %-9s %s\n",
			truncate(c.AssetID, 24),
			truncate(formatVersionChange(c.PreviousVersion, c.Version), 22),
			status,
			hash,
			truncate(c.Error, 40)))
	}

	return sb.String()
}

// RenderResult summarizes a finished install or update for the terminal.
func RenderResult(kind asset.Kind, op asset.Operation, res *commit.Result) string {
	if res == nil || len(res.Records) == 0 {
		return fmt.Sprintf("No %ss changed; nothing to commit.\n", kind)
	}

	versions := make(map[string]string, len(res.Records))
	for _, rec := range res.Records {
		prev := ""
		if rec.Before != nil {
			prev = rec.Before.Version
		}
		versions[rec.ID] = formatVersionChange(prev, rec.After.Version)
	}

	var sb strings.Builder
	for _, out := range res.Committed {
		sb.WriteString(fmt.Sprintf("%s %s %s (%s) %s\n",
			colorize(colorGreen, "✓"), op, out.ID, versions[out.ID], colorize(colorGray, shortHash(out.Hash))))
	}
	for _, out := range res.Skipped {
		sb.WriteString(fmt.Sprintf("%s %s %s: no files at %s\n",
			colorize(colorYellow, "⚠"), op, out.ID, out.Path))
	}
	for _, out := range res.Failed {
		sb.WriteString(fmt.Sprintf("%s %s %s: %v\n",
			colorize(colorRed, "✗"), op, out.ID, out.Err))
	}

	sb.WriteString(fmt.Sprintf("\n%d %s(s) committed", len(res.Committed), kind))
	if n := len(res.Skipped); n > 0 {
		sb.WriteString(fmt.Sprintf(", %d skipped", n))
	}
	if n := len(res.Failed); n > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", n))
	}
	sb.WriteString(".\n")

	return sb.String()
}

// formatVersionChange renders "1.0 → 1.1", or just the new version when
// there is no previous one.
func formatVersionChange(prev, next string) string {
	if next == "" {
		next = "?"
	}
	if prev == "" || prev == next {
		return next
	}
	return prev + " → " + next
}

func formatIdentifiers(ids []string) string {
	if len(ids) == 0 {
		return "(all)"
	}
	return strings.Join(ids, ", ")
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

// getStatusColor returns the ANSI color code for a run or commit status.
func getStatusColor(status string) string {
	switch status {
	case store.RunCompleted, store.CommitCreated:
		return colorGreen
	case store.RunPartial, store.CommitSkipped, store.RunRunning:
		return colorYellow
	case store.RunFailed:
		return colorRed
	default:
		return colorGray
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		return t.Local().Format("2006-01-02")
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
