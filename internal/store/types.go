package store

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunPartial   = "partial" // some assets failed to commit
	RunFailed    = "failed"  // the WP-CLI command itself failed
)

// Commit statuses.
const (
	CommitCreated = "committed"
	CommitSkipped = "skipped"
	CommitFailed  = "failed"
)

// Run is one invocation of an install or update.
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  *time.Time
	Kind        string
	Operation   string
	Identifiers []string
	RepoRoot    string
	Status      string
	Error       string
	CommitCount int
}

// CommitRecord is the outcome for one asset within a run.
type CommitRecord struct {
	RunID           int64
	AssetID         string
	Name            string
	Version         string
	PreviousVersion string
	CommitHash      string
	Touched         bool
	Status          string
	Error           string
	CreatedAt       time.Time
}
