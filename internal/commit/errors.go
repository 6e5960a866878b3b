package commit

import (
	"errors"
	"fmt"
)

var (
	// ErrExternalMutation matches failures of the wrapped WP-CLI command.
	ErrExternalMutation = errors.New("external mutation failed")

	// ErrVersionControl matches stage or commit failures for an asset.
	ErrVersionControl = errors.New("version control failure")
)

// MutationError wraps a failure of the install/update command. No commits
// are attempted once it occurs.
type MutationError struct {
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrExternalMutation, e.Err)
}

func (e *MutationError) Unwrap() []error {
	return []error{ErrExternalMutation, e.Err}
}

// Step names the per-asset stage that failed.
type Step string

const (
	StepRender Step = "render"
	StepStage  Step = "stage"
	StepCommit Step = "commit"
)

// CommitError is a failure for one asset. Other assets in the same run are
// still attempted.
type CommitError struct {
	ID   string
	Step Step
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.ID, e.Err)
}

// Unwrap exposes ErrVersionControl for stage and commit failures, plus the
// underlying cause.
func (e *CommitError) Unwrap() []error {
	if e.Step == StepRender {
		return []error{e.Err}
	}
	return []error{ErrVersionControl, e.Err}
}
