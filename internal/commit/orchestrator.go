// Package commit snapshots assets around a WP-CLI install or update and
// creates one git commit per asset that changed.
package commit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/wpgh/internal/asset"
	"github.com/blackwell-systems/wpgh/internal/logging"
	"github.com/blackwell-systems/wpgh/internal/store"
)

// VCS stages and commits paths in one repository.
type VCS interface {
	Stage(ctx context.Context, path string) error
	Commit(ctx context.Context, message string) error
}

// headResolver is implemented by repositories that can report the commit
// they just created.
type headResolver interface {
	HeadCommit(ctx context.Context) (string, error)
}

// Renderer produces a commit message for a change record.
type Renderer interface {
	Render(op asset.Operation, kind asset.Kind, rec asset.ChangeRecord) (string, error)
}

// Tracker records which asset directories saw filesystem activity.
type Tracker interface {
	Track(dir string) (stop func() map[string]bool, err error)
}

// History persists run outcomes.
type History interface {
	StartRun(kind, operation string, ids []string, repoRoot string) (int64, error)
	FinishRun(id int64, status string, runErr error) error
	RecordCommit(c *store.CommitRecord) error
}

// Request describes one install or update invocation.
type Request struct {
	Op   asset.Operation
	Kind asset.Kind
	IDs  []string
	// Mutate runs the external install/update for all IDs at once.
	Mutate func(ctx context.Context) error
}

// Outcome is the result for one asset.
type Outcome struct {
	ID      string
	Path    string
	Message string
	Hash    string
	Err     error
}

// Result summarizes a run. It is returned even when some assets failed.
type Result struct {
	Records   []asset.ChangeRecord
	Committed []Outcome
	Skipped   []Outcome
	Failed    []Outcome
}

// Orchestrator wires the inspector, the message builder and the repository.
type Orchestrator struct {
	Source   asset.Source
	VCS      VCS
	Messages Renderer
	// ContentDir is WP_CONTENT_DIR; assets live in ContentDir/<kind>s/<id>.
	ContentDir string

	// Optional collaborators.
	Tracker  Tracker
	History  History
	RepoRoot string

	Log *logrus.Entry
}

// New returns an Orchestrator with the component logger set.
func New(src asset.Source, vcs VCS, messages Renderer, contentDir string) *Orchestrator {
	return &Orchestrator{
		Source:     src,
		VCS:        vcs,
		Messages:   messages,
		ContentDir: contentDir,
		Log:        logging.NewLogger("commit"),
	}
}

// BaseDir returns the directory holding assets of kind.
func (o *Orchestrator) BaseDir(kind asset.Kind) string {
	return filepath.Join(o.ContentDir, kind.Dir())
}

// AssetPath returns the on-disk path that is staged for rec. Single-file
// plugins live directly in the plugins directory.
func (o *Orchestrator) AssetPath(kind asset.Kind, rec asset.ChangeRecord) string {
	base := o.BaseDir(kind)
	if kind == asset.Plugin && rec.After.File != "" && path.Dir(rec.After.File) == "." {
		return filepath.Join(base, rec.After.File)
	}
	return filepath.Join(base, rec.ID)
}

// Run snapshots, mutates, re-snapshots and commits each changed asset.
// Per-asset failures are joined into the returned error alongside a
// non-nil Result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if !req.Op.Valid() {
		return nil, fmt.Errorf("%w: unknown operation %q", asset.ErrInvalidArguments, req.Op)
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown asset kind %q", asset.ErrInvalidArguments, req.Kind)
	}
	if req.Mutate == nil {
		return nil, fmt.Errorf("%w: no command to run", asset.ErrInvalidArguments)
	}

	log := o.logger().WithFields(logrus.Fields{"kind": req.Kind, "op": req.Op})

	inspector, err := asset.ForKind(req.Kind, o.Source)
	if err != nil {
		return nil, err
	}

	runID := o.startRun(req)

	before, err := asset.TakeSnapshot(ctx, inspector, req.IDs)
	if err != nil {
		o.finishRun(runID, store.RunFailed, err)
		return nil, fmt.Errorf("failed to snapshot %ss before %s: %w", req.Kind, req.Op, err)
	}
	log.WithField("found", before.Len()).Debug("before snapshot taken")

	touched, err := o.mutate(ctx, req)
	if err != nil {
		o.finishRun(runID, store.RunFailed, err)
		return nil, err
	}

	after, err := asset.TakeSnapshot(ctx, inspector, req.IDs)
	if err != nil {
		o.finishRun(runID, store.RunFailed, err)
		return nil, fmt.Errorf("failed to snapshot %ss after %s: %w", req.Kind, req.Op, err)
	}
	log.WithField("found", after.Len()).Debug("after snapshot taken")

	records := asset.Diff(req.IDs, before, after)
	res := &Result{}

	var errs []error
	for _, rec := range records {
		if touched != nil {
			rec.Touched = touched[rec.ID]
		}
		res.Records = append(res.Records, rec)

		out := o.commitOne(ctx, req, rec, log)
		switch {
		case out.Err != nil:
			res.Failed = append(res.Failed, out)
			errs = append(errs, out.Err)
			o.record(runID, rec, out, store.CommitFailed)
		case out.Message == "":
			res.Skipped = append(res.Skipped, out)
			o.record(runID, rec, out, store.CommitSkipped)
		default:
			res.Committed = append(res.Committed, out)
			o.record(runID, rec, out, store.CommitCreated)
		}
	}

	runErr := errors.Join(errs...)
	status := store.RunCompleted
	if runErr != nil {
		status = store.RunPartial
	}
	o.finishRun(runID, status, runErr)

	log.WithFields(logrus.Fields{
		"committed": len(res.Committed),
		"skipped":   len(res.Skipped),
		"failed":    len(res.Failed),
	}).Info("run finished")

	return res, runErr
}

// mutate runs the external command, recording filesystem activity when a
// tracker is configured. The touched map is nil without a tracker.
func (o *Orchestrator) mutate(ctx context.Context, req Request) (map[string]bool, error) {
	var stop func() map[string]bool
	if o.Tracker != nil {
		s, err := o.Tracker.Track(o.BaseDir(req.Kind))
		if err != nil {
			o.logger().WithError(err).Warn("filesystem tracking unavailable")
		} else {
			stop = s
		}
	}

	err := req.Mutate(ctx)

	var touched map[string]bool
	if stop != nil {
		touched = stop()
	}
	if err != nil {
		return nil, &MutationError{Err: err}
	}
	return touched, nil
}

func (o *Orchestrator) commitOne(ctx context.Context, req Request, rec asset.ChangeRecord, log *logrus.Entry) Outcome {
	out := Outcome{ID: rec.ID, Path: o.AssetPath(req.Kind, rec)}
	log = log.WithField("asset", rec.ID)

	if _, err := os.Stat(out.Path); err != nil {
		log.WithField("path", out.Path).Debug("asset path missing, nothing to commit")
		return out
	}
	if !rec.Touched && o.Tracker != nil {
		log.Debug("no filesystem activity seen for asset")
	}

	msg, err := o.Messages.Render(req.Op, req.Kind, rec)
	if err != nil {
		out.Err = &CommitError{ID: rec.ID, Step: StepRender, Err: err}
		log.WithError(err).Error("failed to render commit message")
		return out
	}

	if err := o.VCS.Stage(ctx, out.Path); err != nil {
		out.Err = &CommitError{ID: rec.ID, Step: StepStage, Err: err}
		log.WithError(err).Error("failed to stage asset")
		return out
	}

	if err := o.VCS.Commit(ctx, msg); err != nil {
		out.Err = &CommitError{ID: rec.ID, Step: StepCommit, Err: err}
		log.WithError(err).Error("failed to commit asset")
		return out
	}
	out.Message = msg

	if hr, ok := o.VCS.(headResolver); ok {
		if hash, err := hr.HeadCommit(ctx); err == nil {
			out.Hash = hash
		}
	}
	log.WithField("commit", shortHash(out.Hash)).Info("committed")
	return out
}

func (o *Orchestrator) startRun(req Request) int64 {
	if o.History == nil {
		return 0
	}
	id, err := o.History.StartRun(string(req.Kind), string(req.Op), req.IDs, o.RepoRoot)
	if err != nil {
		o.logger().WithError(err).Warn("failed to record run history")
		return 0
	}
	return id
}

func (o *Orchestrator) finishRun(id int64, status string, runErr error) {
	if o.History == nil || id == 0 {
		return
	}
	if err := o.History.FinishRun(id, status, runErr); err != nil {
		o.logger().WithError(err).Warn("failed to record run history")
	}
}

func (o *Orchestrator) record(id int64, rec asset.ChangeRecord, out Outcome, status string) {
	if o.History == nil || id == 0 {
		return
	}
	c := &store.CommitRecord{
		RunID:      id,
		AssetID:    rec.ID,
		Name:       rec.After.Name,
		Version:    rec.After.Version,
		CommitHash: out.Hash,
		Touched:    rec.Touched,
		Status:     status,
	}
	if rec.Before != nil {
		c.PreviousVersion = rec.Before.Version
	}
	if out.Err != nil {
		c.Error = out.Err.Error()
	}
	if err := o.History.RecordCommit(c); err != nil {
		o.logger().WithError(err).Warn("failed to record commit history")
	}
}

func (o *Orchestrator) logger() *logrus.Entry {
	if o.Log == nil {
		o.Log = logging.NewLogger("commit")
	}
	return o.Log
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
