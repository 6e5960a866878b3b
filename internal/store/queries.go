package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Run operations

// StartRun inserts a run in the running state and returns its ID.
func (s *Store) StartRun(kind, operation string, ids []string, repoRoot string) (int64, error) {
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal identifiers: %w", err)
	}

	query := `
		INSERT INTO runs (started_at, kind, operation, identifiers, repo_root, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		time.Now().UTC().Format(time.RFC3339Nano),
		kind,
		operation,
		string(idsJSON),
		repoRoot,
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	return id, nil
}

// FinishRun sets the final status of a run.
func (s *Store) FinishRun(id int64, status string, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	query := `UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`
	result, err := s.db.Exec(query, time.Now().UTC().Format(time.RFC3339Nano), status, errText, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %d not found", id)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id int64) (*Run, error) {
	query := `
		SELECT r.id, r.started_at, r.finished_at, r.kind, r.operation, r.identifiers,
		       r.repo_root, r.status, r.error,
		       (SELECT COUNT(*) FROM commits c WHERE c.run_id = r.id AND c.status = ?)
		FROM runs r
		WHERE r.id = ?
	`

	run, err := scanRun(s.db.QueryRow(query, CommitCreated, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, classify(err))
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT r.id, r.started_at, r.finished_at, r.kind, r.operation, r.identifiers,
		       r.repo_root, r.status, r.error,
		       (SELECT COUNT(*) FROM commits c WHERE c.run_id = r.id AND c.status = ?)
		FROM runs r
		ORDER BY r.id DESC
	`
	args := []any{CommitCreated}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", classify(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt, repoRoot, errText sql.NullString
	var idsJSON string

	err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.Kind,
		&run.Operation,
		&idsJSON,
		&repoRoot,
		&run.Status,
		&errText,
		&run.CommitCount,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %d: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(idsJSON), &run.Identifiers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identifiers for run %d: %w", run.ID, err)
	}
	run.RepoRoot = repoRoot.String
	run.Error = errText.String

	return &run, nil
}

// Commit operations

// RecordCommit stores the outcome for one asset.
func (s *Store) RecordCommit(c *CommitRecord) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO commits
		(run_id, asset_id, name, version, previous_version, commit_hash, touched, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		c.RunID,
		c.AssetID,
		c.Name,
		c.Version,
		c.PreviousVersion,
		c.CommitHash,
		c.Touched,
		c.Status,
		c.Error,
		c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record commit for %s: %w", c.AssetID, classify(err))
	}

	return nil
}

// GetRunCommits returns the per-asset outcomes of a run in recording order.
func (s *Store) GetRunCommits(runID int64) ([]*CommitRecord, error) {
	query := `
		SELECT run_id, asset_id, name, version, previous_version, commit_hash, touched, status, error, created_at
		FROM commits
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get commits for run %d: %w", runID, classify(err))
	}
	defer rows.Close()

	var commits []*CommitRecord
	for rows.Next() {
		var c CommitRecord
		var createdAt string

		err := rows.Scan(
			&c.RunID,
			&c.AssetID,
			&c.Name,
			&c.Version,
			&c.PreviousVersion,
			&c.CommitHash,
			&c.Touched,
			&c.Status,
			&c.Error,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}

		c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", c.AssetID, err)
		}

		commits = append(commits, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commits: %w", err)
	}

	return commits, nil
}

// AssetHistory returns every recorded outcome for one asset, newest first.
func (s *Store) AssetHistory(assetID string) ([]*CommitRecord, error) {
	query := `
		SELECT run_id, asset_id, name, version, previous_version, commit_hash, touched, status, error, created_at
		FROM commits
		WHERE asset_id = ?
		ORDER BY id DESC
	`

	rows, err := s.db.Query(query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", assetID, classify(err))
	}
	defer rows.Close()

	var commits []*CommitRecord
	for rows.Next() {
		var c CommitRecord
		var createdAt string
		if err := rows.Scan(&c.RunID, &c.AssetID, &c.Name, &c.Version, &c.PreviousVersion,
			&c.CommitHash, &c.Touched, &c.Status, &c.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", c.AssetID, err)
		}
		commits = append(commits, &c)
	}

	return commits, rows.Err()
}
