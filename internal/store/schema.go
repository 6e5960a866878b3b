package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    kind TEXT NOT NULL,
    operation TEXT NOT NULL,
    identifiers TEXT NOT NULL,
    repo_root TEXT,
    status TEXT NOT NULL,
    error TEXT
);

CREATE TABLE IF NOT EXISTS commits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    asset_id TEXT NOT NULL,
    name TEXT,
    version TEXT,
    previous_version TEXT,
    commit_hash TEXT,
    touched BOOLEAN,
    status TEXT NOT NULL,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_commits_run ON commits(run_id);
CREATE INDEX IF NOT EXISTS idx_commits_asset ON commits(asset_id);
`
