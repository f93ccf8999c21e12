// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed job state store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	repo_id TEXT NOT NULL,
	commit_hash TEXT NOT NULL,
	settings_hash TEXT NOT NULL,
	root TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (repo_id, commit_hash, settings_hash)
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	status TEXT NOT NULL DEFAULT 'queued',
	pct INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	imports_total INTEGER NOT NULL DEFAULT 0,
	imports_internal INTEGER NOT NULL DEFAULT 0,
	imports_external INTEGER NOT NULL DEFAULT 0,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 3,
	run_after DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL REFERENCES jobs(id),
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS artifacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	kind TEXT NOT NULL,
	version INTEGER NOT NULL,
	uri TEXT NOT NULL,
	sha256 TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (snapshot_id, kind, version)
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL REFERENCES jobs(id),
	type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS warnings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL REFERENCES jobs(id),
	phase TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_run_after ON jobs(status, run_after);
CREATE INDEX IF NOT EXISTS idx_events_job ON events(job_id, id);
CREATE INDEX IF NOT EXISTS idx_warnings_job ON warnings(job_id);
`

// Open opens (creating and migrating if needed) the state database at
// path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// sqliteTime renders t the way CURRENT_TIMESTAMP does. Bound time
// values must use this format so comparisons against CURRENT_TIMESTAMP
// in SQL stay textually valid.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// --- Snapshots ---

func (s *Store) CreateSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.Status == "" {
		snap.Status = SnapshotPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, repo_id, commit_hash, settings_hash, root, status) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.RepoID, snap.CommitHash, snap.SettingsHash, snap.Root, snap.Status,
	)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// GetSnapshotByKey looks up a snapshot by its identity triple. Returns
// nil, nil when no such snapshot exists.
func (s *Store) GetSnapshotByKey(ctx context.Context, repoID, commitHash, settingsHash string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repo_id, commit_hash, settings_hash, root, status, created_at
		 FROM snapshots WHERE repo_id = ? AND commit_hash = ? AND settings_hash = ?`,
		repoID, commitHash, settingsHash,
	)
	return scanSnapshot(row)
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repo_id, commit_hash, settings_hash, root, status, created_at
		 FROM snapshots WHERE id = ?`, id,
	)
	return scanSnapshot(row)
}

func (s *Store) MarkSnapshotCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE snapshots SET status = ? WHERE id = ?`, SnapshotCompleted, id)
	if err != nil {
		return fmt.Errorf("complete snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.RepoID, &snap.CommitHash, &snap.SettingsHash, &snap.Root, &snap.Status, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return &snap, nil
}

// --- Jobs ---

func (s *Store) EnqueueJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = JobQueued
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 3
	}
	if job.RunAfter.IsZero() {
		job.RunAfter = time.Now().UTC()
	}
	job.RunAfter = job.RunAfter.UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, snapshot_id, status, max_attempts, run_after) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.SnapshotID, job.Status, job.MaxAttempts, sqliteTime(job.RunAfter),
	)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

const jobColumns = `id, snapshot_id, status, pct, error,
	imports_total, imports_internal, imports_external,
	attempts, max_attempts, run_after, created_at, updated_at`

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// LatestJob returns the most recently created job, nil when the queue
// has never seen one.
func (s *Store) LatestJob(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanJob(row)
}

// ClaimJob atomically claims the oldest runnable queued job, moving it to
// the acquiring phase. Returns nil, nil when nothing is runnable.
func (s *Store) ClaimJob(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs
		 SET status = ?,
			 attempts = attempts + 1,
			 updated_at = CURRENT_TIMESTAMP
		 WHERE id = (
			 SELECT id FROM jobs
			 WHERE status = ? AND run_after <= CURRENT_TIMESTAMP
			 ORDER BY run_after ASC, created_at ASC
			 LIMIT 1
		 )
		 RETURNING `+jobColumns,
		JobAcquiring, JobQueued,
	)
	return scanJob(row)
}

// UpdateJobProgress records the current phase and progress percentage.
// Pct never moves backwards, including across retries of earlier phases.
func (s *Store) UpdateJobProgress(ctx context.Context, id, status string, pct int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = ?,
			 pct = CASE WHEN pct > ? THEN pct ELSE ? END,
			 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, pct, pct, id,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

func (s *Store) SetJobImportMetrics(ctx context.Context, id string, total, internal, external int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET imports_total = ?, imports_internal = ?, imports_external = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		total, internal, external, id,
	)
	if err != nil {
		return fmt.Errorf("set job import metrics: %w", err)
	}
	return nil
}

func (s *Store) CompleteJob(ctx context.Context, id string) error {
	return s.UpdateJobProgress(ctx, id, JobDone, 100)
}

// FailJob moves the job to the absorbing error status.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		JobError, strings.TrimSpace(message), id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RequeueJob puts a retryable job back in the queue for a later attempt.
// Progress (pct) is retained.
func (s *Store) RequeueJob(ctx context.Context, id, message string, runAfter time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, run_after = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		JobQueued, strings.TrimSpace(message), sqliteTime(runAfter), id,
	)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.SnapshotID, &job.Status, &job.Pct, &job.Error,
		&job.ImportsTotal, &job.ImportsInternal, &job.ImportsExternal,
		&job.Attempts, &job.MaxAttempts, &job.RunAfter, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &job, nil
}

// --- Tasks ---

// StartTask opens a task record for one phase execution and returns its
// id for FinishTask.
func (s *Store) StartTask(ctx context.Context, jobID, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (job_id, name, status) VALUES (?, ?, ?)`,
		jobID, name, TaskRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("start task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start task id: %w", err)
	}
	return id, nil
}

func (s *Store) FinishTask(ctx context.Context, id int64, status string, duration time.Duration, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, duration_ms = ?, error = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, duration.Milliseconds(), strings.TrimSpace(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, jobID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, name, status, duration_ms, error, started_at, finished_at
		 FROM tasks WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var task Task
		var finished sql.NullTime
		if err := rows.Scan(&task.ID, &task.JobID, &task.Name, &task.Status, &task.DurationMS, &task.Error, &task.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		// Still-running tasks have no finish time yet.
		task.FinishedAt = task.StartedAt
		if finished.Valid {
			task.FinishedAt = finished.Time
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// --- Artifacts ---

// InsertArtifact appends the next version for (snapshot, kind). The
// version subselect and the insert run as one statement, so concurrent
// appenders cannot allocate the same version.
func (s *Store) InsertArtifact(ctx context.Context, art *Artifact) error {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO artifacts (snapshot_id, kind, version, uri, sha256, bytes)
		 VALUES (?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM artifacts WHERE snapshot_id = ? AND kind = ?), ?, ?, ?)
		 RETURNING id, version, created_at`,
		art.SnapshotID, art.Kind, art.SnapshotID, art.Kind, art.URI, art.SHA256, art.Bytes,
	)
	if err := row.Scan(&art.ID, &art.Version, &art.CreatedAt); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// LatestArtifact returns the highest version for (snapshot, kind), or
// nil, nil when none exists.
func (s *Store) LatestArtifact(ctx context.Context, snapshotID, kind string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, snapshot_id, kind, version, uri, sha256, bytes, created_at
		 FROM artifacts WHERE snapshot_id = ? AND kind = ?
		 ORDER BY version DESC LIMIT 1`,
		snapshotID, kind,
	)
	var art Artifact
	err := row.Scan(&art.ID, &art.SnapshotID, &art.Kind, &art.Version, &art.URI, &art.SHA256, &art.Bytes, &art.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return &art, nil
}

func (s *Store) ListArtifacts(ctx context.Context, snapshotID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_id, kind, version, uri, sha256, bytes, created_at
		 FROM artifacts WHERE snapshot_id = ? ORDER BY kind, version`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []Artifact
	for rows.Next() {
		var art Artifact
		if err := rows.Scan(&art.ID, &art.SnapshotID, &art.Kind, &art.Version, &art.URI, &art.SHA256, &art.Bytes, &art.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, art)
	}
	return out, rows.Err()
}

// --- Events ---

func (s *Store) AppendEvent(ctx context.Context, jobID, eventType, payload string) error {
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (job_id, type, payload) VALUES (?, ?, ?)`,
		jobID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns events for a job with id greater than afterID, in
// creation order. Pass 0 for the full stream.
func (s *Store) ListEvents(ctx context.Context, jobID string, afterID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, type, payload, created_at
		 FROM events WHERE job_id = ? AND id > ? ORDER BY id`, jobID, afterID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.Type, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// --- Warnings ---

func (s *Store) AddWarning(ctx context.Context, jobID, phase, path, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO warnings (job_id, phase, path, message) VALUES (?, ?, ?, ?)`,
		jobID, phase, path, message,
	)
	if err != nil {
		return fmt.Errorf("add warning: %w", err)
	}
	return nil
}

func (s *Store) ListWarnings(ctx context.Context, jobID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, phase, path, message, created_at
		 FROM warnings WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	defer rows.Close()
	var out []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.ID, &w.JobID, &w.Phase, &w.Path, &w.Message, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
