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

import "time"

// Snapshot statuses.
const (
	SnapshotPending   = "pending"
	SnapshotCompleted = "completed"
)

// Snapshot identifies one analyzed input: a repository at a commit under a
// particular settings hash. The triple is unique; re-ingesting the same
// triple reuses the existing snapshot.
type Snapshot struct {
	ID           string
	RepoID       string
	CommitHash   string
	SettingsHash string
	Root         string // filesystem root of the snapshot contents
	Status       string
	CreatedAt    time.Time
}

// Job statuses. While a job runs its Status holds the current phase name;
// "queued", "done" and "error" bracket the run. "error" is absorbing.
const (
	JobQueued      = "queued"
	JobAcquiring   = "acquiring"
	JobDiscovering = "discovering"
	JobParsing     = "parsing"
	JobMapping     = "mapping"
	JobSummarizing = "summarizing"
	JobDone        = "done"
	JobError       = "error"
)

// Job is one pipeline run over a snapshot. Pct only ever moves forward,
// including across scheduler retries.
type Job struct {
	ID         string
	SnapshotID string
	Status     string
	Pct        int
	Error      string

	// Import metrics recorded by the graph phase.
	ImportsTotal    int
	ImportsInternal int
	ImportsExternal int

	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task statuses.
const (
	TaskRunning   = "running"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
)

// Task records one execution of one phase, with wall-clock timing.
type Task struct {
	ID         int64
	JobID      string
	Name       string
	Status     string
	DurationMS int64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Artifact references one immutable versioned output. Versions are
// strictly increasing per (SnapshotID, Kind) starting at 1.
type Artifact struct {
	ID         int64
	SnapshotID string
	Kind       string
	Version    int
	URI        string
	SHA256     string
	Bytes      int64
	CreatedAt  time.Time
}

// Event is one entry in a job's append-only progress stream. Payload is
// the JSON encoding of the typed payload for Type.
type Event struct {
	ID        int64
	JobID     string
	Type      string
	Payload   string
	CreatedAt time.Time
}

// Warning records a non-fatal problem, usually scoped to one file.
type Warning struct {
	ID        int64
	JobID     string
	Phase     string
	Path      string
	Message   string
	CreatedAt time.Time
}
