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

package testing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/kraklabs/codemap/pkg/artifacts"
	"github.com/kraklabs/codemap/pkg/state"
)

// SetupStateStore creates a SQLite job state store in a temporary
// directory. The store is automatically closed when the test finishes.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    st := testing.SetupStateStore(t)
//	    snap := testing.InsertTestSnapshot(t, st, "repo-1")
//
//	    // Run your tests...
//	}
func SetupStateStore(t *testing.T) *state.Store {
	t.Helper()

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open test state store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SetupArtifactStore creates an artifact store rooted in a temporary
// directory, registered against the given state store.
func SetupArtifactStore(t *testing.T, st *state.Store) *artifacts.Store {
	t.Helper()
	return artifacts.NewStore(t.TempDir(), st)
}

// InsertTestSnapshot adds a pending snapshot for repoID and returns it.
// The commit and settings hashes are unique per call.
func InsertTestSnapshot(t *testing.T, st *state.Store, repoID string) *state.Snapshot {
	t.Helper()

	snap := &state.Snapshot{
		ID:           uuid.NewString(),
		RepoID:       repoID,
		CommitHash:   uuid.NewString(),
		SettingsHash: "test",
		Root:         t.TempDir(),
		Status:       state.SnapshotPending,
	}
	if err := st.CreateSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("failed to insert test snapshot: %v", err)
	}
	return snap
}

// InsertTestJob enqueues a job for the snapshot and returns it.
func InsertTestJob(t *testing.T, st *state.Store, snapshotID string) *state.Job {
	t.Helper()

	job := &state.Job{
		ID:         uuid.NewString(),
		SnapshotID: snapshotID,
	}
	if err := st.EnqueueJob(context.Background(), job); err != nil {
		t.Fatalf("failed to insert test job: %v", err)
	}
	return job
}

// ClaimTestJob claims the next runnable job, failing the test when the
// queue is empty.
func ClaimTestJob(t *testing.T, st *state.Store) *state.Job {
	t.Helper()

	job, err := st.ClaimJob(context.Background())
	if err != nil {
		t.Fatalf("failed to claim test job: %v", err)
	}
	if job == nil {
		t.Fatal("expected a claimable job, queue was empty")
	}
	return job
}
