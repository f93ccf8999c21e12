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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codemap/pkg/state"
)

// TestSetupStateStore verifies the test store is created correctly.
func TestSetupStateStore(t *testing.T) {
	st := SetupStateStore(t)
	require.NotNil(t, st)

	job, err := st.LatestJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job, "should start with no jobs")
}

// TestInsertTestSnapshot verifies snapshot seeding.
func TestInsertTestSnapshot(t *testing.T) {
	st := SetupStateStore(t)

	snap := InsertTestSnapshot(t, st, "repo-1")

	loaded, err := st.GetSnapshot(context.Background(), snap.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "repo-1", loaded.RepoID)
	assert.Equal(t, state.SnapshotPending, loaded.Status)
}

// TestInsertAndClaimTestJob verifies job seeding and claiming.
func TestInsertAndClaimTestJob(t *testing.T) {
	st := SetupStateStore(t)
	snap := InsertTestSnapshot(t, st, "repo-1")

	job := InsertTestJob(t, st, snap.ID)
	claimed := ClaimTestJob(t, st)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, state.JobAcquiring, claimed.Status)
}

// TestStoreIsolation verifies each test gets an isolated store.
func TestStoreIsolation(t *testing.T) {
	st1 := SetupStateStore(t)
	snap := InsertTestSnapshot(t, st1, "repo-1")
	InsertTestJob(t, st1, snap.ID)

	st2 := SetupStateStore(t)
	job, err := st2.LatestJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job, "second store should be isolated from first")

	job1, err := st1.LatestJob(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, job1)
}

// TestSetupArtifactStore verifies the artifact store round-trips.
func TestSetupArtifactStore(t *testing.T) {
	st := SetupStateStore(t)
	snap := InsertTestSnapshot(t, st, "repo-1")
	art := SetupArtifactStore(t, st)

	written, err := art.WriteVersioned(context.Background(), snap.ID, "files", []byte(`{"files":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, written.Version)

	payload, _, err := art.ReadLatest(context.Background(), snap.ID, "files")
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[]}`, string(payload))
}
