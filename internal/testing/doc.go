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

// Package testing provides test helpers for codemap integration tests.
//
// This package wraps the SQLite-backed stores with setup and data
// seeding utilities so that package tests do not repeat the same
// open-store boilerplate.
//
// # Quick Start
//
// Use SetupStateStore to create a throwaway job state store:
//
//	func TestMyFeature(t *testing.T) {
//	    st := testing.SetupStateStore(t)
//	    snap := testing.InsertTestSnapshot(t, st, "repo-1")
//	    job := testing.InsertTestJob(t, st, snap.ID)
//
//	    // Run your tests...
//	}
//
// # Seeding Test Data
//
// The package provides helpers for inserting common test entities:
//   - InsertTestSnapshot: Add a pending snapshot
//   - InsertTestJob: Enqueue a job for a snapshot
//   - ClaimTestJob: Claim the next runnable job
//
// # Artifacts
//
// SetupArtifactStore pairs an artifact store with the state store so
// tests can exercise versioned writes without wiring the directories
// themselves.
package testing
