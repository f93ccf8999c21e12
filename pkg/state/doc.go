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

// Package state persists pipeline job state in SQLite.
//
// The store records Snapshots (one per unique analyzed input), Jobs (one
// pipeline run over a snapshot), Tasks (per-phase execution records with
// timing), Artifacts (versioned output references), Events (an append-only
// progress stream) and Warnings (non-fatal per-file problems).
//
// Jobs double as a work queue: workers claim the oldest runnable queued
// job with a single UPDATE ... RETURNING so that concurrent workers never
// claim the same job twice.
package state
