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

// Package pipeline drives jobs through the analysis phases: discover,
// parse, map, summarize, finalize.
//
// Every phase is repeat-safe. Progress, artifacts, warnings and events
// all go through pkg/state, so a job interrupted at any point can be
// requeued and re-run from the top: completed artifact writes no-op on
// identical content and the progress percentage never moves backwards.
// The worker owns retry policy; phase functions only classify their
// failures.
package pipeline
