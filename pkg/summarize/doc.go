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

// Package summarize generates the natural-language layer over a parsed
// snapshot: one summary per file, one capability narrative per
// entrypoint, and one glossary.
//
// LLM calls fan out under a counting semaphore and are charged against
// the shared request and token buckets before they run. A failed call
// never fails the run: the file gets a deterministic fallback summary
// built from its parsed structure, and every summary carries the same
// required fields either way.
//
// Per-run budgets cap how many files and capabilities get LLM treatment;
// crossing a budget produces a single warning, not an error.
package summarize
