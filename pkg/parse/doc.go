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

// Package parse discovers source files in a snapshot and extracts their
// structure: imports, top-level functions and classes, and role hints
// (route, API handler, UI component, entrypoint).
//
// Two parser implementations exist behind the FileParser interface: a
// Tree-sitter based parser for accurate AST extraction, and a regex
// heuristic fallback that needs no CGO. ModeAuto prefers Tree-sitter and
// falls back per file when a grammar is missing.
package parse
