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

package parse

// Language identifiers for supported source kinds.
const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangPython     = "python"
)

// FileInfo is one discovered source file, path relative to the snapshot
// root.
type FileInfo struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Size     int64  `json:"size"`
}

// Hints are coarse role signals used downstream for capability grouping
// and summary fallbacks.
type Hints struct {
	IsRoute      bool `json:"is_route,omitempty"`
	IsAPI        bool `json:"is_api,omitempty"`
	IsComponent  bool `json:"is_component,omitempty"`
	IsEntrypoint bool `json:"is_entrypoint,omitempty"`
}

// ParsedFile is the extracted structure of one source file.
type ParsedFile struct {
	Path      string   `json:"path"`
	Language  string   `json:"language"`
	Imports   []string `json:"imports,omitempty"`
	Functions []string `json:"functions,omitempty"`
	Classes   []string `json:"classes,omitempty"`
	Hints     Hints    `json:"hints"`
	LOC       int      `json:"loc"`
}

// FileParser extracts structure from a single file. Implementations must
// treat every failure as scoped to that file.
type FileParser interface {
	ParseFile(root string, file FileInfo) (*ParsedFile, error)
}
