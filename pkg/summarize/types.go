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

package summarize

// FileSummary describes one source file for two audiences: developers
// (DevSummary) and non-technical readers (VibecoderSummary). The four
// required fields are never empty, whether the LLM produced them or the
// fallback did.
type FileSummary struct {
	Path             string   `json:"path"`
	Title            string   `json:"title"`
	Blurb            string   `json:"blurb"`
	DevSummary       string   `json:"dev_summary"`
	VibecoderSummary string   `json:"vibecoder_summary"`
	KeyFunctions     []string `json:"key_functions,omitempty"`
	Fallback         bool     `json:"fallback,omitempty"`
}

// Capability narrates one flow through the code, anchored at an
// entrypoint file.
type Capability struct {
	Title            string   `json:"title"`
	Entrypoint       string   `json:"entrypoint"`
	Files            []string `json:"files"`
	Summary          string   `json:"summary"`
	VibecoderSummary string   `json:"vibecoder_summary"`
	Fallback         bool     `json:"fallback,omitempty"`
}

// GlossaryEntry defines one term for both audiences.
type GlossaryEntry struct {
	Term                string `json:"term"`
	DevDefinition       string `json:"dev_definition"`
	VibecoderDefinition string `json:"vibecoder_definition"`
}

// Result is the full summarization output for one snapshot.
type Result struct {
	Files        []FileSummary   `json:"files"`
	Capabilities []Capability    `json:"capabilities"`
	Glossary     []GlossaryEntry `json:"glossary"`

	// Truncated is set when the file budget cut the list short.
	Truncated bool `json:"truncated,omitempty"`
	// FallbackCount is how many file summaries came from the fallback
	// path rather than the LLM.
	FallbackCount int `json:"fallback_count,omitempty"`
}

// RunWarning is a non-fatal problem the caller should record.
type RunWarning struct {
	Path    string
	Message string
}
