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

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kraklabs/codemap/pkg/parse"
)

const fileSystemPrompt = `You are a code analyst. Given structural facts about one source file
(no source code), respond with a single JSON object with exactly these fields:
"title" (short human name for the file),
"blurb" (one sentence),
"dev_summary" (2-4 sentences for a developer),
"vibecoder_summary" (2-3 sentences for a non-technical reader).
Respond with JSON only.`

const capabilitySystemPrompt = `You are a code analyst. Given an application entrypoint and the files
it pulls in, respond with a single JSON object with exactly these fields:
"title" (short name for this capability),
"summary" (what this flow does, for a developer),
"vibecoder_summary" (what this flow does, for a non-technical reader).
Respond with JSON only.`

const glossarySystemPrompt = `You are a code analyst writing a beginner-friendly glossary of
programming terms. For each requested term give two short definitions:
one technical, one using a metaphor for a non-technical reader. Keep
each definition to 1-2 sentences, no code. Respond with a single JSON
object with exactly this field:
"terms" (array of objects with "term", "dev_definition", "vibecoder_definition").
Respond with JSON only.`

var fileRequiredFields = []string{"title", "blurb", "dev_summary", "vibecoder_summary"}

var capabilityRequiredFields = []string{"title", "summary", "vibecoder_summary"}

var glossaryRequiredFields = []string{"terms"}

func glossaryUserPrompt(terms []string) string {
	return fmt.Sprintf("Create a glossary for these terms: %s. Return strict JSON.", strings.Join(terms, ", "))
}

// fileContext is the prompt payload for one file. Lists are truncated to
// maxItems so a pathological file cannot blow up the prompt.
type fileContext struct {
	Path         string      `json:"path"`
	Language     string      `json:"language"`
	Hints        parse.Hints `json:"hints"`
	Functions    []string    `json:"functions,omitempty"`
	Classes      []string    `json:"classes,omitempty"`
	InternalDeps []string    `json:"internal_dependencies,omitempty"`
	ExternalDeps []string    `json:"external_dependencies,omitempty"`
}

func buildFileContext(f parse.ParsedFile, internalDeps []string, maxItems int) fileContext {
	var external []string
	for _, imp := range f.Imports {
		if len(imp) > 0 && imp[0] != '.' {
			external = append(external, imp)
		}
	}
	return fileContext{
		Path:         f.Path,
		Language:     f.Language,
		Hints:        f.Hints,
		Functions:    truncateList(f.Functions, maxItems),
		Classes:      truncateList(f.Classes, maxItems),
		InternalDeps: truncateList(internalDeps, maxItems),
		ExternalDeps: truncateList(external, maxItems),
	}
}

func (c fileContext) userPrompt() string {
	raw, _ := json.Marshal(c)
	return fmt.Sprintf("File facts:\n%s", raw)
}

type capabilityContext struct {
	Entrypoint string   `json:"entrypoint"`
	Files      []string `json:"files"`
	Hubs       []string `json:"hubs_touched,omitempty"`
}

func (c capabilityContext) userPrompt() string {
	raw, _ := json.Marshal(c)
	return fmt.Sprintf("Capability facts:\n%s", raw)
}

func truncateList(items []string, max int) []string {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
