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

// baseGlossary is the deterministic glossary. It doubles as the fallback
// when the LLM cannot enrich it.
var baseGlossary = []GlossaryEntry{
	{"function", "Reusable block of code.", "A recipe you can run."},
	{"class", "Template bundling data with the code that works on it.", "A blueprint for things the app creates."},
	{"import", "Statement pulling another file or library into this one.", "How one file borrows tools from another."},
	{"export", "Marks code as usable from other files.", "How a file shares its tools."},
	{"component", "Self-contained piece of user interface.", "A building block of what you see on screen."},
	{"route", "URL path mapped to code that handles it.", "An address inside the app."},
	{"API", "Interface other programs call to use this one.", "The app's service window for other apps."},
	{"schema", "Formal description of a data shape.", "The form data has to fill in."},
	{"middleware", "Code that runs on every request before the handler.", "A checkpoint every request passes through."},
	{"service", "Module owning one area of business logic.", "A department inside the app."},
	{"dependency", "Code this file needs to work.", "Something this file leans on."},
	{"module", "One file or package of related code.", "A chapter of the codebase."},
	{"entrypoint", "Where execution of the program starts.", "The app's front door."},
	{"environment variable", "Configuration value read from the process environment.", "A setting the app reads at startup."},
	{"logger", "Component that records what the program does.", "The app's diary."},
}

// glossaryEntries decodes the LLM "terms" array, falling back to the
// base set when the response carries nothing usable.
func glossaryEntries(parsed map[string]any, base []GlossaryEntry) []GlossaryEntry {
	items, ok := parsed["terms"].([]any)
	if !ok {
		return base
	}
	out := make([]GlossaryEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := GlossaryEntry{
			Term:                stringField(m, "term", ""),
			DevDefinition:       stringField(m, "dev_definition", ""),
			VibecoderDefinition: stringField(m, "vibecoder_definition", ""),
		}
		if entry.Term == "" || entry.DevDefinition == "" {
			continue
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return base
	}
	return out
}

// buildGlossary returns the glossary, filtered to terms that plausibly
// matter for the snapshot: UI terms only when components exist, API terms
// only when handlers exist, and the generic core always.
func buildGlossary(hasComponents, hasAPI bool) []GlossaryEntry {
	out := make([]GlossaryEntry, 0, len(baseGlossary))
	for _, entry := range baseGlossary {
		switch entry.Term {
		case "component":
			if !hasComponents {
				continue
			}
		case "route", "API", "middleware":
			if !hasAPI {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}
