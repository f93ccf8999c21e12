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
	"fmt"
	"path"
	"strings"

	"github.com/kraklabs/codemap/pkg/parse"
)

// fallbackFileSummary builds a deterministic summary from parsed
// structure alone. Used when the LLM call fails and as the backfill
// source for any field the LLM left out.
func fallbackFileSummary(f parse.ParsedFile, internalDeps []string) FileSummary {
	role := fileRole(f)
	dev := fmt.Sprintf("%s %s with %d function(s) and %d class(es).",
		capitalize(f.Language), role, len(f.Functions), len(f.Classes))
	if len(internalDeps) > 0 {
		dev += fmt.Sprintf(" Depends on %s.", strings.Join(truncateList(internalDeps, 3), ", "))
	}
	return FileSummary{
		Path:             f.Path,
		Title:            path.Base(f.Path),
		Blurb:            fmt.Sprintf("%s %s.", capitalize(f.Language), role),
		DevSummary:       dev,
		VibecoderSummary: "This file is part of the app. You can change it to adjust behavior.",
		KeyFunctions:     truncateList(f.Functions, 10),
		Fallback:         true,
	}
}

func fallbackCapability(entry string, flow []string) Capability {
	return Capability{
		Title:            fmt.Sprintf("Capability starting at %s", entry),
		Entrypoint:       entry,
		Files:            flow,
		Summary:          "Flow across entrypoint and its immediate internal dependencies.",
		VibecoderSummary: "This part of the app starts here and uses a few helper files to work.",
		Fallback:         true,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fileRole(f parse.ParsedFile) string {
	switch {
	case f.Hints.IsAPI:
		return "API handler"
	case f.Hints.IsRoute:
		return "route"
	case f.Hints.IsComponent:
		return "UI component"
	case f.Hints.IsEntrypoint:
		return "entrypoint"
	default:
		return "file"
	}
}
