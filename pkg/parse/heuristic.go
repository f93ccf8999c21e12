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

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// import x from 'y' / import 'y' / export ... from 'y'
	jsImportFromRe = regexp.MustCompile(`(?m)^\s*(?:import|export)\b[^'"\n]*['"]([^'"]+)['"]`)
	// require('y')
	jsRequireRe = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	// function foo( / async function foo(
	jsFunctionRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s+([A-Za-z_$][\w$]*)`)
	// const foo = (...) => / const foo = async (...) =>
	jsArrowRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?\(?[^=\n]*\)?\s*=>`)
	jsClassRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?class\s+([A-Za-z_$][\w$]*)`)

	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	pyFromImportRe = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\b`)
	pyFunctionRe   = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyClassRe      = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_]\w*)`)
)

// HeuristicParser extracts file structure with regular expressions. It
// misses constructs an AST parser would catch, but runs anywhere and
// never needs CGO.
type HeuristicParser struct {
	logger *slog.Logger
}

func NewHeuristicParser(logger *slog.Logger) *HeuristicParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicParser{logger: logger}
}

func (p *HeuristicParser) ParseFile(root string, file FileInfo) (*ParsedFile, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file.Path)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}

	parsed := &ParsedFile{
		Path:     file.Path,
		Language: file.Language,
		LOC:      countLines(content),
		Hints:    detectHints(file.Path, content),
	}

	switch file.Language {
	case LangPython:
		parsed.Imports = matchAll(content, pyImportRe, pyFromImportRe)
		parsed.Functions = matchAll(content, pyFunctionRe)
		parsed.Classes = matchAll(content, pyClassRe)
	default:
		parsed.Imports = matchAll(content, jsImportFromRe, jsRequireRe)
		parsed.Functions = matchAll(content, jsFunctionRe, jsArrowRe)
		parsed.Classes = matchAll(content, jsClassRe)
	}
	return parsed, nil
}

// matchAll collects the first capture group of every match across the
// given patterns, deduplicated in first-seen order.
func matchAll(content []byte, patterns ...*regexp.Regexp) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, re := range patterns {
		for _, m := range re.FindAllSubmatch(content, -1) {
			name := string(m[1])
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
