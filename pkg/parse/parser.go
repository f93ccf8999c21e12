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
	"log/slog"
	"path"
	"strings"
)

// Mode selects the parser implementation.
type Mode string

const (
	// ModeTreeSitter uses Tree-sitter AST parsing. Requires CGO.
	ModeTreeSitter Mode = "treesitter"

	// ModeHeuristic uses regex and string matching. No CGO, coarser
	// extraction.
	ModeHeuristic Mode = "heuristic"

	// ModeAuto prefers Tree-sitter and falls back to heuristic.
	ModeAuto Mode = "auto"
)

// DefaultMode is used when the project config does not pick one.
const DefaultMode = ModeAuto

// NewParser returns the FileParser for mode.
func NewParser(mode Mode, logger *slog.Logger) FileParser {
	if logger == nil {
		logger = slog.Default()
	}
	switch mode {
	case ModeHeuristic:
		logger.Info("parser.mode", "mode", "heuristic")
		return NewHeuristicParser(logger)
	case ModeTreeSitter:
		logger.Info("parser.mode", "mode", "treesitter")
		return NewTreeSitterParser(logger)
	default:
		logger.Info("parser.mode", "mode", "auto")
		return &autoParser{
			primary:  NewTreeSitterParser(logger),
			fallback: NewHeuristicParser(logger),
			logger:   logger,
		}
	}
}

// autoParser tries Tree-sitter first and falls back to the heuristic
// parser per file.
type autoParser struct {
	primary  FileParser
	fallback FileParser
	logger   *slog.Logger
}

func (a *autoParser) ParseFile(root string, file FileInfo) (*ParsedFile, error) {
	parsed, err := a.primary.ParseFile(root, file)
	if err == nil {
		return parsed, nil
	}
	a.logger.Warn("parser.auto.fallback", "path", file.Path, "error", err)
	return a.fallback.ParseFile(root, file)
}

// entrypointNames are file basenames (without extension) treated as
// program entrypoints.
var entrypointNames = map[string]struct{}{
	"main":   {},
	"index":  {},
	"app":    {},
	"server": {},
	"cli":    {},
}

// detectHints derives role hints from the file path and raw content.
// Shared by both parser implementations so hint semantics never diverge.
func detectHints(filePath string, content []byte) Hints {
	var h Hints
	lower := strings.ToLower(filePath)
	text := string(content)

	if strings.Contains(lower, "/api/") || strings.HasPrefix(lower, "api/") {
		h.IsAPI = true
	}
	if strings.Contains(text, "app.get(") || strings.Contains(text, "app.post(") ||
		strings.Contains(text, "router.get(") || strings.Contains(text, "router.post(") ||
		strings.Contains(text, "@app.route(") || strings.Contains(text, "@router.") {
		h.IsAPI = true
	}

	inPages := strings.Contains(lower, "/pages/") || strings.HasPrefix(lower, "pages/")
	inApp := strings.Contains(lower, "/app/") || strings.HasPrefix(lower, "app/")
	if inPages || (inApp && (strings.HasSuffix(lower, "page.tsx") || strings.HasSuffix(lower, "route.ts"))) {
		h.IsRoute = true
	}
	if strings.Contains(text, "<Route") || strings.Contains(text, "createBrowserRouter") {
		h.IsRoute = true
	}

	ext := path.Ext(lower)
	if ext == ".tsx" || ext == ".jsx" {
		h.IsComponent = true
	}

	base := strings.TrimSuffix(path.Base(lower), ext)
	if _, ok := entrypointNames[base]; ok {
		h.IsEntrypoint = true
	}
	return h
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}
