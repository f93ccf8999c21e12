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
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the largest source file discovery will keep.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

var excludedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	".next":        {},
	"coverage":     {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
}

var languageByExt = map[string]string{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangTSX,
	".ts":  LangTypeScript,
	".tsx": LangTSX,
	".py":  LangPython,
}

// DiscoverResult is the outcome of walking a snapshot root.
type DiscoverResult struct {
	Files       []FileInfo
	SkipReasons map[string]int // reason -> count
}

// Discover walks root and returns the supported source files in stable
// path order, along with per-reason skip counts.
func Discover(root string, maxFileSize int64) (*DiscoverResult, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	files := make([]FileInfo, 0, 64)
	skipReasons := make(map[string]int)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, excluded := excludedDirs[name]; excluded || strings.HasPrefix(name, ".") {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		lang, supported := languageByExt[strings.ToLower(filepath.Ext(name))]
		if !supported {
			skipReasons["unsupported_language"]++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileSize {
			skipReasons["too_large"]++
			slog.Warn("discover.skip_large_file", "path", path, "size", info.Size())
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:     filepath.ToSlash(rel),
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return &DiscoverResult{Files: files, SkipReasons: skipReasons}, nil
}
