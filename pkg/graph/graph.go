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

// Package graph resolves the imports extracted during parsing into a
// file-level dependency graph.
//
// Relative JavaScript/TypeScript specifiers and Python module paths are
// resolved against the discovered file set; anything that does not land
// on a discovered file is an external edge. The graph feeds the imports
// metrics, the hub list, and the capability grouping the summarizer uses.
package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/kraklabs/codemap/pkg/parse"
)

// Edge is one import from a discovered file.
type Edge struct {
	From      string `json:"from"`
	To        string `json:"to,omitempty"` // resolved path, empty for external
	Specifier string `json:"specifier"`
	Internal  bool   `json:"internal"`
}

// Metrics are the aggregate counts for the imports_metrics event.
type Metrics struct {
	Total    int `json:"total"`
	Internal int `json:"internal"`
	External int `json:"external"`
}

// Hub is a file ranked by how many internal edges touch it.
type Hub struct {
	Path   string `json:"path"`
	Degree int    `json:"degree"`
}

// Graph is the resolved dependency graph over one snapshot.
type Graph struct {
	Files   []parse.ParsedFile `json:"files"`
	Edges   []Edge             `json:"edges"`
	Metrics Metrics            `json:"metrics"`
	Hubs    []Hub              `json:"hubs"`

	byPath map[string]*parse.ParsedFile
	deps   map[string][]string
}

var jsExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// Build resolves every import of every parsed file against the file set.
func Build(files []parse.ParsedFile) *Graph {
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f.Path] = struct{}{}
	}

	g := &Graph{
		Files:  files,
		byPath: make(map[string]*parse.ParsedFile, len(files)),
		deps:   make(map[string][]string),
	}
	for i := range files {
		g.byPath[files[i].Path] = &files[i]
	}

	degree := make(map[string]int)
	for _, f := range files {
		for _, spec := range f.Imports {
			edge := Edge{From: f.Path, Specifier: spec}
			if target, ok := resolve(f, spec, known); ok {
				edge.To = target
				edge.Internal = true
				g.Metrics.Internal++
				degree[f.Path]++
				degree[target]++
				g.deps[f.Path] = append(g.deps[f.Path], target)
			} else {
				g.Metrics.External++
			}
			g.Metrics.Total++
			g.Edges = append(g.Edges, edge)
		}
	}

	for p, d := range degree {
		g.Hubs = append(g.Hubs, Hub{Path: p, Degree: d})
	}
	sort.Slice(g.Hubs, func(i, j int) bool {
		if g.Hubs[i].Degree != g.Hubs[j].Degree {
			return g.Hubs[i].Degree > g.Hubs[j].Degree
		}
		return g.Hubs[i].Path < g.Hubs[j].Path
	})
	if len(g.Hubs) > 10 {
		g.Hubs = g.Hubs[:10]
	}
	return g
}

// Entrypoints returns the files hinted as entrypoints, in path order.
func (g *Graph) Entrypoints() []parse.ParsedFile {
	var out []parse.ParsedFile
	for _, f := range g.Files {
		if f.Hints.IsEntrypoint {
			out = append(out, f)
		}
	}
	return out
}

// InternalDeps returns the internal files that p imports directly.
func (g *Graph) InternalDeps(p string) []string {
	return g.deps[p]
}

// File returns the parsed file at path, or nil.
func (g *Graph) File(path string) *parse.ParsedFile {
	return g.byPath[path]
}

func resolve(from parse.ParsedFile, spec string, known map[string]struct{}) (string, bool) {
	if from.Language == parse.LangPython {
		return resolvePython(from.Path, spec, known)
	}
	return resolveJS(from.Path, spec, known)
}

func resolveJS(fromPath, spec string, known map[string]struct{}) (string, bool) {
	if !strings.HasPrefix(spec, ".") {
		return "", false
	}
	base := path.Join(path.Dir(fromPath), spec)
	if _, ok := known[base]; ok {
		return base, true
	}
	for _, ext := range jsExtensions {
		if candidate := base + ext; exists(candidate, known) {
			return candidate, true
		}
	}
	for _, ext := range jsExtensions {
		if candidate := path.Join(base, "index"+ext); exists(candidate, known) {
			return candidate, true
		}
	}
	return "", false
}

func resolvePython(fromPath, spec string, known map[string]struct{}) (string, bool) {
	var base string
	if strings.HasPrefix(spec, ".") {
		// Relative import: each leading dot above the first climbs one
		// package level.
		dir := path.Dir(fromPath)
		rest := strings.TrimLeft(spec, ".")
		for i := 1; i < len(spec)-len(rest); i++ {
			dir = path.Dir(dir)
		}
		base = path.Join(dir, strings.ReplaceAll(rest, ".", "/"))
	} else {
		base = strings.ReplaceAll(spec, ".", "/")
	}
	if candidate := base + ".py"; exists(candidate, known) {
		return candidate, true
	}
	if candidate := path.Join(base, "__init__.py"); exists(candidate, known) {
		return candidate, true
	}
	return "", false
}

func exists(p string, known map[string]struct{}) bool {
	_, ok := known[p]
	return ok
}
