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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterParser extracts file structure from real ASTs.
type TreeSitterParser struct {
	logger    *slog.Logger
	languages map[string]*sitter.Language
}

func NewTreeSitterParser(logger *slog.Logger) *TreeSitterParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterParser{
		logger: logger,
		languages: map[string]*sitter.Language{
			LangJavaScript: javascript.GetLanguage(),
			LangTypeScript: typescript.GetLanguage(),
			LangTSX:        tsx.GetLanguage(),
			LangPython:     python.GetLanguage(),
		},
	}
}

func (p *TreeSitterParser) ParseFile(root string, file FileInfo) (*ParsedFile, error) {
	lang, ok := p.languages[file.Language]
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", file.Language)
	}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file.Path)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", file.Path, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		p.logger.Warn("parser.treesitter.syntax_errors", "path", file.Path)
	}

	parsed := &ParsedFile{
		Path:     file.Path,
		Language: file.Language,
		LOC:      countLines(content),
		Hints:    detectHints(file.Path, content),
	}

	seen := make(map[string]map[string]struct{})
	add := func(bucket string, target *[]string, name string) {
		if name == "" {
			return
		}
		if seen[bucket] == nil {
			seen[bucket] = make(map[string]struct{})
		}
		if _, dup := seen[bucket][name]; dup {
			return
		}
		seen[bucket][name] = struct{}{}
		*target = append(*target, name)
	}

	if file.Language == LangPython {
		p.walkPython(rootNode, content, parsed, add)
	} else {
		p.walkJS(rootNode, content, parsed, add)
	}
	return parsed, nil
}

type addFunc func(bucket string, target *[]string, name string)

func (p *TreeSitterParser) walkJS(node *sitter.Node, content []byte, parsed *ParsedFile, add addFunc) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement", "export_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			add("imports", &parsed.Imports, stripQuotes(src.Content(content)))
		}
	case "call_expression":
		// require('x')
		fn := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if fn != nil && args != nil && fn.Content(content) == "require" && args.NamedChildCount() == 1 {
			arg := args.NamedChild(0)
			if arg.Type() == "string" {
				add("imports", &parsed.Imports, stripQuotes(arg.Content(content)))
			}
		}
	case "function_declaration", "generator_function_declaration", "function_signature":
		if name := node.ChildByFieldName("name"); name != nil {
			add("functions", &parsed.Functions, name.Content(content))
		}
	case "variable_declarator":
		// const foo = () => {} / const foo = function () {}
		name := node.ChildByFieldName("name")
		value := node.ChildByFieldName("value")
		if name != nil && value != nil {
			switch value.Type() {
			case "arrow_function", "function_expression", "function":
				add("functions", &parsed.Functions, name.Content(content))
			}
		}
	case "class_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			add("classes", &parsed.Classes, name.Content(content))
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkJS(node.Child(i), content, parsed, add)
	}
}

func (p *TreeSitterParser) walkPython(node *sitter.Node, content []byte, parsed *ParsedFile, add addFunc) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				add("imports", &parsed.Imports, child.Content(content))
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					add("imports", &parsed.Imports, name.Content(content))
				}
			}
		}
	case "import_from_statement":
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			add("imports", &parsed.Imports, mod.Content(content))
		}
	case "function_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			add("functions", &parsed.Functions, name.Content(content))
		}
	case "class_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			add("classes", &parsed.Classes, name.Content(content))
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkPython(node.Child(i), content, parsed, add)
	}
}

func stripQuotes(s string) string {
	return strings.Trim(s, `'"`+"`")
}
