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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codemap/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force       bool
	projectID   string
	llmProvider string
	llmURL      string
	llmModel    string
	llmAPIKey   string
}

// runInit executes the 'init' CLI command, creating a
// .codemap/project.yaml configuration file.
//
// Flags:
//   - --force: Overwrite existing configuration (default: false)
//   - --project-id: Project identifier (default: directory name)
//   - --llm-provider: LLM provider (ollama, openai, anthropic, mock)
//   - --llm-url: LLM API URL
//   - --llm-model: LLM model name
//   - --llm-api-key: LLM API key (optional for local models)
//
// Examples:
//
//	codemap init
//	codemap init --project-id myservice
//	codemap init --llm-provider openai --llm-url http://localhost:8001/v1
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.StringVar(&f.projectID, "project-id", "", "Project identifier (default: directory name)")
	fs.StringVar(&f.llmProvider, "llm-provider", "", "LLM provider (ollama, openai, anthropic, mock)")
	fs.StringVar(&f.llmURL, "llm-url", "", "LLM API URL (OpenAI-compatible, e.g., http://localhost:8001/v1)")
	fs.StringVar(&f.llmModel, "llm-model", "", "LLM model name")
	fs.StringVar(&f.llmAPIKey, "llm-api-key", "", "LLM API key (optional for local models)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codemap init [options]

Creates .codemap/project.yaml configuration file.

Examples:
  codemap init
  codemap init --project-id myservice
  codemap init --llm-provider mock        # No LLM required

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !f.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	if f.projectID == "" {
		f.projectID = sanitizeProjectID(filepath.Base(cwd))
	}

	cfg := DefaultConfig(f.projectID)
	if f.llmProvider != "" {
		cfg.LLM.Provider = f.llmProvider
	}
	cfg.LLM.URL = f.llmURL
	cfg.LLM.Model = f.llmModel
	cfg.LLM.APIKey = f.llmAPIKey

	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", configPath, err)
		os.Exit(1)
	}
	addToGitignore(cwd)

	ui.Successf("Created %s", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review .codemap/project.yaml")
	fmt.Println("  2. Run 'codemap run' to analyze the repository")
	fmt.Println("  3. Run 'codemap status' to inspect the results")
}

// sanitizeProjectID turns a directory name into a usable project ID.
func sanitizeProjectID(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

// addToGitignore appends .codemap/data to .gitignore when a git repo is
// present and the entry is missing.
func addToGitignore(dir string) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return
	}
	gitignorePath := filepath.Join(dir, ".gitignore")
	entry := ".codemap/data/"

	existing, err := os.ReadFile(gitignorePath)
	if err == nil && strings.Contains(string(existing), entry) {
		return
	}

	file, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		fmt.Fprintln(file)
	}
	fmt.Fprintln(file, entry)
}
