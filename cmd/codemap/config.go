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
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codemap/pkg/limits"
	"github.com/kraklabs/codemap/pkg/parse"
	"github.com/kraklabs/codemap/pkg/pipeline"
	"github.com/kraklabs/codemap/pkg/summarize"
)

// ParserSettings configure discovery and parsing.
type ParserSettings struct {
	// Mode is auto, treesitter, or heuristic.
	Mode string `yaml:"mode"`
	// BatchSize is how many files one parse batch covers.
	BatchSize int `yaml:"batch_size"`
	// MaxFileSizeBytes is the discovery size cutoff.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
	// SubprocessTimeoutSeconds bounds the wait for a parser subprocess
	// slot per file.
	SubprocessTimeoutSeconds int `yaml:"subprocess_timeout_seconds"`
}

// LLMSettings configure the summarization provider.
type LLMSettings struct {
	// Provider is ollama, openai, anthropic, or mock.
	Provider string `yaml:"provider"`
	// URL is the API base URL (OpenAI-compatible for openai).
	URL string `yaml:"url,omitempty"`
	// Model is the model name.
	Model string `yaml:"model,omitempty"`
	// APIKey is optional for local models.
	APIKey string `yaml:"api_key,omitempty"`
}

// Config is the .codemap/project.yaml configuration.
type Config struct {
	ProjectID string           `yaml:"project_id"`
	Parser    ParserSettings   `yaml:"parser"`
	Limits    limits.Config    `yaml:"limits"`
	Summarize summarize.Config `yaml:"summarize"`
	LLM       LLMSettings      `yaml:"llm"`
}

// DefaultConfig returns a configuration with every knob at its default.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Parser: ParserSettings{
			Mode:                     "auto",
			BatchSize:                50,
			MaxFileSizeBytes:         1 << 20,
			SubprocessTimeoutSeconds: 30,
		},
		Limits: limits.DefaultConfig(),
		LLM: LLMSettings{
			Provider: "ollama",
		},
	}
}

// ConfigDir returns the .codemap directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, ".codemap")
}

// ConfigPath returns the path of the project configuration file.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "project.yaml")
}

// DataDir returns where state and artifacts live for the project.
func DataDir(root string) string {
	return filepath.Join(ConfigDir(root), "data")
}

// LoadConfig reads the configuration, defaulting to
// ./.codemap/project.yaml when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration at %s (run 'codemap init' first)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%s: project_id is required", path)
	}
	return &cfg, nil
}

// Save writes the configuration to path, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PipelineConfig maps the file settings onto the pipeline knobs.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		ParserMode:        parseMode(c.Parser.Mode),
		BatchSize:         c.Parser.BatchSize,
		MaxFileSize:       c.Parser.MaxFileSizeBytes,
		SubprocessTimeout: time.Duration(c.Parser.SubprocessTimeoutSeconds) * time.Second,
		Summarize:         c.Summarize,
	}
}

// SettingsHash derives the snapshot settings hash from the knobs that
// change analysis output. Same tree plus same settings means the
// snapshot is reusable.
func (c *Config) SettingsHash() string {
	return fmt.Sprintf("parser=%s;batch=%d;max=%d;llm=%s/%s",
		c.Parser.Mode, c.Parser.BatchSize, c.Parser.MaxFileSizeBytes,
		c.LLM.Provider, c.LLM.Model)
}

func parseMode(mode string) parse.Mode {
	switch mode {
	case "treesitter":
		return parse.ModeTreeSitter
	case "heuristic":
		return parse.ModeHeuristic
	default:
		return parse.ModeAuto
	}
}
