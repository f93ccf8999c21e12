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

package pipeline

import (
	"time"

	"github.com/kraklabs/codemap/pkg/parse"
	"github.com/kraklabs/codemap/pkg/summarize"
)

// Config carries the pipeline knobs. Zero values select defaults.
type Config struct {
	// ParserMode selects treesitter, heuristic, or auto.
	ParserMode parse.Mode `yaml:"parser_mode"`
	// BatchSize is how many files one parse batch covers.
	BatchSize int `yaml:"batch_size"`
	// MaxFileSize is the discovery size cutoff in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`
	// SubprocessTimeout bounds the wait for a subprocess slot per file.
	SubprocessTimeout time.Duration `yaml:"subprocess_timeout"`
	// Summarize configures the LLM fan-out.
	Summarize summarize.Config `yaml:"summarize"`
}

func (c Config) withDefaults() Config {
	if c.ParserMode == "" {
		c.ParserMode = parse.DefaultMode
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = parse.DefaultMaxFileSize
	}
	if c.SubprocessTimeout <= 0 {
		c.SubprocessTimeout = 30 * time.Second
	}
	return c
}
