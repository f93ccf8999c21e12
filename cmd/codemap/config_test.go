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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	cfg := DefaultConfig("proj-1")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "proj-1", loaded.ProjectID)
	assert.Equal(t, cfg.Parser, loaded.Parser)
}

func TestLoadConfigRequiresProjectID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parser:\n  mode: auto\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")
}

func TestPipelineConfigMapsParserSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	yamlText := `project_id: proj-1
parser:
  mode: heuristic
  batch_size: 10
  max_file_size_bytes: 4096
  subprocess_timeout_seconds: 7
`
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	pc := cfg.PipelineConfig()
	assert.Equal(t, 10, pc.BatchSize)
	assert.Equal(t, int64(4096), pc.MaxFileSize)
	assert.Equal(t, 7*time.Second, pc.SubprocessTimeout)
}
