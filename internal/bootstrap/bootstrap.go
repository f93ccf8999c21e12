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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/codemap/pkg/artifacts"
	"github.com/kraklabs/codemap/pkg/limits"
	"github.com/kraklabs/codemap/pkg/state"
)

// ProjectConfig holds configuration for opening a project's data stores.
type ProjectConfig struct {
	// ProjectID is the logical project identifier.
	ProjectID string

	// DataDir is the directory holding the project databases and
	// artifact payloads. Defaults to ~/.codemap/data/<project_id>.
	DataDir string

	// Limits configures the shared rate-limit buckets.
	Limits limits.Config
}

// Project bundles the opened data stores for one project. The rate
// limiters share a SQLite file so that concurrent codemap processes
// draw from the same buckets.
type Project struct {
	ProjectID string
	DataDir   string

	State     *state.Store
	Artifacts *artifacts.Store
	Limits    *limits.ResourceLimits

	limiterStore *limits.SQLiteStore
}

// OpenProject opens (creating if necessary) the project data stores.
// Idempotent: calling it on an existing project reuses the data.
func OpenProject(config ProjectConfig, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		config.DataDir = filepath.Join(homeDir, ".codemap", "data", config.ProjectID)
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger.Debug("bootstrap.project.open",
		"project_id", config.ProjectID,
		"data_dir", config.DataDir,
	)

	st, err := state.Open(filepath.Join(config.DataDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	limiterStore, err := limits.OpenSQLiteStore(filepath.Join(config.DataDir, "limits.db"))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open limiter store: %w", err)
	}

	return &Project{
		ProjectID:    config.ProjectID,
		DataDir:      config.DataDir,
		State:        st,
		Artifacts:    artifacts.NewStore(filepath.Join(config.DataDir, "artifacts"), st),
		Limits:       limits.New(config.Limits, limiterStore),
		limiterStore: limiterStore,
	}, nil
}

// Close releases the underlying databases.
func (p *Project) Close() error {
	var lastErr error
	if p.State != nil {
		if err := p.State.Close(); err != nil {
			lastErr = err
		}
	}
	if p.limiterStore != nil {
		if err := p.limiterStore.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ListProjects returns the project IDs under the default data directory.
func ListProjects() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".codemap", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No projects yet
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}

	return projects, nil
}
