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

// Package bootstrap handles codemap project initialization and setup.
//
// This internal package opens the per-project data stores: the SQLite
// job state database, the versioned artifact store, and the shared
// rate-limiter database.
//
// # Workflow
//
// A typical workflow for working with a project:
//
//	project, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
//	    ProjectID: "myproject",
//	    DataDir:   ".codemap/data",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer project.Close()
//
//	p := pipeline.New(project.State, project.Artifacts, project.Limits, ...)
//
// # Idempotency
//
// OpenProject is idempotent: opening an existing project reuses its
// data, opening a fresh one creates the databases and directories. This
// makes it suitable for use in scripts and automated workflows.
//
// # Shared rate limiting
//
// The limiter database is separate from the state database so that
// multiple codemap processes pointed at the same DataDir draw from the
// same token buckets without contending on the job tables.
//
// # Project Discovery
//
// List existing projects in the default data directory:
//
//	projects, err := bootstrap.ListProjects()
//	for _, id := range projects {
//	    fmt.Println(id)
//	}
package bootstrap
