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
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codemap/internal/bootstrap"
	"github.com/kraklabs/codemap/internal/output"
	"github.com/kraklabs/codemap/internal/ui"
	"github.com/kraklabs/codemap/pkg/events"
	"github.com/kraklabs/codemap/pkg/state"
)

// StatusResult represents the latest job status for JSON output.
type StatusResult struct {
	ProjectID       string    `json:"project_id"`
	DataDir         string    `json:"data_dir"`
	JobID           string    `json:"job_id,omitempty"`
	SnapshotID      string    `json:"snapshot_id,omitempty"`
	Status          string    `json:"status"`
	Pct             int       `json:"pct"`
	ImportsTotal    int       `json:"imports_total"`
	ImportsInternal int       `json:"imports_internal"`
	ImportsExternal int       `json:"imports_external"`
	Artifacts       int       `json:"artifacts"`
	Warnings        int       `json:"warnings"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying the latest
// job's progress, import metrics, artifacts and warnings.
//
// Flags:
//   - --watch: Follow the running job's event stream until it finishes
//
// Examples:
//
//	codemap status           Display formatted status
//	codemap status --json    Output as JSON for programmatic use
//	codemap status --watch   Follow a running job
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	watch := fs.Bool("watch", false, "Follow the running job until it finishes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codemap status [options]

Shows the latest analysis job status.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		statusError(globals, "", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		statusError(globals, cfg.ProjectID, err)
	}

	project, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   DataDir(cwd),
		Limits:    cfg.Limits,
	}, nil)
	if err != nil {
		statusError(globals, cfg.ProjectID, err)
	}
	defer project.Close()

	ctx := context.Background()
	job, err := project.State.LatestJob(ctx)
	if err != nil {
		statusError(globals, cfg.ProjectID, err)
	}

	result := &StatusResult{
		ProjectID: cfg.ProjectID,
		DataDir:   project.DataDir,
		Status:    "never run",
		Timestamp: time.Now(),
	}
	if job == nil {
		if globals.JSON {
			_ = output.JSON(result)
		} else {
			printStatus(result)
			fmt.Println("\nRun 'codemap run' to analyze the repository.")
		}
		return
	}

	if *watch && job.Status != state.JobDone && job.Status != state.JobError {
		watchJob(ctx, project.State, job.ID, globals)
		job, err = project.State.GetJob(ctx, job.ID)
		if err != nil {
			statusError(globals, cfg.ProjectID, err)
		}
	}

	result.JobID = job.ID
	result.SnapshotID = job.SnapshotID
	result.Status = job.Status
	result.Pct = job.Pct
	result.ImportsTotal = job.ImportsTotal
	result.ImportsInternal = job.ImportsInternal
	result.ImportsExternal = job.ImportsExternal
	result.Error = job.Error

	if arts, err := project.State.ListArtifacts(ctx, job.SnapshotID); err == nil {
		result.Artifacts = len(arts)
	}
	if warnings, err := project.State.ListWarnings(ctx, job.ID); err == nil {
		result.Warnings = len(warnings)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printStatus(result)
}

// watchJob tails the job's event stream, rendering phase changes and a
// progress bar, until a done or error event arrives.
func watchJob(ctx context.Context, st *state.Store, jobID string, globals GlobalFlags) {
	progress := NewJobProgress(globals)
	var afterID int64
	for {
		evs, err := st.ListEvents(ctx, jobID, afterID)
		if err != nil {
			time.Sleep(time.Second)
			continue
		}
		for _, ev := range evs {
			afterID = ev.ID
			switch ev.Type {
			case events.TypePhaseChange, events.TypeBatchParsed:
				// progress is read from the job row below
			case events.TypeWarning:
				if !progress.Enabled() {
					ui.Warningf("warning: %s", ev.Payload)
				}
			case events.TypeDone, events.TypeError:
				progress.Finish()
				return
			}
		}
		job, err := st.GetJob(ctx, jobID)
		if err == nil {
			progress.Update(job.Status, job.Pct)
			if job.Status == state.JobDone || job.Status == state.JobError {
				progress.Finish()
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func statusError(globals GlobalFlags, projectID string, err error) {
	if globals.JSON {
		_ = output.JSON(&StatusResult{
			ProjectID: projectID,
			Status:    "error",
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// printStatus prints the status result as formatted text to stdout.
func printStatus(result *StatusResult) {
	ui.Header("codemap Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Data Dir:  "), ui.DimText(result.DataDir))
	fmt.Println()

	ui.SubHeader("Latest job:")
	if result.JobID == "" {
		fmt.Println("  (none)")
		return
	}
	fmt.Printf("  Job:           %s\n", result.JobID)
	fmt.Printf("  Snapshot:      %s\n", result.SnapshotID)
	fmt.Printf("  Status:        %s (%d%%)\n", result.Status, result.Pct)
	fmt.Printf("  Imports:       %s total / %s internal / %s external\n",
		ui.CountText(result.ImportsTotal), ui.CountText(result.ImportsInternal), ui.CountText(result.ImportsExternal))
	fmt.Printf("  Artifacts:     %s\n", ui.CountText(result.Artifacts))
	fmt.Printf("  Warnings:      %s\n", ui.CountText(result.Warnings))

	if result.Error != "" {
		fmt.Println()
		ui.Errorf("%s", result.Error)
	}
}
