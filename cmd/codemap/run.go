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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/codemap/internal/bootstrap"
	"github.com/kraklabs/codemap/internal/errors"
	"github.com/kraklabs/codemap/internal/ui"
	"github.com/kraklabs/codemap/pkg/llm"
	"github.com/kraklabs/codemap/pkg/pipeline"
	"github.com/kraklabs/codemap/pkg/state"
)

// runRun executes the 'run' CLI command: it enqueues a job for the
// current repository and drives it through the pipeline in-process.
//
// Flags:
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//   - --worker: Keep running after the job, claiming queued jobs until interrupted
func runRun(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	workerMode := fs.Bool("worker", false, "Keep claiming queued jobs until interrupted")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codemap run [options]

Analyzes the current repository using configuration from
.codemap/project.yaml. Data is stored locally in .codemap/data/

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load project configuration",
			err.Error(),
			"Run 'codemap init' to create .codemap/project.yaml",
			err,
		), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot determine current directory", err.Error(), "", err,
		), globals.JSON)
	}

	project, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   DataDir(cwd),
		Limits:    cfg.Limits,
	}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open project data",
			err.Error(),
			"Check permissions on .codemap/data, or run 'codemap reset'",
			err,
		), globals.JSON)
	}
	defer project.Close()

	provider, err := buildProvider(cfg)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot create LLM provider",
			err.Error(),
			"Check the llm section of .codemap/project.yaml",
			err,
		), globals.JSON)
	}

	p := pipeline.New(project.State, project.Artifacts, project.Limits, provider, cfg.PipelineConfig(), logger)

	snap, job, cached, err := p.Ingest(ctx, pipeline.IngestRequest{
		RepoID:       cfg.ProjectID,
		Root:         cwd,
		SettingsHash: cfg.SettingsHash(),
	})
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot enqueue analysis job", err.Error(), "", err,
		), globals.JSON)
	}
	if cached {
		ui.Successf("Snapshot %s already analyzed (cache hit)", snap.ID[:8])
		return
	}
	ui.Infof("Job %s queued for snapshot %s", job.ID[:8], snap.ID[:8])

	worker := pipeline.NewWorker(p, time.Second, logger)

	progressDone := make(chan struct{})
	go watchJobProgress(ctx, project.State, job.ID, globals, progressDone)

	if *workerMode {
		err = worker.Run(ctx)
		<-progressDone
		if err != nil && ctx.Err() == nil {
			errors.FatalError(errors.NewInternalError("Worker stopped", err.Error(), "", err), globals.JSON)
		}
		return
	}

	// Single-shot: keep claiming until our job reaches a terminal state
	// (retryable failures requeue it).
	for {
		if _, err := worker.RunOnce(ctx); err != nil {
			break
		}
		final, err := project.State.GetJob(ctx, job.ID)
		if err != nil {
			break
		}
		if final.Status == state.JobDone || final.Status == state.JobError {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(200 * time.Millisecond):
			continue
		}
		break
	}
	cancel()
	<-progressDone

	final, err := project.State.GetJob(context.Background(), job.ID)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Cannot read final job state", err.Error(), "", err), globals.JSON)
	}
	switch final.Status {
	case state.JobDone:
		ui.Successf("Analysis complete (job %s)", final.ID[:8])
		ui.Infof("Imports: %d total, %d internal, %d external",
			final.ImportsTotal, final.ImportsInternal, final.ImportsExternal)
	case state.JobError:
		errors.FatalError(errors.NewInternalError(
			"Analysis failed",
			final.Error,
			"See 'codemap status' for warnings and events",
			nil,
		), globals.JSON)
	default:
		ui.Warningf("Job %s interrupted at %s (%d%%); re-run to resume", final.ID[:8], final.Status, final.Pct)
	}
}

// buildProvider creates the LLM provider from config, falling back to
// environment-driven defaults when the config has no llm section.
func buildProvider(cfg *Config) (llm.Provider, error) {
	if cfg.LLM.Provider == "" {
		return llm.DefaultProvider()
	}
	return llm.NewProvider(llm.ProviderConfig{
		Type:         cfg.LLM.Provider,
		BaseURL:      cfg.LLM.URL,
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
	})
}

// watchJobProgress renders a progress bar that follows the job's pct
// until it reaches a terminal state or ctx is done.
func watchJobProgress(ctx context.Context, st *state.Store, jobID string, globals GlobalFlags, done chan<- struct{}) {
	defer close(done)
	progress := NewJobProgress(globals)
	if !progress.Enabled() {
		return
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			progress.Finish()
			return
		case <-ticker.C:
			job, err := st.GetJob(ctx, jobID)
			if err != nil {
				continue
			}
			progress.Update(job.Status, job.Pct)
			if job.Status == state.JobDone || job.Status == state.JobError {
				progress.Finish()
				return
			}
		}
	}
}

