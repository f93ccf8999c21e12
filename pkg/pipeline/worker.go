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
	"context"
	"log/slog"
	"time"
)

// Worker polls the job queue and drives claimed jobs through the
// pipeline. Multiple workers may share one state store; the claim is the
// only coordination point.
type Worker struct {
	pipeline *Pipeline
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(p *Pipeline, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{pipeline: p, interval: pollInterval, logger: logger}
}

// Run claims and executes jobs until ctx is done. Errors from individual
// jobs are absorbed into job state; only store-level claim errors pause
// the loop for one interval.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker.start", "poll_interval", w.interval)
	for {
		job, err := w.pipeline.state.ClaimJob(ctx)
		if err != nil {
			w.logger.Warn("worker.claim.error", "error", err)
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		pipeMetrics.jobsClaimed.Inc()
		w.logger.Info("worker.job.claimed", "job_id", job.ID, "attempt", job.Attempts)
		runErr := w.pipeline.Run(ctx, job)
		if err := w.pipeline.HandleResult(ctx, job, runErr); err != nil {
			w.logger.Error("worker.job.record", "job_id", job.ID, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// RunOnce claims at most one job and executes it. Returns the claimed
// job, nil when the queue was empty.
func (w *Worker) RunOnce(ctx context.Context) (jobID string, err error) {
	job, err := w.pipeline.state.ClaimJob(ctx)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", nil
	}
	pipeMetrics.jobsClaimed.Inc()
	runErr := w.pipeline.Run(ctx, job)
	return job.ID, w.pipeline.HandleResult(ctx, job, runErr)
}

func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.interval):
		return true
	}
}
