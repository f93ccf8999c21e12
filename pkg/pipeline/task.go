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
	"time"

	"github.com/kraklabs/codemap/pkg/state"
)

// runTask wraps one phase execution with task bookkeeping: a task row
// opened before and closed after, wall-clock duration, and the phase
// duration histogram. The phase error passes through unchanged.
func (p *Pipeline) runTask(ctx context.Context, jobID, name string, fn func() error) error {
	taskID, err := p.state.StartTask(ctx, jobID, name)
	if err != nil {
		return NewFailure(name, err)
	}
	start := time.Now()

	phaseErr := fn()

	elapsed := time.Since(start)
	pipeMetrics.phaseDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	status := state.TaskSucceeded
	errMsg := ""
	if phaseErr != nil {
		status = state.TaskFailed
		errMsg = phaseErr.Error()
	}
	if err := p.state.FinishTask(ctx, taskID, status, elapsed, errMsg); err != nil {
		p.logger.Warn("pipeline.task.finish", "job_id", jobID, "task", name, "error", err)
	}
	return phaseErr
}
