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
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// JobProgress renders a 0-100 percent bar following a job through its
// phases. All methods are safe to call on a disabled instance, so
// callers never need nil checks.
type JobProgress struct {
	bar   *progressbar.ProgressBar
	phase string
}

// NewJobProgress creates the progress widget for a running job.
//
// Rendering is disabled when:
//   - --json flag is set (quiet is auto-set)
//   - -q/--quiet flag is set
//   - stderr is not a TTY (piped output, CI environments)
func NewJobProgress(globals GlobalFlags) *JobProgress {
	if globals.Quiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return &JobProgress{}
	}

	bar := progressbar.NewOptions64(100,
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(!globals.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &JobProgress{bar: bar}
}

// Enabled reports whether the bar is actually rendering. Callers use it
// to decide between bar output and plain log lines.
func (p *JobProgress) Enabled() bool {
	return p.bar != nil
}

// Update moves the bar to pct and relabels it when the job enters a new
// phase.
func (p *JobProgress) Update(phase string, pct int) {
	if p.bar == nil {
		return
	}
	if phase != "" && phase != p.phase {
		p.phase = phase
		p.bar.Describe(phase)
	}
	_ = p.bar.Set(pct)
}

// Finish clears the bar.
func (p *JobProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
