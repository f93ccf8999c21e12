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
	"errors"
	"fmt"

	"github.com/kraklabs/codemap/pkg/limits"
)

// Class tags a pipeline failure with how the scheduler should react.
type Class string

const (
	// Retryable failures (resource exhaustion, transient store trouble)
	// should be requeued with backoff.
	Retryable Class = "retryable"
	// Fatal failures move the job to its error status.
	Fatal Class = "fatal"
	// Degraded failures already took a fallback path; the run continued
	// and the class only shows up in warnings.
	Degraded Class = "degraded"
)

// Failure wraps a phase error with its class so callers branch on the
// class instead of matching error strings.
type Failure struct {
	Class Class
	Phase string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", f.Phase, f.Class, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure classifies err for phase. Resource exhaustion and context
// cancellation come back Retryable, everything else Fatal.
func NewFailure(phase string, err error) *Failure {
	class := Fatal
	if errors.Is(err, limits.ErrExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		class = Retryable
	}
	return &Failure{Class: class, Phase: phase, Err: err}
}

// ClassOf extracts the class of err, defaulting to Fatal for errors that
// were never classified.
func ClassOf(err error) Class {
	var f *Failure
	if errors.As(err, &f) {
		return f.Class
	}
	if errors.Is(err, limits.ErrExhausted) {
		return Retryable
	}
	return Fatal
}
