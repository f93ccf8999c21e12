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

package events

import (
	"context"
	"log/slog"
)

// Appender is the slice of the state store the sink needs.
type Appender interface {
	AppendEvent(ctx context.Context, jobID, eventType, payload string) error
}

// Sink validates and appends typed events to a job's stream.
type Sink struct {
	store Appender
}

func NewSink(store Appender) *Sink {
	return &Sink{store: store}
}

// Emit appends one event. Events are progress reporting, not pipeline
// state: an append failure is logged and returned but phases treat it as
// non-fatal.
func (s *Sink) Emit(ctx context.Context, jobID string, p Payload) error {
	eventType, payload, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := s.store.AppendEvent(ctx, jobID, eventType, payload); err != nil {
		slog.Warn("events.emit.failed", "job_id", jobID, "type", eventType, "error", err)
		return err
	}
	slog.Debug("events.emit", "job_id", jobID, "type", eventType)
	return nil
}
