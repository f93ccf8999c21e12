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

// Package events defines the closed set of progress events a pipeline job
// emits, with one payload type per event type. Emitting an event type
// outside the set is rejected at the boundary, so consumers can rely on
// the stream containing nothing else.
package events

import (
	"encoding/json"
	"fmt"
)

// Event types. This set is closed; Marshal rejects anything else.
const (
	TypeJobStarted     = "job_started"
	TypePhaseChange    = "phase_change"
	TypeCacheHit       = "cache_hit"
	TypeFilesTotal     = "files_total"
	TypeBatchParsed    = "batch_parsed"
	TypeArtifactReady  = "artifact_ready"
	TypeImportsMetrics = "imports_metrics"
	TypeWarning        = "warning"
	TypeError          = "error"
	TypeDone           = "done"
)

// Payload is implemented by every event payload type.
type Payload interface {
	EventType() string
}

// JobStarted opens a job's event stream.
type JobStarted struct {
	SnapshotID string `json:"snapshot_id"`
}

func (JobStarted) EventType() string { return TypeJobStarted }

// PhaseChange marks entry into a pipeline phase.
type PhaseChange struct {
	Phase string `json:"phase"`
	Pct   int    `json:"pct"`
}

func (PhaseChange) EventType() string { return TypePhaseChange }

// CacheHit reports that ingest short-circuited on an already completed
// snapshot.
type CacheHit struct {
	SnapshotID string `json:"snapshot_id"`
}

func (CacheHit) EventType() string { return TypeCacheHit }

// FilesTotal reports the discovered file count before parsing starts.
type FilesTotal struct {
	Total   int            `json:"total"`
	Skipped map[string]int `json:"skipped,omitempty"`
}

func (FilesTotal) EventType() string { return TypeFilesTotal }

// BatchParsed reports one parse batch finishing.
type BatchParsed struct {
	Batch        int `json:"batch"`
	TotalBatches int `json:"total_batches"`
	Parsed       int `json:"parsed"`
	Failed       int `json:"failed"`
}

func (BatchParsed) EventType() string { return TypeBatchParsed }

// ArtifactReady reports a new artifact version.
type ArtifactReady struct {
	Kind    string `json:"kind"`
	Version int    `json:"version"`
	URI     string `json:"uri"`
}

func (ArtifactReady) EventType() string { return TypeArtifactReady }

// ImportsMetrics reports dependency-graph counts.
type ImportsMetrics struct {
	Total    int `json:"total"`
	Internal int `json:"internal"`
	External int `json:"external"`
}

func (ImportsMetrics) EventType() string { return TypeImportsMetrics }

// Warning mirrors a non-fatal per-file problem into the stream.
type Warning struct {
	Phase   string `json:"phase"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (Warning) EventType() string { return TypeWarning }

// Error reports the fatal error that moved the job to its error status.
type Error struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

func (Error) EventType() string { return TypeError }

// Done closes the stream.
type Done struct {
	Artifacts int `json:"artifacts"`
}

func (Done) EventType() string { return TypeDone }

var knownTypes = map[string]struct{}{
	TypeJobStarted:     {},
	TypePhaseChange:    {},
	TypeCacheHit:       {},
	TypeFilesTotal:     {},
	TypeBatchParsed:    {},
	TypeArtifactReady:  {},
	TypeImportsMetrics: {},
	TypeWarning:        {},
	TypeError:          {},
	TypeDone:           {},
}

// Known reports whether eventType belongs to the closed set.
func Known(eventType string) bool {
	_, ok := knownTypes[eventType]
	return ok
}

// Marshal encodes a payload for storage, validating its type.
func Marshal(p Payload) (eventType, payload string, err error) {
	eventType = p.EventType()
	if !Known(eventType) {
		return "", "", fmt.Errorf("unknown event type %q", eventType)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return eventType, string(raw), nil
}
