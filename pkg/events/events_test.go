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
	"encoding/json"
	"testing"
)

func TestMarshalKnownTypes(t *testing.T) {
	payloads := []Payload{
		JobStarted{SnapshotID: "s"},
		PhaseChange{Phase: "parsing", Pct: 35},
		CacheHit{SnapshotID: "s"},
		FilesTotal{Total: 12, Skipped: map[string]int{"binary": 2}},
		BatchParsed{Batch: 1, TotalBatches: 4, Parsed: 9, Failed: 1},
		ArtifactReady{Kind: "graph", Version: 2, URI: "file:///x"},
		ImportsMetrics{Total: 10, Internal: 7, External: 3},
		Warning{Phase: "parsing", Path: "a.ts", Message: "boom"},
		Error{Phase: "mapping", Message: "boom"},
		Done{Artifacts: 5},
	}
	for _, p := range payloads {
		eventType, payload, err := Marshal(p)
		if err != nil {
			t.Fatalf("marshal %T: %v", p, err)
		}
		if !Known(eventType) {
			t.Errorf("%T produced unknown type %q", p, eventType)
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			t.Errorf("%T payload is not valid JSON: %v", p, err)
		}
	}
}

type rogueEvent struct{}

func (rogueEvent) EventType() string { return "rogue" }

func TestMarshalRejectsUnknownType(t *testing.T) {
	if _, _, err := Marshal(rogueEvent{}); err == nil {
		t.Fatal("expected unknown event type to be rejected")
	}
}

type captureAppender struct {
	jobID     string
	eventType string
	payload   string
}

func (c *captureAppender) AppendEvent(_ context.Context, jobID, eventType, payload string) error {
	c.jobID, c.eventType, c.payload = jobID, eventType, payload
	return nil
}

func TestSinkEmit(t *testing.T) {
	capture := &captureAppender{}
	sink := NewSink(capture)

	if err := sink.Emit(context.Background(), "job-1", BatchParsed{Batch: 2, TotalBatches: 3, Parsed: 5}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.jobID != "job-1" || capture.eventType != TypeBatchParsed {
		t.Errorf("unexpected append: job=%q type=%q", capture.jobID, capture.eventType)
	}

	var decoded BatchParsed
	if err := json.Unmarshal([]byte(capture.payload), &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.Batch != 2 || decoded.Parsed != 5 {
		t.Errorf("payload round trip lost fields: %+v", decoded)
	}
}

func TestSinkRejectsRogueType(t *testing.T) {
	sink := NewSink(&captureAppender{})
	if err := sink.Emit(context.Background(), "job-1", rogueEvent{}); err == nil {
		t.Fatal("expected emit of unknown type to fail")
	}
}
