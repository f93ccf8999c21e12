// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONTo_PrettyPrints(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"project_id": "test-project",
		"artifacts":  5,
	}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "  \"project_id\"") {
		t.Errorf("expected 2-space indentation, got: %s", got)
	}
	if !strings.Contains(got, `"project_id": "test-project"`) {
		t.Errorf("missing project_id field, got: %s", got)
	}
	if !strings.Contains(got, `"artifacts": 5`) {
		t.Errorf("missing artifacts field, got: %s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("expected trailing newline, got: %q", got)
	}
}

func TestJSONTo_StructTags(t *testing.T) {
	var buf bytes.Buffer

	result := struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{
		JobID:  "job-1",
		Status: "done",
	}

	if err := JSONTo(&buf, &result); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"job_id": "job-1"`) {
		t.Errorf("missing job_id, got: %s", got)
	}
	if strings.Contains(got, "error") {
		t.Errorf("empty omitempty field should be absent, got: %s", got)
	}
}

func TestJSONTo_EncodingFailure(t *testing.T) {
	var buf bytes.Buffer

	// Channels cannot be JSON encoded.
	if err := JSONTo(&buf, map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected encoding error for channel value")
	}
}
