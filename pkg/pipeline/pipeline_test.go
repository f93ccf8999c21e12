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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/kraklabs/codemap/internal/testing"
	"github.com/kraklabs/codemap/pkg/events"
	"github.com/kraklabs/codemap/pkg/limits"
	"github.com/kraklabs/codemap/pkg/llm"
	"github.com/kraklabs/codemap/pkg/parse"
	"github.com/kraklabs/codemap/pkg/state"
	"github.com/kraklabs/codemap/pkg/summarize"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *state.Store) {
	t.Helper()
	st := testhelpers.SetupStateStore(t)
	art := testhelpers.SetupArtifactStore(t, st)
	lim := limits.New(limits.Config{
		MaxConcurrentSubprocesses: 100,
		SubprocessRefillPerSec:    100,
	}, limits.NewMemoryStore())
	provider := &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{
				Message: llm.Message{Role: "assistant", Content: `{"title": "T", "blurb": "B", "dev_summary": "D", "vibecoder_summary": "V", "summary": "S"}`},
				Done:    true,
			}, nil
		},
	}

	if cfg.ParserMode == "" {
		cfg.ParserMode = parse.ModeHeuristic
	}
	return New(st, art, lim, provider, cfg, nil), st
}

var sampleTree = map[string]string{
	"src/index.ts":   "import { serve } from './server'\nexport function main() { serve() }\n",
	"src/server.ts":  "import express from 'express'\nexport function serve() {}\n",
	"lib/helpers.py": "import os\n\ndef slugify(name):\n    return name\n",
}

func ingestAndClaim(t *testing.T, p *Pipeline, st *state.Store, root string) *state.Job {
	t.Helper()
	ctx := context.Background()
	_, job, cached, err := p.Ingest(ctx, IngestRequest{RepoID: "repo-1", Root: root, SettingsHash: "default"})
	require.NoError(t, err)
	require.False(t, cached)
	claimed, err := st.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, job.ID, claimed.ID)
	return claimed
}

func TestPipeline_FullRun(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)

	runErr := p.Run(ctx, job)
	require.NoError(t, runErr)
	require.NoError(t, p.HandleResult(ctx, job, runErr))

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, state.JobDone, final.Status)
	assert.Equal(t, 100, final.Pct)
	assert.Equal(t, 3, final.ImportsTotal)
	assert.Equal(t, 1, final.ImportsInternal)
	assert.Equal(t, 2, final.ImportsExternal)

	snap, err := st.GetSnapshot(ctx, job.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, state.SnapshotCompleted, snap.Status)

	arts, err := st.ListArtifacts(ctx, job.SnapshotID)
	require.NoError(t, err)
	kinds := make(map[string]bool)
	for _, a := range arts {
		kinds[a.Kind] = true
		assert.Equal(t, 1, a.Version)
	}
	for _, kind := range []string{KindFiles, KindParsed, KindGraph, KindSummary, KindMetrics} {
		assert.True(t, kinds[kind], "missing artifact %s", kind)
	}
}

func TestPipeline_EventStreamShape(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)
	require.NoError(t, p.Run(ctx, job))

	evs, err := st.ListEvents(ctx, job.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, events.TypeJobStarted, evs[0].Type)
	assert.Equal(t, events.TypeDone, evs[len(evs)-1].Type)

	var sawFilesTotal, sawImports bool
	for _, ev := range evs {
		assert.True(t, events.Known(ev.Type), "unknown event type %s", ev.Type)
		switch ev.Type {
		case events.TypeFilesTotal:
			var payload events.FilesTotal
			require.NoError(t, json.Unmarshal([]byte(ev.Payload), &payload))
			assert.Equal(t, 3, payload.Total)
			sawFilesTotal = true
		case events.TypeImportsMetrics:
			sawImports = true
		case events.TypePhaseChange:
			var payload events.PhaseChange
			require.NoError(t, json.Unmarshal([]byte(ev.Payload), &payload))
			if payload.Phase == state.JobParsing {
				// Batch interpolation tops out below the merge checkpoint.
				assert.True(t, payload.Pct <= pctParsingEnd || payload.Pct == pctMerged,
					"parsing pct %d out of range", payload.Pct)
			}
		}
	}
	assert.True(t, sawFilesTotal)
	assert.True(t, sawImports)
}

func TestPipeline_RerunReusesArtifacts(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)
	require.NoError(t, p.Run(ctx, job))

	// Same tree again: snapshot already completed, cache hit, no new job.
	snap2, job2, cached, err := p.Ingest(ctx, IngestRequest{RepoID: "repo-1", Root: root, SettingsHash: "default"})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Nil(t, job2)
	assert.Equal(t, job.SnapshotID, snap2.ID)
}

func TestPipeline_ChangedTreeGetsNewSnapshot(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)
	require.NoError(t, p.Run(ctx, job))

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "new.ts"), []byte("export const x = 1\n"), 0o644))
	_, job2, cached, err := p.Ingest(ctx, IngestRequest{RepoID: "repo-1", Root: root, SettingsHash: "default"})
	require.NoError(t, err)
	assert.False(t, cached)
	require.NotNil(t, job2)
	assert.NotEqual(t, job.SnapshotID, job2.SnapshotID)
}

func TestPipeline_CachedSnapshotShortCircuitsRun(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)
	require.NoError(t, p.Run(ctx, job))

	// Force a second job onto the completed snapshot and run it: the
	// pipeline must short-circuit with a cache_hit event.
	job2 := &state.Job{ID: "job-forced", SnapshotID: job.SnapshotID}
	require.NoError(t, st.EnqueueJob(ctx, job2))
	claimed, err := st.ClaimJob(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx, claimed))

	final, err := st.GetJob(ctx, job2.ID)
	require.NoError(t, err)
	assert.Equal(t, state.JobDone, final.Status)

	evs, err := st.ListEvents(ctx, job2.ID, 0)
	require.NoError(t, err)
	var sawCacheHit, sawFilesTotal bool
	for _, ev := range evs {
		switch ev.Type {
		case events.TypeCacheHit:
			sawCacheHit = true
		case events.TypeFilesTotal:
			sawFilesTotal = true
		}
	}
	assert.True(t, sawCacheHit)
	assert.False(t, sawFilesTotal, "phases must not run on a cache hit")
}

func TestPipeline_ParseFailureIsWarningNotError(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)

	// Remove one file between discovery and parse by running discover
	// first, then deleting.
	snap, err := st.GetSnapshot(ctx, job.SnapshotID)
	require.NoError(t, err)
	require.NoError(t, p.Discover(ctx, job, snap))
	require.NoError(t, os.Remove(filepath.Join(root, "src", "server.ts")))

	require.NoError(t, p.ParseBatches(ctx, job, snap))

	warnings, err := st.ListWarnings(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "parse", warnings[0].Phase)
	assert.Equal(t, "src/server.ts", warnings[0].Path)

	// The merged artifact carries the failure as a skipped record, not
	// just the warning row.
	payload, _, err := p.artifacts.ReadLatest(ctx, job.SnapshotID, KindParsed)
	require.NoError(t, err)
	var merged parsedArtifact
	require.NoError(t, json.Unmarshal(payload, &merged))
	assert.Len(t, merged.Files, 2)
	require.Len(t, merged.Skipped, 1)
	assert.Equal(t, "src/server.ts", merged.Skipped[0].Path)
	assert.NotEmpty(t, merged.Skipped[0].Error)

	after, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, pctMerged, after.Pct)
}

func TestPipeline_SummaryArtifactHasRequiredFields(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, sampleTree)
	p, st := newTestPipeline(t, Config{})
	job := ingestAndClaim(t, p, st, root)
	require.NoError(t, p.Run(ctx, job))

	payload, _, err := p.artifacts.ReadLatest(ctx, job.SnapshotID, KindSummary)
	require.NoError(t, err)
	var result summarize.Result
	require.NoError(t, json.Unmarshal(payload, &result))
	require.Len(t, result.Files, 3)
	for _, s := range result.Files {
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Blurb)
		assert.NotEmpty(t, s.DevSummary)
		assert.NotEmpty(t, s.VibecoderSummary)
	}
}

func TestHashTree_Deterministic(t *testing.T) {
	root := writeTree(t, sampleTree)
	h1, err := hashTree(root)
	require.NoError(t, err)
	h2, err := hashTree(root)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.py"), []byte("x = 1\n"), 0o644))
	h3, err := hashTree(root)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
