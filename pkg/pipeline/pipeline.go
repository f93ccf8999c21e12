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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/codemap/pkg/artifacts"
	"github.com/kraklabs/codemap/pkg/events"
	"github.com/kraklabs/codemap/pkg/graph"
	"github.com/kraklabs/codemap/pkg/limits"
	"github.com/kraklabs/codemap/pkg/llm"
	"github.com/kraklabs/codemap/pkg/parse"
	"github.com/kraklabs/codemap/pkg/state"
	"github.com/kraklabs/codemap/pkg/summarize"
)

// Artifact kinds written by the phases.
const (
	KindFiles   = "files"
	KindParsed  = "parsed"
	KindGraph   = "graph"
	KindSummary = "summary"
	KindMetrics = "metrics"
)

// Progress checkpoints per phase. Parsing interpolates between its
// bounds by batch index.
const (
	pctAcquiring    = 5
	pctDiscovering  = 15
	pctDiscovered   = 25
	pctParsingStart = 35
	pctParsingEnd   = 50
	pctMerged       = 55
	pctMapping      = 60
	pctMapped       = 75
	pctSummarizing  = 80
	pctSummarized   = 95
)

// Pipeline drives one job through the phases. Every phase is repeat-safe:
// a retried job re-runs phases whose artifact writes then no-op on
// identical content.
type Pipeline struct {
	state     *state.Store
	artifacts *artifacts.Store
	sink      *events.Sink
	limits    *limits.ResourceLimits
	parser    parse.FileParser
	provider  llm.Provider
	cfg       Config
	logger    *slog.Logger
}

func New(st *state.Store, art *artifacts.Store, lim *limits.ResourceLimits, provider llm.Provider, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	pipeMetrics.init()
	return &Pipeline{
		state:     st,
		artifacts: art,
		sink:      events.NewSink(st),
		limits:    lim,
		parser:    parse.NewParser(cfg.ParserMode, logger),
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
	}
}

// IngestRequest identifies one source tree to analyze.
type IngestRequest struct {
	RepoID       string
	Root         string
	SettingsHash string
}

// Ingest resolves the request to a snapshot and enqueues a job for it.
// Re-ingesting a tree whose snapshot already completed returns the
// existing snapshot with cached=true and enqueues nothing.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*state.Snapshot, *state.Job, bool, error) {
	commitHash, err := hashTree(req.Root)
	if err != nil {
		return nil, nil, false, fmt.Errorf("hash tree: %w", err)
	}

	snap, err := p.state.GetSnapshotByKey(ctx, req.RepoID, commitHash, req.SettingsHash)
	if err != nil {
		return nil, nil, false, fmt.Errorf("lookup snapshot: %w", err)
	}
	if snap != nil && snap.Status == state.SnapshotCompleted {
		pipeMetrics.cacheHits.Inc()
		p.logger.Info("pipeline.ingest.cache_hit", "snapshot_id", snap.ID, "repo_id", req.RepoID)
		return snap, nil, true, nil
	}
	if snap == nil {
		snap = &state.Snapshot{
			ID:           uuid.NewString(),
			RepoID:       req.RepoID,
			CommitHash:   commitHash,
			SettingsHash: req.SettingsHash,
			Root:         req.Root,
			Status:       state.SnapshotPending,
		}
		if err := p.state.CreateSnapshot(ctx, snap); err != nil {
			return nil, nil, false, fmt.Errorf("create snapshot: %w", err)
		}
	}

	job := &state.Job{
		ID:         uuid.NewString(),
		SnapshotID: snap.ID,
		Status:     state.JobQueued,
	}
	if err := p.state.EnqueueJob(ctx, job); err != nil {
		return nil, nil, false, fmt.Errorf("enqueue job: %w", err)
	}
	p.logger.Info("pipeline.ingest.enqueued", "snapshot_id", snap.ID, "job_id", job.ID, "commit", commitHash[:12])
	return snap, job, false, nil
}

// Run executes every phase for job in order. The returned error, if any,
// is a *Failure; terminal job state transitions belong to the caller
// (see HandleResult).
func (p *Pipeline) Run(ctx context.Context, job *state.Job) error {
	start := time.Now()
	defer func() {
		pipeMetrics.totalDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := p.state.GetSnapshot(ctx, job.SnapshotID)
	if err != nil {
		return NewFailure("acquire", fmt.Errorf("load snapshot: %w", err))
	}

	_ = p.sink.Emit(ctx, job.ID, events.JobStarted{SnapshotID: snap.ID})
	if err := p.setPhase(ctx, job.ID, state.JobAcquiring, pctAcquiring); err != nil {
		return NewFailure("acquire", err)
	}

	if snap.Status == state.SnapshotCompleted {
		pipeMetrics.cacheHits.Inc()
		_ = p.sink.Emit(ctx, job.ID, events.CacheHit{SnapshotID: snap.ID})
		return p.complete(ctx, job, snap)
	}

	if err := p.runTask(ctx, job.ID, "discover", func() error {
		return p.Discover(ctx, job, snap)
	}); err != nil {
		return err
	}
	if err := p.runTask(ctx, job.ID, "parse", func() error {
		return p.ParseBatches(ctx, job, snap)
	}); err != nil {
		return err
	}
	if err := p.runTask(ctx, job.ID, "map", func() error {
		return p.MapGraph(ctx, job, snap)
	}); err != nil {
		return err
	}
	if err := p.runTask(ctx, job.ID, "summarize", func() error {
		return p.Summarize(ctx, job, snap)
	}); err != nil {
		return err
	}
	if err := p.runTask(ctx, job.ID, "finalize", func() error {
		return p.Finalize(ctx, job, snap)
	}); err != nil {
		return err
	}
	return nil
}

// filesArtifact is the payload of the "files" artifact.
type filesArtifact struct {
	Files       []parse.FileInfo `json:"files"`
	SkipReasons map[string]int   `json:"skip_reasons,omitempty"`
}

// parsedArtifact is the payload of the "parsed" artifact. Skipped keeps
// the per-file parse failures in the result itself, alongside the
// warning rows.
type parsedArtifact struct {
	Files   []parse.ParsedFile `json:"files"`
	Skipped []SkippedFile      `json:"skipped,omitempty"`
}

// SkippedFile records one file the parse phase could not process.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Discover walks the snapshot root and records the file inventory.
func (p *Pipeline) Discover(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	if err := p.setPhase(ctx, job.ID, state.JobDiscovering, pctDiscovering); err != nil {
		return NewFailure("discover", err)
	}

	result, err := parse.Discover(snap.Root, p.cfg.MaxFileSize)
	if err != nil {
		return NewFailure("discover", err)
	}
	pipeMetrics.filesDiscovered.Add(float64(len(result.Files)))

	payload, err := json.Marshal(filesArtifact{Files: result.Files, SkipReasons: result.SkipReasons})
	if err != nil {
		return NewFailure("discover", err)
	}
	if err := p.writeArtifact(ctx, job.ID, snap.ID, KindFiles, payload); err != nil {
		return NewFailure("discover", err)
	}

	_ = p.sink.Emit(ctx, job.ID, events.FilesTotal{Total: len(result.Files), Skipped: result.SkipReasons})
	if err := p.setPhase(ctx, job.ID, state.JobDiscovering, pctDiscovered); err != nil {
		return NewFailure("discover", err)
	}
	p.logger.Info("pipeline.discover.complete", "job_id", job.ID, "files", len(result.Files), "skipped", len(result.SkipReasons))
	return nil
}

// ParseBatches parses the discovered files in batches and writes the
// merged result as the "parsed" artifact. A per-file parse failure is
// recorded as a warning and never fails the phase; failing to obtain a
// subprocess slot does.
func (p *Pipeline) ParseBatches(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	var inventory filesArtifact
	if err := p.readArtifact(ctx, snap.ID, KindFiles, &inventory); err != nil {
		return NewFailure("parse", err)
	}

	total := len(inventory.Files)
	totalBatches := (total + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	if totalBatches == 0 {
		totalBatches = 1
	}
	if err := p.setPhase(ctx, job.ID, state.JobParsing, pctParsingStart); err != nil {
		return NewFailure("parse", err)
	}

	parsed := make([]parse.ParsedFile, 0, total)
	var skipped []SkippedFile
	for batch := 0; batch < totalBatches; batch++ {
		lo := batch * p.cfg.BatchSize
		hi := lo + p.cfg.BatchSize
		if hi > total {
			hi = total
		}

		okCount, failCount := 0, 0
		for _, f := range inventory.Files[lo:hi] {
			if needsSubprocess(f.Language) {
				if err := p.limits.SubprocessToken(ctx, p.cfg.SubprocessTimeout); err != nil {
					return NewFailure("parse", err)
				}
			}
			pf, err := p.parser.ParseFile(snap.Root, f)
			if err != nil {
				failCount++
				pipeMetrics.parseErrors.Inc()
				skipped = append(skipped, SkippedFile{Path: f.Path, Error: err.Error()})
				p.warn(ctx, job.ID, "parse", f.Path, err.Error())
				continue
			}
			okCount++
			pipeMetrics.filesParsed.Inc()
			parsed = append(parsed, *pf)
		}

		pct := pctParsingStart + (pctParsingEnd-pctParsingStart)*(batch+1)/totalBatches
		if err := p.setPhase(ctx, job.ID, state.JobParsing, pct); err != nil {
			return NewFailure("parse", err)
		}
		_ = p.sink.Emit(ctx, job.ID, events.BatchParsed{
			Batch:        batch + 1,
			TotalBatches: totalBatches,
			Parsed:       okCount,
			Failed:       failCount,
		})
	}

	return p.MergeFiles(ctx, job, snap, parsed, skipped)
}

// MergeFiles writes the combined parse output in stable path order,
// including the skipped record for every file that failed to parse.
func (p *Pipeline) MergeFiles(ctx context.Context, job *state.Job, snap *state.Snapshot, parsed []parse.ParsedFile, skipped []SkippedFile) error {
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Path < parsed[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	payload, err := json.Marshal(parsedArtifact{Files: parsed, Skipped: skipped})
	if err != nil {
		return NewFailure("parse", err)
	}
	if err := p.writeArtifact(ctx, job.ID, snap.ID, KindParsed, payload); err != nil {
		return NewFailure("parse", err)
	}
	if err := p.setPhase(ctx, job.ID, state.JobParsing, pctMerged); err != nil {
		return NewFailure("parse", err)
	}
	return nil
}

// MapGraph resolves imports into the dependency graph artifact and
// records the import metrics on the job.
func (p *Pipeline) MapGraph(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	if err := p.setPhase(ctx, job.ID, state.JobMapping, pctMapping); err != nil {
		return NewFailure("map", err)
	}

	var parsed parsedArtifact
	if err := p.readArtifact(ctx, snap.ID, KindParsed, &parsed); err != nil {
		return NewFailure("map", err)
	}
	g := graph.Build(parsed.Files)

	if err := p.state.SetJobImportMetrics(ctx, job.ID, g.Metrics.Total, g.Metrics.Internal, g.Metrics.External); err != nil {
		return NewFailure("map", err)
	}
	_ = p.sink.Emit(ctx, job.ID, events.ImportsMetrics{
		Total:    g.Metrics.Total,
		Internal: g.Metrics.Internal,
		External: g.Metrics.External,
	})

	payload, err := json.Marshal(g)
	if err != nil {
		return NewFailure("map", err)
	}
	if err := p.writeArtifact(ctx, job.ID, snap.ID, KindGraph, payload); err != nil {
		return NewFailure("map", err)
	}
	if err := p.setPhase(ctx, job.ID, state.JobMapping, pctMapped); err != nil {
		return NewFailure("map", err)
	}
	p.logger.Info("pipeline.map.complete", "job_id", job.ID,
		"imports_total", g.Metrics.Total, "internal", g.Metrics.Internal, "external", g.Metrics.External)
	return nil
}

// Summarize runs the LLM fan-out over the graph and writes the summary
// artifact. Rate-limit exhaustion aborts (retryable); LLM trouble does
// not reach here, the orchestrator degrades to fallbacks.
func (p *Pipeline) Summarize(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	if err := p.setPhase(ctx, job.ID, state.JobSummarizing, pctSummarizing); err != nil {
		return NewFailure("summarize", err)
	}

	var parsed parsedArtifact
	if err := p.readArtifact(ctx, snap.ID, KindParsed, &parsed); err != nil {
		return NewFailure("summarize", err)
	}
	g := graph.Build(parsed.Files)

	orch := summarize.NewOrchestrator(p.provider, p.limits, p.cfg.Summarize, p.logger)
	result, warnings, err := orch.Run(ctx, g)
	if err != nil {
		return NewFailure("summarize", err)
	}
	for _, w := range warnings {
		p.warn(ctx, job.ID, "summarize", w.Path, w.Message)
	}
	pipeMetrics.summariesLLM.Add(float64(len(result.Files) - result.FallbackCount))
	pipeMetrics.summariesFallback.Add(float64(result.FallbackCount))

	payload, err := json.Marshal(result)
	if err != nil {
		return NewFailure("summarize", err)
	}
	if err := p.writeArtifact(ctx, job.ID, snap.ID, KindSummary, payload); err != nil {
		return NewFailure("summarize", err)
	}
	if err := p.setPhase(ctx, job.ID, state.JobSummarizing, pctSummarized); err != nil {
		return NewFailure("summarize", err)
	}
	p.logger.Info("pipeline.summarize.complete", "job_id", job.ID,
		"files", len(result.Files), "capabilities", len(result.Capabilities), "fallbacks", result.FallbackCount)
	return nil
}

// runMetrics is the payload of the "metrics" artifact.
type runMetrics struct {
	Files           int            `json:"files"`
	Warnings        int            `json:"warnings"`
	ImportsTotal    int            `json:"imports_total"`
	ImportsInternal int            `json:"imports_internal"`
	ImportsExternal int            `json:"imports_external"`
	SkipReasons     map[string]int `json:"skip_reasons,omitempty"`
	CompletedAt     time.Time      `json:"completed_at"`
}

// Finalize writes the run metrics artifact, completes the snapshot, and
// closes the event stream.
func (p *Pipeline) Finalize(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	var inventory filesArtifact
	if err := p.readArtifact(ctx, snap.ID, KindFiles, &inventory); err != nil {
		return NewFailure("finalize", err)
	}
	current, err := p.state.GetJob(ctx, job.ID)
	if err != nil {
		return NewFailure("finalize", err)
	}
	warnings, err := p.state.ListWarnings(ctx, job.ID)
	if err != nil {
		return NewFailure("finalize", err)
	}

	payload, err := json.Marshal(runMetrics{
		Files:           len(inventory.Files),
		Warnings:        len(warnings),
		ImportsTotal:    current.ImportsTotal,
		ImportsInternal: current.ImportsInternal,
		ImportsExternal: current.ImportsExternal,
		SkipReasons:     inventory.SkipReasons,
		CompletedAt:     time.Now().UTC(),
	})
	if err != nil {
		return NewFailure("finalize", err)
	}
	if err := p.writeArtifact(ctx, job.ID, snap.ID, KindMetrics, payload); err != nil {
		return NewFailure("finalize", err)
	}
	if err := p.state.MarkSnapshotCompleted(ctx, snap.ID); err != nil {
		return NewFailure("finalize", err)
	}
	return p.complete(ctx, job, snap)
}

// HandleResult applies the scheduler policy for a finished Run: requeue
// retryable failures with backoff while attempts remain, otherwise move
// the job to error with the failure recorded in the event stream.
func (p *Pipeline) HandleResult(ctx context.Context, job *state.Job, runErr error) error {
	if runErr == nil {
		pipeMetrics.jobsCompleted.Inc()
		return nil
	}

	phase := "run"
	var f *Failure
	if errors.As(runErr, &f) {
		phase = f.Phase
	}

	current, err := p.state.GetJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load job after failure: %w", err)
	}

	if ClassOf(runErr) == Retryable && current.Attempts < current.MaxAttempts {
		backoff := backoffFor(current.Attempts)
		pipeMetrics.jobsRequeued.Inc()
		p.logger.Warn("pipeline.job.requeue", "job_id", job.ID, "phase", phase,
			"attempt", current.Attempts, "backoff", backoff, "error", runErr)
		return p.state.RequeueJob(ctx, job.ID, runErr.Error(), time.Now().UTC().Add(backoff))
	}

	pipeMetrics.jobsFailed.Inc()
	_ = p.sink.Emit(ctx, job.ID, events.Error{Phase: phase, Message: runErr.Error()})
	p.logger.Error("pipeline.job.failed", "job_id", job.ID, "phase", phase, "error", runErr)
	return p.state.FailJob(ctx, job.ID, runErr.Error())
}

func (p *Pipeline) complete(ctx context.Context, job *state.Job, snap *state.Snapshot) error {
	arts, err := p.state.ListArtifacts(ctx, snap.ID)
	if err != nil {
		return NewFailure("finalize", err)
	}
	if err := p.state.CompleteJob(ctx, job.ID); err != nil {
		return NewFailure("finalize", err)
	}
	_ = p.sink.Emit(ctx, job.ID, events.Done{Artifacts: len(arts)})
	p.logger.Info("pipeline.job.complete", "job_id", job.ID, "snapshot_id", snap.ID, "artifacts", len(arts))
	return nil
}

func (p *Pipeline) setPhase(ctx context.Context, jobID, status string, pct int) error {
	if err := p.state.UpdateJobProgress(ctx, jobID, status, pct); err != nil {
		return err
	}
	return p.sink.Emit(ctx, jobID, events.PhaseChange{Phase: status, Pct: pct})
}

func (p *Pipeline) warn(ctx context.Context, jobID, phase, path, message string) {
	if err := p.state.AddWarning(ctx, jobID, phase, path, message); err != nil {
		p.logger.Warn("pipeline.warning.record", "job_id", jobID, "error", err)
	}
	_ = p.sink.Emit(ctx, jobID, events.Warning{Phase: phase, Path: path, Message: message})
}

func (p *Pipeline) writeArtifact(ctx context.Context, jobID, snapshotID, kind string, payload []byte) error {
	written, err := p.artifacts.WriteVersioned(ctx, snapshotID, kind, payload)
	if err != nil {
		return err
	}
	if written.Reused {
		pipeMetrics.artifactsReused.Inc()
		return nil
	}
	pipeMetrics.artifactsWritten.Inc()
	return p.sink.Emit(ctx, jobID, events.ArtifactReady{Kind: kind, Version: written.Version, URI: written.URI})
}

func (p *Pipeline) readArtifact(ctx context.Context, snapshotID, kind string, out any) error {
	payload, _, err := p.artifacts.ReadLatest(ctx, snapshotID, kind)
	if err != nil {
		return fmt.Errorf("read %s artifact: %w", kind, err)
	}
	return json.Unmarshal(payload, out)
}

func needsSubprocess(language string) bool {
	switch language {
	case parse.LangJavaScript, parse.LangTypeScript, parse.LangTSX:
		return true
	}
	return false
}

// hashTree derives the content commit hash: sha256 over every regular
// file's path and bytes in sorted path order.
func hashTree(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\n", filepath.ToSlash(rel))
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func backoffFor(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * 5 * time.Second
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
