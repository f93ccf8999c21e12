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

package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kraklabs/codemap/pkg/graph"
	"github.com/kraklabs/codemap/pkg/llm"
	"github.com/kraklabs/codemap/pkg/parse"
)

// Limiter charges LLM work against the shared rate-limit buckets.
// Satisfied by limits.ResourceLimits.
type Limiter interface {
	LLMRequest(ctx context.Context, timeout time.Duration) error
	LLMTokens(ctx context.Context, n float64, timeout time.Duration) error
}

// Config carries the orchestrator knobs. Zero values select defaults.
type Config struct {
	// MaxConcurrent bounds in-flight LLM calls. Independent of the
	// request/token buckets, which bound rate, not concurrency.
	MaxConcurrent int `yaml:"max_concurrent"`
	// FileBudget caps how many files get summaries per run.
	FileBudget int `yaml:"file_budget"`
	// CapabilityBudget caps capability narratives per run.
	CapabilityBudget int `yaml:"capability_budget"`
	// MaxContextItems truncates symbol and dependency lists per prompt.
	MaxContextItems int `yaml:"max_context_items"`
	// AcquireTimeout is how long to wait on the rate-limit buckets.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.FileBudget <= 0 {
		c.FileBudget = 100
	}
	if c.CapabilityBudget <= 0 {
		c.CapabilityBudget = 20
	}
	if c.MaxContextItems <= 0 {
		c.MaxContextItems = 12
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 30 * time.Second
	}
	return c
}

// Orchestrator runs the summarization fan-out for one snapshot.
type Orchestrator struct {
	provider llm.Provider
	limiter  Limiter
	cfg      Config
	logger   *slog.Logger
}

func NewOrchestrator(provider llm.Provider, limiter Limiter, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		limiter:  limiter,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run summarizes the snapshot. Per-file LLM failures degrade to
// fallbacks; only rate-limit exhaustion or context cancellation abort
// the run.
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph) (*Result, []RunWarning, error) {
	var warnings []RunWarning

	files := g.Files
	truncated := false
	if len(files) > o.cfg.FileBudget {
		warnings = append(warnings, RunWarning{
			Message: fmt.Sprintf("file summary budget reached: summarizing %d of %d files", o.cfg.FileBudget, len(files)),
		})
		files = files[:o.cfg.FileBudget]
		truncated = true
	}

	o.logger.Info("summarize.run.start",
		"files", len(files),
		"max_concurrent", o.cfg.MaxConcurrent,
		"truncated", truncated,
	)

	summaries := make([]FileSummary, len(files))
	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrent))
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	var fallbacks int64
	var fallbackMu sync.Mutex

	for i := range files {
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(idx int, f parse.ParsedFile) {
			defer wg.Done()
			defer sem.Release(1)

			summary, usedFallback, err := o.summarizeFile(runCtx, g, f)
			if err != nil {
				// Bucket exhaustion or cancellation: abort the whole
				// run so the scheduler can retry the phase.
				cancel(err)
				return
			}
			summaries[idx] = summary
			if usedFallback {
				fallbackMu.Lock()
				fallbacks++
				fallbackMu.Unlock()
			}
		}(i, files[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}
	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return nil, warnings, cause
	}

	capabilities, err := o.summarizeCapabilities(ctx, g)
	if err != nil {
		return nil, warnings, err
	}

	hasComponents, hasAPI := false, false
	for _, f := range g.Files {
		hasComponents = hasComponents || f.Hints.IsComponent
		hasAPI = hasAPI || f.Hints.IsAPI
	}
	glossary, err := o.summarizeGlossary(ctx, hasComponents, hasAPI)
	if err != nil {
		return nil, warnings, err
	}

	result := &Result{
		Files:         summaries,
		Capabilities:  capabilities,
		Glossary:      glossary,
		Truncated:     truncated,
		FallbackCount: int(fallbacks),
	}
	o.logger.Info("summarize.run.complete",
		"files", len(result.Files),
		"capabilities", len(result.Capabilities),
		"fallbacks", result.FallbackCount,
	)
	return result, warnings, nil
}

// summarizeFile produces the summary for one file. The returned error is
// only ever a rate-limit or cancellation error; LLM failures degrade to
// the fallback.
func (o *Orchestrator) summarizeFile(ctx context.Context, g *graph.Graph, f parse.ParsedFile) (FileSummary, bool, error) {
	internalDeps := g.InternalDeps(f.Path)
	fallback := fallbackFileSummary(f, internalDeps)

	fc := buildFileContext(f, internalDeps, o.cfg.MaxContextItems)
	messages := llm.BuildChatMessages(fileSystemPrompt, fc.userPrompt())

	if err := o.acquire(ctx, messages); err != nil {
		return FileSummary{}, false, err
	}

	parsed, err := llm.CompleteJSON(ctx, o.provider, messages, fileRequiredFields)
	if err != nil {
		o.logger.Warn("summarize.file.fallback", "path", f.Path, "error", err)
		return fallback, true, nil
	}

	summary := FileSummary{
		Path:             f.Path,
		Title:            stringField(parsed, "title", fallback.Title),
		Blurb:            stringField(parsed, "blurb", fallback.Blurb),
		DevSummary:       stringField(parsed, "dev_summary", fallback.DevSummary),
		VibecoderSummary: stringField(parsed, "vibecoder_summary", fallback.VibecoderSummary),
		KeyFunctions:     fallback.KeyFunctions,
	}
	return summary, false, nil
}

func (o *Orchestrator) summarizeCapabilities(ctx context.Context, g *graph.Graph) ([]Capability, error) {
	entrypoints := g.Entrypoints()
	if len(entrypoints) > o.cfg.CapabilityBudget {
		entrypoints = entrypoints[:o.cfg.CapabilityBudget]
	}

	var hubs []string
	for _, h := range g.Hubs {
		hubs = append(hubs, h.Path)
	}

	capabilities := make([]Capability, 0, len(entrypoints))
	for _, entry := range entrypoints {
		flow := append([]string{entry.Path}, g.InternalDeps(entry.Path)...)
		cc := capabilityContext{Entrypoint: entry.Path, Files: flow, Hubs: truncateList(hubs, 5)}
		messages := llm.BuildChatMessages(capabilitySystemPrompt, cc.userPrompt())

		if err := o.acquire(ctx, messages); err != nil {
			return nil, err
		}

		parsed, err := llm.CompleteJSON(ctx, o.provider, messages, capabilityRequiredFields)
		if err != nil {
			o.logger.Warn("summarize.capability.fallback", "entrypoint", entry.Path, "error", err)
			capabilities = append(capabilities, fallbackCapability(entry.Path, flow))
			continue
		}
		fb := fallbackCapability(entry.Path, flow)
		capabilities = append(capabilities, Capability{
			Title:            stringField(parsed, "title", fb.Title),
			Entrypoint:       entry.Path,
			Files:            flow,
			Summary:          stringField(parsed, "summary", fb.Summary),
			VibecoderSummary: stringField(parsed, "vibecoder_summary", fb.VibecoderSummary),
		})
	}
	return capabilities, nil
}

// summarizeGlossary asks the LLM to write definitions for the base
// terms relevant to this snapshot. The deterministic base set doubles as
// the fallback on LLM failure; only rate-limit or cancellation errors
// propagate.
func (o *Orchestrator) summarizeGlossary(ctx context.Context, hasComponents, hasAPI bool) ([]GlossaryEntry, error) {
	base := buildGlossary(hasComponents, hasAPI)
	terms := make([]string, len(base))
	for i, entry := range base {
		terms[i] = entry.Term
	}
	messages := llm.BuildChatMessages(glossarySystemPrompt, glossaryUserPrompt(terms))

	if err := o.acquire(ctx, messages); err != nil {
		return nil, err
	}
	parsed, err := llm.CompleteJSON(ctx, o.provider, messages, glossaryRequiredFields)
	if err != nil {
		o.logger.Warn("summarize.glossary.fallback", "error", err)
		return base, nil
	}
	return glossaryEntries(parsed, base), nil
}

// acquire charges one request plus the estimated token cost against the
// shared buckets. Request first, tokens second: the nested order means a
// token wait never holds a request slot.
func (o *Orchestrator) acquire(ctx context.Context, messages []llm.Message) error {
	if o.limiter == nil {
		return nil
	}
	if err := o.limiter.LLMRequest(ctx, o.cfg.AcquireTimeout); err != nil {
		return err
	}
	var prompt strings.Builder
	for _, m := range messages {
		prompt.WriteString(m.Content)
	}
	estimated := float64(llm.EstimateTokens(prompt.String()))
	return o.limiter.LLMTokens(ctx, estimated, o.cfg.AcquireTimeout)
}

func stringField(parsed map[string]any, key, fallback string) string {
	if value, ok := parsed[key].(string); ok && value != "" {
		return value
	}
	return fallback
}
