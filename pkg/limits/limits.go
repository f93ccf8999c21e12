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

package limits

import (
	"context"
	"fmt"
	"time"
)

// ErrExhausted is returned by the guard methods when a bucket could not be
// acquired before its timeout. Schedulers treat it as retryable.
var ErrExhausted = fmt.Errorf("resource limit exhausted")

// ExhaustedError wraps ErrExhausted with the bucket that ran dry.
type ExhaustedError struct {
	Bucket  string
	Tokens  float64
	Timeout time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resource limit exhausted: bucket %q (%.0f tokens, waited %s)", e.Bucket, e.Tokens, e.Timeout)
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// Bucket names shared by every worker drawing from the same store.
const (
	bucketSubprocess = "subprocess"
	bucketLLMTokens  = "llm_tokens"
	bucketLLMReqs    = "llm_requests"
)

// Config carries the tunable limits. Zero values select the defaults.
type Config struct {
	// MaxConcurrentSubprocesses caps simultaneously running parser
	// subprocesses across all workers.
	MaxConcurrentSubprocesses float64 `yaml:"max_concurrent_subprocesses"`
	// SubprocessRefillPerSec restores subprocess slots after a worker
	// dies holding one. Deliberately slow.
	SubprocessRefillPerSec float64 `yaml:"subprocess_refill_per_sec"`
	// LLMTokensPerMinute is the model-token budget per minute.
	LLMTokensPerMinute float64 `yaml:"llm_tokens_per_minute"`
	// LLMRequestsPerMinute is the request budget per minute.
	LLMRequestsPerMinute float64 `yaml:"llm_requests_per_minute"`
}

// DefaultConfig returns the limits used when the project config does not
// override them.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentSubprocesses: 2,
		SubprocessRefillPerSec:    0.1,
		LLMTokensPerMinute:        10000,
		LLMRequestsPerMinute:      100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxConcurrentSubprocesses <= 0 {
		c.MaxConcurrentSubprocesses = def.MaxConcurrentSubprocesses
	}
	if c.SubprocessRefillPerSec <= 0 {
		c.SubprocessRefillPerSec = def.SubprocessRefillPerSec
	}
	if c.LLMTokensPerMinute <= 0 {
		c.LLMTokensPerMinute = def.LLMTokensPerMinute
	}
	if c.LLMRequestsPerMinute <= 0 {
		c.LLMRequestsPerMinute = def.LLMRequestsPerMinute
	}
	return c
}

// ResourceLimits bundles the pipeline's rate-limit buckets behind scoped
// guard methods. All methods are safe for concurrent use.
type ResourceLimits struct {
	subprocess *TokenBucket
	llmTokens  *TokenBucket
	llmReqs    *TokenBucket
}

// New builds the bucket set on top of store. Per-minute budgets refill
// continuously at capacity/60 per second rather than resetting on a
// minute boundary.
func New(cfg Config, store StateStore) *ResourceLimits {
	cfg = cfg.withDefaults()
	return &ResourceLimits{
		subprocess: NewTokenBucket(bucketSubprocess, cfg.MaxConcurrentSubprocesses, cfg.SubprocessRefillPerSec, store),
		llmTokens:  NewTokenBucket(bucketLLMTokens, cfg.LLMTokensPerMinute, cfg.LLMTokensPerMinute/60, store),
		llmReqs:    NewTokenBucket(bucketLLMReqs, cfg.LLMRequestsPerMinute, cfg.LLMRequestsPerMinute/60, store),
	}
}

// SubprocessToken takes one subprocess slot. There is no release;
// consumed slots come back through refill only.
func (l *ResourceLimits) SubprocessToken(ctx context.Context, timeout time.Duration) error {
	if !l.subprocess.Acquire(ctx, 1, timeout) {
		return &ExhaustedError{Bucket: bucketSubprocess, Tokens: 1, Timeout: timeout}
	}
	return nil
}

// LLMTokens takes n model tokens from the per-minute budget.
func (l *ResourceLimits) LLMTokens(ctx context.Context, n float64, timeout time.Duration) error {
	if !l.llmTokens.Acquire(ctx, n, timeout) {
		return &ExhaustedError{Bucket: bucketLLMTokens, Tokens: n, Timeout: timeout}
	}
	return nil
}

// LLMRequest takes one request from the per-minute budget.
func (l *ResourceLimits) LLMRequest(ctx context.Context, timeout time.Duration) error {
	if !l.llmReqs.Acquire(ctx, 1, timeout) {
		return &ExhaustedError{Bucket: bucketLLMReqs, Tokens: 1, Timeout: timeout}
	}
	return nil
}

// NoopToken always succeeds. Callers use it to keep acquisition structure
// uniform on code paths that need no limiting.
func (l *ResourceLimits) NoopToken() error { return nil }

// BucketStatus is a point-in-time view of one bucket for operators.
type BucketStatus struct {
	Name       string  `json:"name"`
	Capacity   float64 `json:"capacity"`
	RefillRate float64 `json:"refill_rate"`
	Tokens     float64 `json:"tokens"`
}

// Status reports every bucket. Reading refreshes each bucket's refill
// state as a side effect.
func (l *ResourceLimits) Status() []BucketStatus {
	out := make([]BucketStatus, 0, 3)
	for _, b := range []*TokenBucket{l.subprocess, l.llmTokens, l.llmReqs} {
		out = append(out, BucketStatus{
			Name:       b.Name(),
			Capacity:   b.Capacity(),
			RefillRate: b.RefillRate(),
			Tokens:     b.Tokens(),
		})
	}
	return out
}
