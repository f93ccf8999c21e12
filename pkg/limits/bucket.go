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
	"log/slog"
	"time"
)

// pollInterval is how long Acquire sleeps between attempts while waiting
// for tokens to refill.
const pollInterval = 100 * time.Millisecond

// TokenBucket is a named rate-limit bucket backed by a shared StateStore.
//
// A bucket never blocks on the store being healthy: if the store is
// unreachable the bucket fails open and grants the acquisition, on the
// theory that a degraded limiter is better than a stalled pipeline.
type TokenBucket struct {
	name       string
	capacity   float64
	refillRate float64 // tokens per second
	store      StateStore

	// now is swappable for tests.
	now func() time.Time
}

// NewTokenBucket creates a bucket identified by name. Buckets sharing a
// name and a store share a budget.
func NewTokenBucket(name string, capacity, refillRate float64, store StateStore) *TokenBucket {
	return &TokenBucket{
		name:       name,
		capacity:   capacity,
		refillRate: refillRate,
		store:      store,
		now:        time.Now,
	}
}

func (b *TokenBucket) Name() string        { return b.name }
func (b *TokenBucket) Capacity() float64   { return b.capacity }
func (b *TokenBucket) RefillRate() float64 { return b.refillRate }

// Tokens returns the current token count after applying refill. The
// refreshed state is written back to the store.
func (b *TokenBucket) Tokens() float64 {
	tokens, ok := b.loadTokens()
	if !ok {
		return b.capacity
	}
	return tokens
}

// loadTokens reads the bucket state, applies lazy refill and writes the
// refreshed state back. ok is false when the store is unreachable.
func (b *TokenBucket) loadTokens() (float64, bool) {
	now := b.now()
	st, found, err := b.store.GetState(b.name)
	if err != nil {
		slog.Warn("limits.store.unavailable", "bucket", b.name, "error", err)
		return 0, false
	}
	tokens := b.capacity
	if found {
		elapsed := now.Sub(st.LastRefill).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		tokens = st.Tokens + elapsed*b.refillRate
		if tokens > b.capacity {
			tokens = b.capacity
		}
	}
	// Write back on every read so the refill timestamp advances even for
	// acquisitions that end up failing.
	if err := b.store.SetState(b.name, tokens, now); err != nil {
		slog.Warn("limits.store.write_failed", "bucket", b.name, "error", err)
		return 0, false
	}
	return tokens, true
}

// TryAcquire takes tokens from the bucket without waiting. It is exactly
// Acquire with a zero timeout.
func (b *TokenBucket) TryAcquire(tokens float64) bool {
	return b.Acquire(context.Background(), tokens, 0)
}

// Acquire takes tokens from the bucket, polling until they are available
// or timeout expires. It returns true when the tokens were taken, and true
// when the shared store is unreachable (fail open). Requests larger than
// the bucket capacity can never be satisfied and run out the full timeout;
// callers are expected not to issue them.
func (b *TokenBucket) Acquire(ctx context.Context, tokens float64, timeout time.Duration) bool {
	deadline := b.now().Add(timeout)
	for {
		avail, ok := b.loadTokens()
		if !ok {
			slog.Warn("limits.acquire.fail_open", "bucket", b.name, "tokens", tokens)
			return true
		}
		if avail >= tokens {
			if err := b.store.SetState(b.name, avail-tokens, b.now()); err != nil {
				slog.Warn("limits.store.write_failed", "bucket", b.name, "error", err)
			}
			return true
		}
		if timeout <= 0 || !b.now().Before(deadline) {
			return false
		}
		wait := pollInterval
		if remaining := deadline.Sub(b.now()); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}
