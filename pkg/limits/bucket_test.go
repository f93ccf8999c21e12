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
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock lets tests advance bucket time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(t *testing.T, capacity, refill float64) (*TokenBucket, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewTokenBucket("test", capacity, refill, NewMemoryStore())
	b.now = clock.now
	return b, clock
}

func TestTokenBucket_StartsFull(t *testing.T) {
	b, _ := newTestBucket(t, 5, 1)
	if got := b.Tokens(); got != 5 {
		t.Errorf("expected full bucket 5, got %v", got)
	}
}

func TestTokenBucket_AcquireDrains(t *testing.T) {
	b, _ := newTestBucket(t, 5, 1)
	if !b.TryAcquire(3) {
		t.Fatal("expected acquire of 3 from full bucket to succeed")
	}
	if got := b.Tokens(); got != 2 {
		t.Errorf("expected 2 tokens left, got %v", got)
	}
	if b.TryAcquire(3) {
		t.Error("expected acquire of 3 with 2 left to fail")
	}
}

func TestTokenBucket_RefillIsCappedAtCapacity(t *testing.T) {
	b, clock := newTestBucket(t, 5, 1)
	if !b.TryAcquire(5) {
		t.Fatal("drain failed")
	}
	clock.advance(2 * time.Second)
	if got := b.Tokens(); got != 2 {
		t.Errorf("expected 2 tokens after 2s at 1/s, got %v", got)
	}
	clock.advance(time.Hour)
	if got := b.Tokens(); got != 5 {
		t.Errorf("expected refill capped at 5, got %v", got)
	}
}

func TestTokenBucket_NeverNegative(t *testing.T) {
	b, _ := newTestBucket(t, 5, 1)
	b.TryAcquire(5)
	for i := 0; i < 10; i++ {
		b.TryAcquire(1)
	}
	if got := b.Tokens(); got < 0 {
		t.Errorf("token count went negative: %v", got)
	}
}

func TestTokenBucket_FailedAcquireStillWritesBack(t *testing.T) {
	b, clock := newTestBucket(t, 5, 1)
	b.TryAcquire(5)
	clock.advance(2 * time.Second)
	// 2 tokens available, request 4: must fail but persist the refill.
	if b.TryAcquire(4) {
		t.Fatal("expected acquire of 4 with 2 available to fail")
	}
	st, ok, err := b.store.GetState("test")
	if err != nil || !ok {
		t.Fatalf("state not persisted: ok=%v err=%v", ok, err)
	}
	if st.Tokens != 2 {
		t.Errorf("expected refill written back as 2, got %v", st.Tokens)
	}
	if !st.LastRefill.Equal(clock.now()) {
		t.Errorf("expected refill timestamp advanced to %v, got %v", clock.now(), st.LastRefill)
	}
}

func TestTokenBucket_TryAcquireMatchesZeroTimeoutAcquire(t *testing.T) {
	for _, request := range []float64{1, 2, 3} {
		tryBucket, _ := newTestBucket(t, 2, 0)
		acqBucket, _ := newTestBucket(t, 2, 0)
		tryGot := tryBucket.TryAcquire(request)
		acqGot := acqBucket.Acquire(context.Background(), request, 0)
		if tryGot != acqGot {
			t.Errorf("request %v: TryAcquire=%v, Acquire(timeout=0)=%v", request, tryGot, acqGot)
		}
	}
}

func TestTokenBucket_ConcurrencyLimitWithZeroRefill(t *testing.T) {
	// capacity 2, no refill: exactly 2 acquisitions, then none.
	b, _ := newTestBucket(t, 2, 0)
	if !b.TryAcquire(1) || !b.TryAcquire(1) {
		t.Fatal("expected first two acquisitions to succeed")
	}
	if b.TryAcquire(1) {
		t.Error("expected third acquisition to fail")
	}
}

func TestTokenBucket_AcquireWaitsForRefill(t *testing.T) {
	store := NewMemoryStore()
	b := NewTokenBucket("wait", 1, 20, store) // 1 token per 50ms
	if !b.TryAcquire(1) {
		t.Fatal("drain failed")
	}
	start := time.Now()
	if !b.Acquire(context.Background(), 1, 2*time.Second) {
		t.Fatal("expected acquire to succeed once refilled")
	}
	if time.Since(start) > time.Second {
		t.Error("acquire took far longer than the refill needed")
	}
}

func TestTokenBucket_OversizedRequestTimesOut(t *testing.T) {
	b := NewTokenBucket("oversized", 2, 1000, NewMemoryStore())
	if b.Acquire(context.Background(), 3, 250*time.Millisecond) {
		t.Error("request above capacity must never succeed")
	}
}

// errStore fails every operation, standing in for an unreachable shared
// store.
type errStore struct{}

func (errStore) GetState(string) (BucketState, bool, error) {
	return BucketState{}, false, fmt.Errorf("store unreachable")
}

func (errStore) SetState(string, float64, time.Time) error {
	return fmt.Errorf("store unreachable")
}

func TestTokenBucket_FailsOpenWhenStoreUnreachable(t *testing.T) {
	b := NewTokenBucket("down", 1, 0, errStore{})
	if !b.TryAcquire(100) {
		t.Error("expected fail-open grant when the store is unreachable")
	}
}

// The limiter is read-modify-write, not compare-and-swap: concurrent
// workers can read the same stale count and both decrement. This test
// pins down the accepted bound: racing N workers against a capacity-C
// bucket grants at least C and at most N acquisitions, and the persisted
// count never goes negative.
func TestTokenBucket_ConcurrentOverAdmissionBounded(t *testing.T) {
	const capacity = 4
	const workers = 8

	store := NewMemoryStore()
	var wg sync.WaitGroup
	var granted atomic.Int32
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		// One bucket instance per worker, as across processes.
		b := NewTokenBucket("race", capacity, 0, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if b.TryAcquire(1) {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	got := granted.Load()
	if got < capacity || got > workers {
		t.Errorf("grants = %d, want between %d and %d", got, capacity, workers)
	}
	st, ok, err := store.GetState("race")
	if err != nil || !ok {
		t.Fatalf("state missing: ok=%v err=%v", ok, err)
	}
	if st.Tokens < 0 {
		t.Errorf("persisted tokens went negative: %v", st.Tokens)
	}
}

func TestTokenBucket_SharedStateAcrossBuckets(t *testing.T) {
	// Two bucket instances with the same name and store behave as one.
	store := NewMemoryStore()
	a := NewTokenBucket("shared", 2, 0, store)
	b := NewTokenBucket("shared", 2, 0, store)
	if !a.TryAcquire(1) || !b.TryAcquire(1) {
		t.Fatal("expected both instances to draw from the shared budget")
	}
	if a.TryAcquire(1) || b.TryAcquire(1) {
		t.Error("expected shared budget to be exhausted after 2 acquisitions")
	}
}
