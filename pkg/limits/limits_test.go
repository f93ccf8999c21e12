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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceLimits_SubprocessCeiling(t *testing.T) {
	l := New(Config{MaxConcurrentSubprocesses: 2, SubprocessRefillPerSec: 0.001}, NewMemoryStore())

	require.NoError(t, l.SubprocessToken(context.Background(), 0))
	require.NoError(t, l.SubprocessToken(context.Background(), 0))

	err := l.SubprocessToken(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "subprocess", exhausted.Bucket)
}

func TestResourceLimits_LLMBudgets(t *testing.T) {
	l := New(Config{LLMTokensPerMinute: 100, LLMRequestsPerMinute: 60}, NewMemoryStore())

	require.NoError(t, l.LLMRequest(context.Background(), 0))
	require.NoError(t, l.LLMTokens(context.Background(), 90, 0))

	// 10 tokens remain; a 50 token request must fail without waiting.
	err := l.LLMTokens(context.Background(), 50, 0)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestResourceLimits_NoopTokenAlwaysSucceeds(t *testing.T) {
	l := New(DefaultConfig(), NewMemoryStore())
	for i := 0; i < 100; i++ {
		assert.NoError(t, l.NoopToken())
	}
}

func TestResourceLimits_DefaultsApplied(t *testing.T) {
	l := New(Config{}, NewMemoryStore())
	status := l.Status()
	require.Len(t, status, 3)

	byName := map[string]BucketStatus{}
	for _, st := range status {
		byName[st.Name] = st
	}
	assert.Equal(t, 2.0, byName["subprocess"].Capacity)
	assert.Equal(t, 0.1, byName["subprocess"].RefillRate)
	assert.Equal(t, 10000.0, byName["llm_tokens"].Capacity)
	assert.InDelta(t, 10000.0/60, byName["llm_tokens"].RefillRate, 1e-9)
	assert.Equal(t, 100.0, byName["llm_requests"].Capacity)
	assert.InDelta(t, 100.0/60, byName["llm_requests"].RefillRate, 1e-9)
}

func TestResourceLimits_StatusReflectsDrain(t *testing.T) {
	l := New(Config{MaxConcurrentSubprocesses: 2, SubprocessRefillPerSec: 0.001}, NewMemoryStore())
	require.NoError(t, l.SubprocessToken(context.Background(), 0))

	for _, st := range l.Status() {
		if st.Name == "subprocess" {
			assert.Less(t, st.Tokens, 2.0)
		}
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := OpenSQLiteStore(t.TempDir() + "/limits.db")
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.GetState("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ts := time.Unix(1_700_000_000, 12345)
	require.NoError(t, store.SetState("bucket", 3.5, ts))

	st, ok, err := store.GetState("bucket")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.5, st.Tokens)
	assert.True(t, st.LastRefill.Equal(ts))

	// Overwrite.
	require.NoError(t, store.SetState("bucket", 1.0, ts.Add(time.Second)))
	st, ok, err = store.GetState("bucket")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, st.Tokens)
}

func TestSQLiteStore_SharedAcrossOpens(t *testing.T) {
	path := t.TempDir() + "/limits.db"

	first, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	l1 := New(Config{MaxConcurrentSubprocesses: 2, SubprocessRefillPerSec: 0.001}, first)
	require.NoError(t, l1.SubprocessToken(context.Background(), 0))
	require.NoError(t, first.Close())

	// A second process opening the same file sees the drained budget.
	second, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()
	l2 := New(Config{MaxConcurrentSubprocesses: 2, SubprocessRefillPerSec: 0.001}, second)
	require.NoError(t, l2.SubprocessToken(context.Background(), 0))
	assert.Error(t, l2.SubprocessToken(context.Background(), 0))
}
