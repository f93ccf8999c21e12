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
	"sync"
	"time"
)

// BucketState is the persisted state of one bucket: the token count as of
// the last refill, and when that refill happened.
type BucketState struct {
	Tokens     float64
	LastRefill time.Time
}

// StateStore holds bucket state shared across worker processes.
//
// Implementations do not need compare-and-swap semantics. Buckets perform a
// plain read-modify-write, which admits a bounded number of extra
// acquisitions when workers race; that slack is an accepted trade for
// keeping the store interface trivial.
type StateStore interface {
	// GetState returns the state for key. ok is false when the key has
	// never been written.
	GetState(key string) (state BucketState, ok bool, err error)
	// SetState overwrites the state for key.
	SetState(key string, tokens float64, lastRefill time.Time) error
}

// MemoryStore is a StateStore for a single process. Used in tests and when
// no shared store is configured.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]BucketState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]BucketState)}
}

func (m *MemoryStore) GetState(key string) (BucketState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	return st, ok, nil
}

func (m *MemoryStore) SetState(key string, tokens float64, lastRefill time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = BucketState{Tokens: tokens, LastRefill: lastRefill}
	return nil
}
