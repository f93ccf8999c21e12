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
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a StateStore shared by worker processes through a single
// database file. WAL mode lets readers and the single writer overlap.
type SQLiteStore struct {
	db *sql.DB
}

const limiterSchema = `
CREATE TABLE IF NOT EXISTS limiter_state (
	key TEXT PRIMARY KEY,
	tokens REAL NOT NULL,
	last_refill_ns INTEGER NOT NULL
);`

// OpenSQLiteStore opens (creating if needed) the shared limiter database
// at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open limiter store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(limiterSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate limiter store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) GetState(key string) (BucketState, bool, error) {
	var tokens float64
	var refillNS int64
	err := s.db.QueryRow(
		`SELECT tokens, last_refill_ns FROM limiter_state WHERE key = ?`, key,
	).Scan(&tokens, &refillNS)
	if errors.Is(err, sql.ErrNoRows) {
		return BucketState{}, false, nil
	}
	if err != nil {
		return BucketState{}, false, fmt.Errorf("read limiter state %q: %w", key, err)
	}
	return BucketState{Tokens: tokens, LastRefill: time.Unix(0, refillNS)}, true, nil
}

func (s *SQLiteStore) SetState(key string, tokens float64, lastRefill time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO limiter_state (key, tokens, last_refill_ns) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET tokens = excluded.tokens, last_refill_ns = excluded.last_refill_ns`,
		key, tokens, lastRefill.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write limiter state %q: %w", key, err)
	}
	return nil
}
