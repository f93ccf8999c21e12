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

// Package artifacts stores versioned, immutable pipeline outputs on disk
// and records them in the state store.
//
// Payloads are content-addressed: re-emitting identical bytes for a
// (snapshot, kind) does not allocate a new version, while changed bytes
// append the next one. Files are written atomically (temp file + rename)
// so a crashed writer never leaves a half-written artifact behind.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/codemap/pkg/state"
)

// Registry is the slice of the state store artifact writes need.
type Registry interface {
	InsertArtifact(ctx context.Context, art *state.Artifact) error
	LatestArtifact(ctx context.Context, snapshotID, kind string) (*state.Artifact, error)
}

// Store writes artifact payloads under a root directory and registers
// versions in the state store.
type Store struct {
	root     string
	registry Registry
}

func NewStore(root string, registry Registry) *Store {
	return &Store{root: root, registry: registry}
}

// Written describes the outcome of WriteVersioned.
type Written struct {
	Kind    string
	Version int
	URI     string
	SHA256  string
	Bytes   int64
	// Reused is true when the payload matched the latest version's
	// content hash and no new version was created.
	Reused bool
}

// WriteVersioned stores payload as the next version of (snapshotID, kind).
// Identical payload bytes to the current latest version are a no-op that
// returns the existing version.
func (s *Store) WriteVersioned(ctx context.Context, snapshotID, kind string, payload []byte) (*Written, error) {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])

	latest, err := s.registry.LatestArtifact(ctx, snapshotID, kind)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.SHA256 == hash {
		slog.Debug("artifacts.write.reused", "snapshot_id", snapshotID, "kind", kind, "version", latest.Version)
		return &Written{
			Kind:    kind,
			Version: latest.Version,
			URI:     latest.URI,
			SHA256:  latest.SHA256,
			Bytes:   latest.Bytes,
			Reused:  true,
		}, nil
	}

	path := s.payloadPath(snapshotID, kind, hash)
	if err := writeFileAtomic(path, payload); err != nil {
		return nil, err
	}

	art := &state.Artifact{
		SnapshotID: snapshotID,
		Kind:       kind,
		URI:        "file://" + path,
		SHA256:     hash,
		Bytes:      int64(len(payload)),
	}
	if err := s.registry.InsertArtifact(ctx, art); err != nil {
		return nil, err
	}
	slog.Info("artifacts.write.complete",
		"snapshot_id", snapshotID,
		"kind", kind,
		"version", art.Version,
		"bytes", art.Bytes,
	)
	return &Written{
		Kind:    kind,
		Version: art.Version,
		URI:     art.URI,
		SHA256:  hash,
		Bytes:   art.Bytes,
	}, nil
}

// ReadLatest returns the payload bytes of the latest version of
// (snapshotID, kind), or nil when no version exists.
func (s *Store) ReadLatest(ctx context.Context, snapshotID, kind string) ([]byte, *state.Artifact, error) {
	latest, err := s.registry.LatestArtifact(ctx, snapshotID, kind)
	if err != nil || latest == nil {
		return nil, nil, err
	}
	path := filepath.Join(s.root, snapshotID, kind, latest.SHA256+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact %s v%d: %w", kind, latest.Version, err)
	}
	return data, latest, nil
}

func (s *Store) payloadPath(snapshotID, kind, hash string) string {
	return filepath.Join(s.root, snapshotID, kind, hash+".json")
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write artifact temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
