// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// FSStore stores objects on the local filesystem, served publicly at
// baseURL. Writes go through renameio so a crashed or failed put never
// leaves a partially written object at the final path.
type FSStore struct {
	root    string
	baseURL string
	log     zerolog.Logger
}

// NewFSStore creates a filesystem-backed object store rooted at root.
func NewFSStore(root, baseURL string, logger zerolog.Logger) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: root, baseURL: baseURL, log: logger}, nil
}

// Put writes data under key atomically and returns the object's public URL.
// The contentType is implied by the object's extension for this backend.
func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	// renameio: temp file, fsync, atomic rename. A failed write leaves no
	// partial object behind.
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("object stored")
	return joinURL(s.baseURL, key), nil
}
