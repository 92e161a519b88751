// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests. A single
// mutex guards the map and the index; counter mutations happen under the
// lock, so increments are never lost to interleaving.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*VideoRecord
	index   []string // newest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*VideoRecord)}
}

// Create inserts rec and prepends its id to the index.
func (s *MemoryStore) Create(ctx context.Context, rec VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.VideoID]; exists {
		return ErrAlreadyExists
	}
	r := rec
	s.records[rec.VideoID] = &r
	s.index = append([]string{rec.VideoID}, s.index...)
	return nil
}

// Get returns a copy of the record for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return VideoRecord{}, ErrNotFound
	}
	return *r, nil
}

// IncrementViewCount atomically increments and returns the new view count.
func (s *MemoryStore) IncrementViewCount(ctx context.Context, id string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return 0, ErrNotFound
	}
	r.ViewCount++
	return r.ViewCount, nil
}

// AddWatchTime atomically adds seconds to the cumulative total.
func (s *MemoryStore) AddWatchTime(ctx context.Context, id string, seconds uint64) error {
	if err := checkWatchSeconds(seconds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	r.TotalWatchSeconds += seconds
	return nil
}

// ListAll returns copies of all records, newest-first.
func (s *MemoryStore) ListAll(ctx context.Context) ([]VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]VideoRecord, 0, len(s.index))
	for _, id := range s.index {
		if r, ok := s.records[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}
