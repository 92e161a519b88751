// SPDX-License-Identifier: MIT

// Package store persists the metadata record of every published video and
// its view/watch-time counters.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotFound is returned for lookups and increments on unknown ids.
	ErrNotFound = errors.New("video not found")
	// ErrAlreadyExists is returned when Create would overwrite a record.
	ErrAlreadyExists = errors.New("video already exists")
	// ErrInvalidInput is returned for malformed caller input before any
	// state is touched.
	ErrInvalidInput = errors.New("invalid input")
)

// MaxWatchSeconds is the largest delta AddWatchTime accepts. The counters
// are incremented through int64 primitives (Redis HINCRBY), so a larger
// delta would wrap the stored total negative.
const MaxWatchSeconds = uint64(math.MaxInt64)

// checkWatchSeconds rejects deltas outside the counter range before any
// backend state is touched.
func checkWatchSeconds(seconds uint64) error {
	if seconds > MaxWatchSeconds {
		return fmt.Errorf("%w: watch time delta %d exceeds counter range", ErrInvalidInput, seconds)
	}
	return nil
}

// VideoRecord is the persisted metadata row for one published video.
// ViewCount and TotalWatchSeconds are mutated only through the store's
// atomic increment operations; everything else is immutable after Create.
// JSON field names match the public API payloads.
type VideoRecord struct {
	VideoID           string    `json:"videoId"`
	Locator           string    `json:"blobUrl"`
	CreatedAt         time.Time `json:"createdAt"`
	ViewCount         uint64    `json:"viewCount"`
	TotalWatchSeconds uint64    `json:"totalWatchTime"`
}

// Store is the metadata persistence boundary. Counter mutations are atomic
// per record: under concurrent increments the final value equals the number
// of successful calls. ListAll returns records newest-first (ids are pushed
// to the front of the index at Create time).
type Store interface {
	// Create inserts rec keyed by its VideoID and prepends the id to the
	// index. Returns ErrAlreadyExists if the id is already present.
	Create(ctx context.Context, rec VideoRecord) error
	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (VideoRecord, error)
	// IncrementViewCount atomically increments the view counter and
	// returns the new value. Returns ErrNotFound for unknown ids.
	IncrementViewCount(ctx context.Context, id string) (uint64, error)
	// AddWatchTime atomically adds seconds to the cumulative watch time.
	// Returns ErrNotFound for unknown ids and ErrInvalidInput for deltas
	// above MaxWatchSeconds.
	AddWatchTime(ctx context.Context, id string, seconds uint64) error
	// ListAll returns every known record, newest-first.
	ListAll(ctx context.Context) ([]VideoRecord, error)
}
