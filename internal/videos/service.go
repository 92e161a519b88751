// SPDX-License-Identifier: MIT

// Package videos exposes the read-with-side-effect retrieval and analytics
// operations for published videos.
package videos

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/metrics"
	"github.com/cliplink/cliplink/internal/store"
)

// Service reads video records and applies their view/watch analytics.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

// New creates a retrieval/analytics service over s.
func New(s store.Store) *Service {
	return &Service{
		store: s,
		log:   log.WithComponent("videos"),
	}
}

// Fetch returns the record for id with its view count incremented as a side
// effect of the read. The returned count reflects the increment just
// performed.
func (s *Service) Fetch(ctx context.Context, id string) (store.VideoRecord, error) {
	count, err := s.store.IncrementViewCount(ctx, id)
	if err != nil {
		metrics.RecordVideoFetch(metrics.OutcomeError)
		return store.VideoRecord{}, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		metrics.RecordVideoFetch(metrics.OutcomeError)
		return store.VideoRecord{}, err
	}
	// Under concurrent fetches Get may observe later increments; report
	// the count this call produced.
	rec.ViewCount = count

	metrics.RecordVideoFetch(metrics.OutcomeOK)
	return rec, nil
}

// ReportWatchTime adds a viewer-reported duration to the video's cumulative
// watch time. Negative or non-finite durations are rejected before the
// store is touched.
func (s *Service) ReportWatchTime(ctx context.Context, id string, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: watch time must be finite", store.ErrInvalidInput)
	}
	if seconds < 0 {
		return fmt.Errorf("%w: watch time %v < 0", store.ErrInvalidInput, seconds)
	}
	// Values at or above 2^63 are out of range for the float→uint64
	// conversion below and for the int64-backed store counters.
	if seconds >= float64(store.MaxWatchSeconds) {
		return fmt.Errorf("%w: watch time %v exceeds counter range", store.ErrInvalidInput, seconds)
	}

	whole := uint64(math.Round(seconds))
	if err := s.store.AddWatchTime(ctx, id, whole); err != nil {
		return err
	}
	metrics.RecordWatchSeconds(seconds)
	return nil
}

// List returns every known record, newest-first.
func (s *Service) List(ctx context.Context) ([]store.VideoRecord, error) {
	return s.store.ListAll(ctx)
}
