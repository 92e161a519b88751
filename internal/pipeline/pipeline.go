// SPDX-License-Identifier: MIT

// Package pipeline orchestrates the capture-to-publish flow: trim the
// captured blob, publish the result, then create its metadata record.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/media"
	"github.com/cliplink/cliplink/internal/publish"
	"github.com/cliplink/cliplink/internal/store"
	"github.com/cliplink/cliplink/internal/trim"
)

// Pipeline wires the trim, publish and metadata stages. Steps within one
// clip are strictly ordered: publish never starts before trim completes and
// no record is created unless the durable write succeeded.
type Pipeline struct {
	trimmer   *trim.Trimmer
	publisher *publish.Service
	store     store.Store
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a pipeline.
func New(trimmer *trim.Trimmer, publisher *publish.Service, s store.Store) *Pipeline {
	return &Pipeline{
		trimmer:   trimmer,
		publisher: publisher,
		store:     s,
		log:       log.WithComponent("pipeline"),
		now:       time.Now,
	}
}

// CreateClip trims [start, end) seconds out of source, publishes the result
// and creates its metadata record with zeroed counters.
func (p *Pipeline) CreateClip(ctx context.Context, source media.Blob, start, end float64) (store.VideoRecord, error) {
	clip, err := p.trimmer.Trim(ctx, trim.Request{Source: source, Start: start, End: end})
	if err != nil {
		return store.VideoRecord{}, err
	}
	return p.record(ctx, clip)
}

// PublishRaw publishes source unmodified, skipping the trim stage. Used by
// the upload-only path where the capture is published as recorded.
func (p *Pipeline) PublishRaw(ctx context.Context, source media.Blob) (store.VideoRecord, error) {
	return p.record(ctx, source)
}

func (p *Pipeline) record(ctx context.Context, blob media.Blob) (store.VideoRecord, error) {
	res, err := p.publisher.Publish(ctx, blob)
	if err != nil {
		return store.VideoRecord{}, err
	}

	rec := store.VideoRecord{
		VideoID:   res.VideoID,
		Locator:   res.Locator,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.Create(ctx, rec); err != nil {
		// The blob is already durable; surface the metadata failure so
		// the caller does not get a videoId without a record.
		return store.VideoRecord{}, fmt.Errorf("create metadata for %s: %w", res.VideoID, err)
	}

	p.log.Info().Str("video_id", rec.VideoID).Str("url", rec.Locator).Msg("clip ready")
	return rec, nil
}
