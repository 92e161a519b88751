// SPDX-License-Identifier: MIT

// Package publish writes finished media blobs to durable storage and mints
// their public locators.
package publish

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/media"
	"github.com/cliplink/cliplink/internal/metrics"
	"github.com/cliplink/cliplink/internal/storage"
)

// StorageError wraps a failed durable write. No metadata record may be
// created downstream of this error.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage write for %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Result identifies a freshly published video.
type Result struct {
	VideoID string
	Locator string
}

// Service publishes blobs to an object store. It performs no retries;
// retry policy belongs to the caller.
type Service struct {
	objects storage.ObjectStore
	log     zerolog.Logger
}

// New creates a publish service over objects.
func New(objects storage.ObjectStore) *Service {
	return &Service{
		objects: objects,
		log:     log.WithComponent("publish"),
	}
}

// Publish stores blob under a fresh UUID-derived key and returns the id and
// public locator. UUID collisions are treated as negligible; no uniqueness
// check is made against existing storage.
func (s *Service) Publish(ctx context.Context, blob media.Blob) (Result, error) {
	id := uuid.NewString()
	key := "videos/" + id + ".webm"

	url, err := s.objects.Put(ctx, key, blob.Bytes(), blob.MIME())
	if err != nil {
		metrics.RecordPublish(metrics.OutcomeError)
		return Result{}, &StorageError{Key: key, Err: err}
	}

	metrics.RecordPublish(metrics.OutcomeOK)
	s.log.Info().Str("video_id", id).Str("url", url).Int("bytes", blob.Len()).Msg("video published")
	return Result{VideoID: id, Locator: url}, nil
}
