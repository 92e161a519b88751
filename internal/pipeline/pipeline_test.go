// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/engine"
	"github.com/cliplink/cliplink/internal/engine/enginetest"
	"github.com/cliplink/cliplink/internal/media"
	"github.com/cliplink/cliplink/internal/publish"
	"github.com/cliplink/cliplink/internal/storage"
	"github.com/cliplink/cliplink/internal/store"
	"github.com/cliplink/cliplink/internal/trim"
	"github.com/cliplink/cliplink/internal/videos"
)

// failingObjects always fails the durable write.
type failingObjects struct{ err error }

func (f *failingObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", f.err
}

func newTestPipeline(t *testing.T, objects storage.ObjectStore) (*Pipeline, *store.MemoryStore) {
	t.Helper()

	transport := engine.NewMemTransport(&enginetest.CutRuntime{})
	loader := engine.NewLoader(transport, zerolog.Nop())
	trimmer := trim.New(loader, trim.PolicyCopy, "")

	if objects == nil {
		fs, err := storage.NewFSStore(t.TempDir(), "http://localhost:8080/media", zerolog.Nop())
		if err != nil {
			t.Fatalf("fs store: %v", err)
		}
		objects = fs
	}

	mem := store.NewMemoryStore()
	return New(trimmer, publish.New(objects), mem), mem
}

func tenSecondSource() media.Blob {
	// Ten seconds of synthetic capture at the test runtime's bitrate.
	return media.NewBlob(make([]byte, 10*enginetest.BytesPerSecond), "video/webm")
}

func TestCreateClipEndToEnd(t *testing.T) {
	p, mem := newTestPipeline(t, nil)
	ctx := context.Background()

	rec, err := p.CreateClip(ctx, tenSecondSource(), 2, 5)
	if err != nil {
		t.Fatalf("create clip: %v", err)
	}

	if rec.VideoID == "" || rec.Locator == "" {
		t.Errorf("incomplete record: %+v", rec)
	}
	if rec.ViewCount != 0 || rec.TotalWatchSeconds != 0 {
		t.Errorf("expected zeroed counters, got %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	stored, err := mem.Get(ctx, rec.VideoID)
	if err != nil {
		t.Fatalf("stored record: %v", err)
	}
	if stored.Locator != rec.Locator {
		t.Errorf("stored locator %q != returned %q", stored.Locator, rec.Locator)
	}
}

func TestCreateClipTrimsToRequestedRange(t *testing.T) {
	root := t.TempDir()
	fs, err := storage.NewFSStore(root, "http://localhost:8080/media", zerolog.Nop())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	p, _ := newTestPipeline(t, fs)

	rec, err := p.CreateClip(context.Background(), tenSecondSource(), 2, 5)
	if err != nil {
		t.Fatalf("create clip: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "videos", rec.VideoID+".webm"))
	if err != nil {
		t.Fatalf("read published object: %v", err)
	}
	if got := enginetest.DurationOf(data); math.Abs(got-3) > 0.1 {
		t.Errorf("published clip is %vs, want ~3s", got)
	}
}

func TestCreateClipRejectsInvalidRange(t *testing.T) {
	p, mem := newTestPipeline(t, nil)

	for _, tc := range []struct{ start, end float64 }{
		{5, 2},
		{3, 3},
		{math.NaN(), 2},
	} {
		_, err := p.CreateClip(context.Background(), tenSecondSource(), tc.start, tc.end)
		if !errors.Is(err, trim.ErrInvalidRange) {
			t.Errorf("CreateClip(%v, %v): expected ErrInvalidRange, got %v", tc.start, tc.end, err)
		}
	}

	recs, err := mem.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("invalid requests created %d records", len(recs))
	}
}

func TestStorageFailureCreatesNoRecord(t *testing.T) {
	boom := errors.New("bucket gone")
	p, mem := newTestPipeline(t, &failingObjects{err: boom})

	_, err := p.CreateClip(context.Background(), tenSecondSource(), 2, 5)
	var storageErr *publish.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	recs, listErr := mem.ListAll(context.Background())
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(recs) != 0 {
		t.Errorf("storage failure still created %d records", len(recs))
	}
}

func TestPublishRawSkipsTrim(t *testing.T) {
	p, mem := newTestPipeline(t, nil)

	rec, err := p.PublishRaw(context.Background(), tenSecondSource())
	if err != nil {
		t.Fatalf("publish raw: %v", err)
	}
	if _, err := mem.Get(context.Background(), rec.VideoID); err != nil {
		t.Fatalf("stored record: %v", err)
	}
}

func TestFetchTwiceCountsTwoViews(t *testing.T) {
	p, mem := newTestPipeline(t, nil)
	ctx := context.Background()

	rec, err := p.CreateClip(ctx, tenSecondSource(), 2, 5)
	if err != nil {
		t.Fatalf("create clip: %v", err)
	}

	svc := videos.New(mem)
	if _, err := svc.Fetch(ctx, rec.VideoID); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := svc.Fetch(ctx, rec.VideoID)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if second.ViewCount != 2 {
		t.Errorf("second fetch count = %d, want 2", second.ViewCount)
	}
}
