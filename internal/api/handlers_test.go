// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/engine"
	"github.com/cliplink/cliplink/internal/engine/enginetest"
	"github.com/cliplink/cliplink/internal/pipeline"
	"github.com/cliplink/cliplink/internal/publish"
	"github.com/cliplink/cliplink/internal/storage"
	"github.com/cliplink/cliplink/internal/store"
	"github.com/cliplink/cliplink/internal/trim"
	"github.com/cliplink/cliplink/internal/videos"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	transport := engine.NewMemTransport(&enginetest.CutRuntime{})
	loader := engine.NewLoader(transport, zerolog.Nop())
	trimmer := trim.New(loader, trim.PolicyCopy, "")

	objects, err := storage.NewFSStore(t.TempDir(), "http://localhost:8080/media", zerolog.Nop())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}

	mem := store.NewMemoryStore()
	p := pipeline.New(trimmer, publish.New(objects), mem)
	srv := NewServer(p, videos.New(mem), Options{})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// multipartCapture builds a multipart body with a synthetic capture and
// optional trim bounds.
func multipartCapture(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("video", "capture.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(make([]byte, 10*enginetest.BytesPerSecond)); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeRecord(t *testing.T, resp *http.Response) store.VideoRecord {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var rec store.VideoRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func TestCreateAndFetchFlow(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartCapture(t, map[string]string{
		"trimStart": "2",
		"trimEnd":   "5",
	})
	resp, err := http.Post(ts.URL+"/api/videos", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	rec := decodeRecord(t, resp)
	if rec.VideoID == "" || rec.Locator == "" {
		t.Fatalf("incomplete record: %+v", rec)
	}
	if rec.ViewCount != 0 {
		t.Errorf("fresh record viewCount = %d", rec.ViewCount)
	}

	// Scenario B: two sequential fetches; the second reports exactly 2.
	for want := uint64(1); want <= 2; want++ {
		resp, err := http.Get(ts.URL + "/api/videos/" + rec.VideoID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		got := decodeRecord(t, resp)
		if got.ViewCount != want {
			t.Errorf("fetch %d viewCount = %d", want, got.ViewCount)
		}
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartCapture(t, map[string]string{
		"trimStart": "5",
		"trimEnd":   "2",
	})
	resp, err := http.Post(ts.URL+"/api/videos", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartCapture(t, nil)
	resp, err := http.Post(ts.URL+"/api/videos", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadPublishesRaw(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartCapture(t, nil)
	resp, err := http.Post(ts.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var out struct {
		VideoID string `json:"videoId"`
		URL     string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.VideoID == "" || !strings.Contains(out.URL, out.VideoID) {
		t.Errorf("unexpected upload response: %+v", out)
	}
}

func TestFetchUnknownVideo(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/videos/no-such-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWatchTimeValidation(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartCapture(t, map[string]string{
		"trimStart": "0",
		"trimEnd":   "3",
	})
	resp, err := http.Post(ts.URL+"/api/videos", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	rec := decodeRecord(t, resp)

	post := func(videoID, payload string) int {
		resp, err := http.Post(
			ts.URL+"/api/videos/"+videoID+"/watchtime",
			"application/json",
			strings.NewReader(payload),
		)
		if err != nil {
			t.Fatalf("post watchtime: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode
	}

	if status := post(rec.VideoID, `{"watchTime": 12.5}`); status != http.StatusOK {
		t.Errorf("valid watch time: status = %d", status)
	}
	if status := post(rec.VideoID, `{"watchTime": -5}`); status != http.StatusBadRequest {
		t.Errorf("negative watch time: status = %d", status)
	}
	if status := post(rec.VideoID, `{"watchTime": "NaN"}`); status != http.StatusBadRequest {
		t.Errorf("non-numeric watch time: status = %d", status)
	}
	if status := post("no-such-id", `{"watchTime": 5}`); status != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", status)
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	ts := newTestServer(t)

	var ids []string
	for i := 0; i < 3; i++ {
		body, contentType := multipartCapture(t, map[string]string{
			"trimStart": "0",
			"trimEnd":   fmt.Sprintf("%d", i+1),
		})
		resp, err := http.Post(ts.URL+"/api/videos", contentType, body)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		ids = append(ids, decodeRecord(t, resp).VideoID)
	}

	resp, err := http.Get(ts.URL + "/api/videos")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Videos []store.VideoRecord `json:"videos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Videos) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(out.Videos))
	}
	// Newest first: the last created id leads the listing.
	if out.Videos[0].VideoID != ids[2] {
		t.Errorf("expected %s first, got %s", ids[2], out.Videos[0].VideoID)
	}
}
