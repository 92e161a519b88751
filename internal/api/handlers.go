// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cliplink/cliplink/internal/engine"
	"github.com/cliplink/cliplink/internal/media"
	"github.com/cliplink/cliplink/internal/publish"
	"github.com/cliplink/cliplink/internal/store"
	"github.com/cliplink/cliplink/internal/trim"
)

// handleCreate accepts a multipart capture plus a trim range and runs the
// full trim→publish→record pipeline.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	blob, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	start, err := strconv.ParseFloat(r.FormValue("trimStart"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trimStart")
		return
	}
	end, err := strconv.ParseFloat(r.FormValue("trimEnd"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trimEnd")
		return
	}

	rec, err := s.pipeline.CreateClip(r.Context(), blob, start, end)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleUpload publishes a capture unmodified, without trimming.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	blob, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	rec, err := s.pipeline.PublishRaw(r.Context(), blob)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"videoId": rec.VideoID,
		"url":     rec.Locator,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.videos.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list videos")
		writeError(w, http.StatusInternalServerError, "failed to fetch videos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": recs})
}

// handleFetch returns a video's details, incrementing its view count as a
// side effect of the read.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.videos.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		s.log.Error().Err(err).Str("video_id", id).Msg("fetch video")
		writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type watchTimeRequest struct {
	WatchTime float64 `json:"watchTime"`
}

func (s *Server) handleWatchTime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req watchTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.videos.ReportWatchTime(r.Context(), id, req.WatchTime); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid watch time")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "video not found")
		default:
			s.log.Error().Err(err).Str("video_id", id).Msg("report watch time")
			writeError(w, http.StatusInternalServerError, "failed to track watch time")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// readUpload extracts the capture blob from a multipart request. It writes
// the error response itself and reports ok=false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (media.Blob, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return media.Blob{}, false
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing video")
		return media.Blob{}, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable video")
		return media.Blob{}, false
	}

	mime := header.Header.Get("Content-Type")
	return media.NewBlob(data, mime), true
}

// writePipelineError maps pipeline failures onto HTTP statuses.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		initErr    *engine.InitError
		execErr    *engine.ExecError
		storageErr *publish.StorageError
	)

	switch {
	case errors.Is(err, trim.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid trim range")
	case errors.As(err, &initErr):
		s.log.Error().Err(err).Msg("engine unavailable")
		writeError(w, http.StatusBadGateway, "transcoding engine unavailable")
	case errors.As(err, &execErr):
		s.log.Error().Err(err).Msg("transcoding failed")
		writeError(w, http.StatusBadGateway, "transcoding failed")
	case errors.As(err, &storageErr):
		s.log.Error().Err(err).Msg("storage write failed")
		writeError(w, http.StatusBadGateway, "storage write failed")
	default:
		s.log.Error().Err(err).Msg("pipeline failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
