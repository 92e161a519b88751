// SPDX-License-Identifier: MIT

// Package api exposes the inbound HTTP surface over the pipeline and the
// retrieval/analytics service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/pipeline"
	"github.com/cliplink/cliplink/internal/videos"
)

// Server wires HTTP handlers onto the pipeline components.
type Server struct {
	pipeline *pipeline.Pipeline
	videos   *videos.Service
	log      zerolog.Logger

	maxUploadBytes     int64
	rateLimitPerMinute int
}

// Options configures the server surface.
type Options struct {
	MaxUploadBytes     int64
	RateLimitPerMinute int // zero disables rate limiting
}

// NewServer creates the HTTP surface.
func NewServer(p *pipeline.Pipeline, v *videos.Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 512 << 20
	}
	return &Server{
		pipeline:           p,
		videos:             v,
		log:                log.WithComponent("api"),
		maxUploadBytes:     opts.MaxUploadBytes,
		rateLimitPerMinute: opts.RateLimitPerMinute,
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)
	if s.rateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.rateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", s.handleCreate)
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleFetch)
			r.Post("/{id}/watchtime", s.handleWatchTime)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID attaches a fresh request id to the context of every request.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()
		ctx := log.ContextWithRequestID(r.Context(), rid)
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", log.RequestIDFromContext(r.Context())).
			Dur("took", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
