// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the cliplink pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngineLoadTotal counts engine initialisation attempts by outcome.
	EngineLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliplink_engine_load_total",
		Help: "Total number of engine initialisation attempts, by outcome.",
	}, []string{"outcome"})

	// TrimTotal counts trim operations by outcome.
	TrimTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliplink_trim_total",
		Help: "Total number of trim operations, by outcome.",
	}, []string{"outcome"})

	// TrimDurationSeconds observes wall-clock trim latency.
	TrimDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cliplink_trim_duration_seconds",
		Help:    "Wall-clock duration of trim operations.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// PublishTotal counts publish attempts by outcome.
	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliplink_publish_total",
		Help: "Total number of publish attempts, by outcome.",
	}, []string{"outcome"})

	// VideoFetchTotal counts video detail fetches by outcome.
	VideoFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliplink_video_fetch_total",
		Help: "Total number of video detail fetches, by outcome.",
	}, []string{"outcome"})

	// WatchSecondsTotal accumulates reported watch time.
	WatchSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cliplink_watch_seconds_total",
		Help: "Total watch-time seconds reported by viewers.",
	})
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// RecordEngineLoad increments the engine load counter.
func RecordEngineLoad(outcome string) {
	EngineLoadTotal.WithLabelValues(outcome).Inc()
}

// RecordTrim increments the trim counter and observes its duration.
func RecordTrim(outcome string, d time.Duration) {
	TrimTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		TrimDurationSeconds.Observe(d.Seconds())
	}
}

// RecordPublish increments the publish counter.
func RecordPublish(outcome string) {
	PublishTotal.WithLabelValues(outcome).Inc()
}

// RecordVideoFetch increments the video fetch counter.
func RecordVideoFetch(outcome string) {
	VideoFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordWatchSeconds accumulates reported watch time.
func RecordWatchSeconds(seconds float64) {
	if seconds > 0 {
		WatchSecondsTotal.Add(seconds)
	}
}
