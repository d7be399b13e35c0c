// Package metrics exposes trainer activity to Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExercisesStarted counts started sessions, labelled by part (p1, p2, p3)
	ExercisesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fce_exercises_started_total",
			Help: "Total number of exercise sessions started",
		},
		[]string{"part"},
	)

	// AttemptsFinished counts scored attempts; outcome is in_time or timed_out
	AttemptsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fce_attempts_finished_total",
			Help: "Total number of scored attempts",
		},
		[]string{"part", "outcome"},
	)

	// AttemptScores tracks the percentage scored per attempt
	AttemptScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fce_attempt_score_percent",
			Help:    "Percentage of correct answers per attempt",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"part"},
	)

	// SnapshotRecoveries counts Part 1/2 sessions rebuilt from a snapshot
	SnapshotRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fce_snapshot_recoveries_total",
			Help: "Total number of sessions recovered from a snapshot",
		},
		[]string{"part"},
	)

	// SessionsLost counts actions that arrived for a session that no longer exists
	SessionsLost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fce_sessions_lost_total",
			Help: "Total number of actions on a lost session",
		},
		[]string{"part"},
	)

	// ActiveTrainees is the number of trainees with sessions held in memory
	ActiveTrainees = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fce_active_trainees",
			Help: "Current number of trainees held in memory",
		},
	)

	// PoolReloads counts reloads triggered by data file changes; result is ok or error
	PoolReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fce_pool_reloads_total",
			Help: "Total number of exercise pool reloads after a data file change",
		},
		[]string{"part", "result"},
	)

	// RateLimited counts requests refused by the start rate limiter
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fce_rate_limited_total",
			Help: "Total number of requests refused by the rate limiter",
		},
	)
)

// Outcome labels an attempt by whether it ran over its time limit
func Outcome(timedOut bool) string {
	if timedOut {
		return "timed_out"
	}
	return "in_time"
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
