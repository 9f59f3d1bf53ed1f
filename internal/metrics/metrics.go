// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus instrumentation for the countdown
// engine, badge renderer, and report client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leavetray_evaluations_total",
		Help: "Total number of completed countdown evaluation cycles",
	})

	evaluationsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leavetray_evaluations_skipped_total",
		Help: "Evaluation cycles skipped because one was already in flight",
	})

	minutesRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leavetray_minutes_remaining",
		Help: "Minutes remaining until the configured leave time (last evaluation)",
	})

	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavetray_badge_renders_total",
		Help: "Badge render attempts by outcome",
	}, []string{"outcome"}) // outcome=success|dropped|error

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavetray_notifications_total",
		Help: "Leave-time notifications by outcome",
	}, []string{"outcome"}) // outcome=sent|failed

	reportFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavetray_report_fetch_total",
		Help: "Entrance-time report fetches by outcome",
	}, []string{"outcome"}) // outcome=success|transport_error|extract_error|config_error

	reportFetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leavetray_report_fetch_seconds",
		Help:    "Latency of entrance-time report fetches",
		Buckets: prometheus.DefBuckets,
	})
)

// Evaluation records one completed evaluation cycle and the minutes it
// observed.
func Evaluation(minutes int) {
	evaluationsTotal.Inc()
	minutesRemaining.Set(float64(minutes))
}

// EvaluationSkipped records a tick dropped by the single-in-flight guard.
func EvaluationSkipped() {
	evaluationsSkipped.Inc()
}

// BadgeRender records a badge render attempt.
func BadgeRender(outcome string) {
	rendersTotal.WithLabelValues(outcome).Inc()
}

// Notification records a notification attempt.
func Notification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ReportFetch records a report fetch and its latency.
func ReportFetch(outcome string, d time.Duration) {
	reportFetchTotal.WithLabelValues(outcome).Inc()
	reportFetchSeconds.Observe(d.Seconds())
}
