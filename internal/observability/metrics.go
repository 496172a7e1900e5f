// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arxiv_digest"

// Metrics holds the run counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// RunsTotal counts pipeline runs.
	RunsTotal prometheus.Counter

	// RunDuration observes whole-run duration in seconds.
	RunDuration prometheus.Histogram

	// PapersDiscovered counts papers returned by discovery.
	PapersDiscovered prometheus.Counter

	// PapersDelivered counts papers delivered on at least one channel.
	PapersDelivered prometheus.Counter

	// PapersFailed counts papers no channel delivered.
	PapersFailed prometheus.Counter

	// DegradedStages counts stages that ran in degraded mode, labeled by
	// stage ("artifact", "analysis", "render").
	DegradedStages *prometheus.CounterVec

	// ChannelSends counts delivery attempts, labeled by channel and result.
	ChannelSends *prometheus.CounterVec

	// StageDuration observes per-stage time in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec
}

// NewMetrics registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		PapersDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of papers returned by discovery",
		}),
		PapersDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_delivered_total",
			Help:      "Total number of papers delivered on at least one channel",
		}),
		PapersFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_failed_total",
			Help:      "Total number of papers no channel delivered",
		}),
		DegradedStages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_stages_total",
			Help:      "Stages that fell back to a degraded result",
		}, []string{"stage"}),
		ChannelSends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Delivery attempts by channel and result",
		}, []string{"channel", "result"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Per-paper stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(discovered, delivered, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.PapersDiscovered.Add(float64(discovered))
	m.PapersDelivered.Add(float64(delivered))
	m.PapersFailed.Add(float64(failed))
}

// RecordDegraded records a stage falling back.
func (m *Metrics) RecordDegraded(stage string) {
	if m == nil {
		return
	}
	m.DegradedStages.WithLabelValues(stage).Inc()
}

// RecordSend records one channel attempt.
func (m *Metrics) RecordSend(channel string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ChannelSends.WithLabelValues(channel, result).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}
