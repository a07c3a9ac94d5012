// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package metrics exposes mission run progress as Prometheus metrics. A batch
// run is a short-lived process, so metrics are written to a text file for the
// node_exporter textfile collector instead of being served.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ucl-sgnl/myriad-utils/internal/aggregate"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"github.com/ucl-sgnl/myriad-utils/internal/validate"
)

// Namespace prefixes every metric name.
const Namespace = "myriad"

// ErrWriteTextfile is returned when the metrics file cannot be written.
var ErrWriteTextfile = errors.New("failed to write metrics textfile")

var _ progress.Listener = (*Metrics)(nil)

// Metrics holds every collector for one mission run.
type Metrics struct {
	registry *prometheus.Registry
	mu       sync.Mutex

	StageDuration *prometheus.GaugeVec
	StageFailures *prometheus.CounterVec
	StageCount    *prometheus.GaugeVec

	UnitsStarted  *prometheus.CounterVec
	UnitsFinished *prometheus.CounterVec
	UnitsFailed   *prometheus.CounterVec
	UnitDuration  prometheus.Histogram

	Polls       prometheus.Counter
	PollErrors  prometheus.Counter
	Outstanding prometheus.Gauge

	ArtifactsExpected prometheus.Gauge
	ArtifactsPresent  prometheus.Gauge
	ArtifactsMissing  prometheus.Gauge
	Anomalies         prometheus.Gauge
	CombinedLines     prometheus.Gauge
	LastSuccess       prometheus.Gauge
}

// New registers a fresh set of collectors labelled with mission.
func New(mission string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"mission": mission}

	return &Metrics{
		registry: reg,
		StageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "stage_duration_seconds",
			Help:        "Duration of the last completed run of each stage",
			ConstLabels: labels,
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "stage_failures_total",
			Help:        "Stages that ended with a fatal error",
			ConstLabels: labels,
		}, []string{"stage"}),
		StageCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "stage_items",
			Help:        "Items handled by the last completed run of each stage",
			ConstLabels: labels,
		}, []string{"stage"}),
		UnitsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "units_started_total",
			Help:        "Work units started or submitted",
			ConstLabels: labels,
		}, []string{"stage"}),
		UnitsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "units_finished_total",
			Help:        "Work units that exited successfully",
			ConstLabels: labels,
		}, []string{"stage"}),
		UnitsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "units_failed_total",
			Help:        "Work units that failed",
			ConstLabels: labels,
		}, []string{"stage"}),
		UnitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "unit_duration_seconds",
			Help:        "Wall time of locally executed work units",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
			ConstLabels: labels,
		}),
		Polls: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "monitor_polls_total",
			Help:        "Scheduler status queries",
			ConstLabels: labels,
		}),
		PollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "monitor_poll_errors_total",
			Help:        "Scheduler status queries that failed",
			ConstLabels: labels,
		}),
		Outstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "monitor_outstanding_jobs",
			Help:        "Jobs outstanding at the last successful query",
			ConstLabels: labels,
		}),
		ArtifactsExpected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "artifacts_expected",
			Help:        "Output artifacts expected by the last validation",
			ConstLabels: labels,
		}),
		ArtifactsPresent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "artifacts_present",
			Help:        "Output artifacts found by the last validation",
			ConstLabels: labels,
		}),
		ArtifactsMissing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "artifacts_missing",
			Help:        "Output artifacts missing at the last validation",
			ConstLabels: labels,
		}),
		Anomalies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "artifacts_malformed",
			Help:        "Output artifacts with the wrong line count at the last validation",
			ConstLabels: labels,
		}),
		CombinedLines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "combined_lines",
			Help:        "Data lines in the last combined dataset",
			ConstLabels: labels,
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last stage that completed",
			ConstLabels: labels,
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnEvent updates the collectors from a progress event.
func (m *Metrics) OnEvent(e progress.Event) {
	stage := string(e.Stage)

	switch e.Type {
	case progress.EventStageCompleted:
		m.StageDuration.WithLabelValues(stage).Set(e.Data.Duration.Seconds())
		m.StageCount.WithLabelValues(stage).Set(float64(e.Data.Count))

		if !e.Timestamp.IsZero() {
			m.LastSuccess.Set(float64(e.Timestamp.Unix()))
		}
	case progress.EventStageFailed:
		m.StageFailures.WithLabelValues(stage).Inc()
	case progress.EventUnitStarted:
		m.UnitsStarted.WithLabelValues(stage).Inc()
	case progress.EventUnitFinished:
		m.UnitsFinished.WithLabelValues(stage).Inc()
		m.UnitDuration.Observe(e.Data.Duration.Seconds())
	case progress.EventUnitFailed:
		m.UnitsFailed.WithLabelValues(stage).Inc()
		m.UnitDuration.Observe(e.Data.Duration.Seconds())
	case progress.EventPoll:
		m.Polls.Inc()

		if e.Data.Outstanding < 0 {
			m.PollErrors.Inc()
			return
		}

		m.Outstanding.Set(float64(e.Data.Outstanding))
	}
}

// ObserveReport records a validation report.
func (m *Metrics) ObserveReport(r *validate.Report) {
	m.ArtifactsExpected.Set(float64(r.Expected))
	m.ArtifactsPresent.Set(float64(r.Present))
	m.ArtifactsMissing.Set(float64(len(r.Missing)))
	m.Anomalies.Set(float64(len(r.Anomalies)))
}

// ObserveAggregate records an aggregation result.
func (m *Metrics) ObserveAggregate(r *aggregate.Result) {
	m.CombinedLines.Set(float64(r.Lines))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Join(ErrWriteTextfile, err)
	}

	return nil
}
