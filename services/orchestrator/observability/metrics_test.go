// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ============================================================================
// Test Helper: Create isolated metrics for testing
// ============================================================================

// newTestMetrics creates an OrchestrationMetrics instance with a custom
// registry. This avoids conflicts with the global Prometheus registry and
// allows parallel testing.
func newTestMetrics(t *testing.T) *OrchestrationMetrics {
	t.Helper()

	reg := prometheus.NewRegistry()

	m := &OrchestrationMetrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "runs_total",
				Help:      "Total orchestration runs by outcome",
			},
			[]string{"outcome"},
		),
		StageDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Latency per pipeline stage in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 1.0},
			},
			[]string{"stage"},
		),
		RunDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "run_duration_seconds",
				Help:      "End-to-end run duration in seconds",
				Buckets:   []float64{0.01, 0.1, 1.0, 10.0},
			},
			[]string{"outcome"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "errors_total",
				Help:      "Failed runs by error code",
			},
			[]string{"error_code"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "active_runs",
				Help:      "Orchestration runs currently in flight",
			},
		),
		SessionAppendErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "session_append_errors_total",
				Help:      "Best-effort session history writes that failed",
			},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.StageDurationSeconds,
		m.RunDurationSeconds,
		m.ErrorsTotal,
		m.ActiveRuns,
		m.SessionAppendErrorsTotal,
	)

	return m
}

func TestRecordRun(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRun(true, 0.5)
	m.RecordRun(true, 1.5)
	m.RecordRun(false, 0.1)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("done")); got != 2 {
		t.Errorf("done runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordError(ErrorCodeNoToolMatched)
	m.RecordError(ErrorCodeNoToolMatched)
	m.RecordError(ErrorCodeToolRejected)

	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("no_tool_matched")); got != 2 {
		t.Errorf("no_tool_matched = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("tool_rejected")); got != 1 {
		t.Errorf("tool_rejected = %v, want 1", got)
	}
}

func TestActiveRunsGauge(t *testing.T) {
	m := newTestMetrics(t)

	m.RunStarted()
	m.RunStarted()
	m.RunEnded()

	if got := testutil.ToFloat64(m.ActiveRuns); got != 1 {
		t.Errorf("ActiveRuns = %v, want 1", got)
	}
}

func TestRecordSessionAppendError(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSessionAppendError()
	m.RecordSessionAppendError()

	if got := testutil.ToFloat64(m.SessionAppendErrorsTotal); got != 2 {
		t.Errorf("SessionAppendErrorsTotal = %v, want 2", got)
	}
}

func TestRecordStageObservations(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordStage("extracting", 0.02)
	m.RecordStage("extracting", 0.04)
	m.RecordStage("executing", 0.5)

	if got := testutil.CollectAndCount(m.StageDurationSeconds); got != 2 {
		t.Errorf("stage series = %d, want 2", got)
	}
}

func TestInitMetricsIdempotent(t *testing.T) {
	first := InitMetrics()
	second := InitMetrics()
	if first != second {
		t.Error("InitMetrics should return the same instance on repeat calls")
	}
}
