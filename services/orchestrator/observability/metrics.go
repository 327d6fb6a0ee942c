// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring orchestration
// runs. Metrics include:
//   - Run counters (by outcome and error code)
//   - Per-stage latency histograms
//   - Active run gauges
//   - Session store write failures
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "tutor"

// Subsystem for orchestration metrics
const orchestrationSubsystem = "orchestration"

// OrchestrationMetrics holds all Prometheus metrics for pipeline runs.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring orchestration
// throughput and failure modes. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type OrchestrationMetrics struct {
	// RunsTotal counts completed runs by outcome.
	// Labels: outcome (done, failed)
	RunsTotal *prometheus.CounterVec

	// StageDurationSeconds measures per-stage latency.
	// Labels: stage (extracting, selecting, preparing, validating, executing, building)
	StageDurationSeconds *prometheus.HistogramVec

	// RunDurationSeconds measures end-to-end run latency.
	// Labels: outcome (done, failed)
	RunDurationSeconds *prometheus.HistogramVec

	// ErrorsTotal counts failed runs by error code.
	// Labels: error_code (no_tool_matched, invalid_parameters, tool_rejected, tool_execution_failed)
	ErrorsTotal *prometheus.CounterVec

	// ActiveRuns tracks runs currently in flight.
	ActiveRuns prometheus.Gauge

	// SessionAppendErrorsTotal counts best-effort session writes that failed.
	SessionAppendErrorsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of OrchestrationMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *OrchestrationMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Call once at application
// startup; subsequent calls return the existing instance so tests that
// build the service repeatedly do not trip duplicate registration.
//
// # Outputs
//
//   - *OrchestrationMetrics: The initialized metrics instance.
func InitMetrics() *OrchestrationMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}

	DefaultMetrics = &OrchestrationMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "runs_total",
				Help:      "Total orchestration runs by outcome",
			},
			[]string{"outcome"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Latency per pipeline stage in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"stage"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "run_duration_seconds",
				Help:      "End-to-end run duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"outcome"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "errors_total",
				Help:      "Failed runs by error code",
			},
			[]string{"error_code"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "active_runs",
				Help:      "Orchestration runs currently in flight",
			},
		),

		SessionAppendErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestrationSubsystem,
				Name:      "session_append_errors_total",
				Help:      "Best-effort session history writes that failed",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized run failure for metrics.
type ErrorCode string

const (
	// ErrorCodeNoToolMatched indicates no tool cleared the confidence bar.
	ErrorCodeNoToolMatched ErrorCode = "no_tool_matched"

	// ErrorCodeInvalidParameters indicates schema validation failure.
	ErrorCodeInvalidParameters ErrorCode = "invalid_parameters"

	// ErrorCodeToolRejected indicates the tool refused the input.
	ErrorCodeToolRejected ErrorCode = "tool_rejected"

	// ErrorCodeToolExecutionFailed indicates the retry budget ran out.
	ErrorCodeToolExecutionFailed ErrorCode = "tool_execution_failed"

	// ErrorCodeInternal indicates an uncategorized internal failure.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRun records a completed run and its duration.
//
// # Inputs
//
//   - success: Whether the run reached the done stage.
//   - seconds: End-to-end duration.
func (m *OrchestrationMetrics) RecordRun(success bool, seconds float64) {
	outcome := "done"
	if !success {
		outcome = "failed"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDurationSeconds.WithLabelValues(outcome).Observe(seconds)
}

// RecordStage records one stage's latency.
func (m *OrchestrationMetrics) RecordStage(stage string, seconds float64) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordError records a categorized run failure.
func (m *OrchestrationMetrics) RecordError(code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(code)).Inc()
}

// RunStarted increments the active runs gauge.
func (m *OrchestrationMetrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunEnded decrements the active runs gauge.
func (m *OrchestrationMetrics) RunEnded() {
	m.ActiveRuns.Dec()
}

// RecordSessionAppendError counts a failed best-effort history write.
func (m *OrchestrationMetrics) RecordSessionAppendError() {
	m.SessionAppendErrorsTotal.Inc()
}
