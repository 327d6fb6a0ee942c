// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package invoker executes the selected tool with bounded retries.
//
// Transient failures (network errors, 429s, 5xx responses) are retried with
// exponential backoff and jitter; deterministic rejections are surfaced
// immediately. The caller receives a ToolResult either way.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

var invokerTracer = otel.Tracer("tutor.orchestrator.invoker")

var (
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_tool_invocations_total",
		Help: "Tool invocation outcomes",
	}, []string{"tool", "outcome"})

	toolInvocationAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutor_tool_invocation_attempts",
		Help:    "Attempts consumed per invocation",
		Buckets: []float64{1, 2, 3, 4, 5},
	}, []string{"tool"})

	toolInvocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutor_tool_invocation_duration_seconds",
		Help:    "Wall time per invocation including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
)

// Capability executes a named tool against validated input.
//
// Implementations classify their failures: transient ones are wrapped with
// MarkTransient, deterministic refusals wrap ErrToolRejected. Anything else
// is treated as permanent.
type Capability interface {
	Execute(ctx context.Context, toolName string, input map[string]any) (map[string]any, error)
}

// Invoker drives a Capability through the retry policy.
type Invoker struct {
	capability Capability
	retry      RetryConfig
}

// New creates an invoker. A zero RetryConfig is replaced with defaults.
func New(capability Capability, retry RetryConfig) (*Invoker, error) {
	if capability == nil {
		return nil, fmt.Errorf("capability must not be nil")
	}
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if err := retry.Validate(); err != nil {
		return nil, err
	}
	return &Invoker{capability: capability, retry: retry}, nil
}

// Invoke runs the tool and reports the outcome.
//
// # Outputs
//
// A ToolResult is always returned, success or not; Attempts and
// ExecutionTimeMs are filled in either case. The error is nil on success,
// ErrToolRejected on deterministic refusal, ErrToolExecutionFailed once the
// retry budget is exhausted, or the context error on cancellation.
func (inv *Invoker) Invoke(ctx context.Context, toolName string, input map[string]any) (datatypes.ToolResult, error) {
	ctx, span := invokerTracer.Start(ctx, "Invoker.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolName))

	start := time.Now()
	var output map[string]any

	retryResult, err := Retry(ctx, inv.retry, func(ctx context.Context, attempt int) error {
		out, execErr := inv.capability.Execute(ctx, toolName, input)
		if execErr != nil {
			return execErr
		}
		output = out
		return nil
	})

	elapsed := time.Since(start)
	result := datatypes.ToolResult{
		ToolName:        toolName,
		Attempts:        retryResult.Attempts,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}

	toolInvocationAttempts.WithLabelValues(toolName).Observe(float64(retryResult.Attempts))
	toolInvocationDuration.WithLabelValues(toolName).Observe(elapsed.Seconds())

	if err == nil {
		result.Success = true
		result.Output = output
		span.SetAttributes(attribute.Int("tool.attempts", retryResult.Attempts))
		toolInvocations.WithLabelValues(toolName, "ok").Inc()
		return result, nil
	}

	result.ErrorMessage = err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	switch {
	case errors.Is(err, ErrToolRejected):
		toolInvocations.WithLabelValues(toolName, "rejected").Inc()
		return result, err
	case ctx.Err() != nil:
		// Caller cancellation only. A tool-side timeout can carry
		// context.DeadlineExceeded in the attempt's error chain while our
		// context is still live; that is an execution failure, not a cancel.
		toolInvocations.WithLabelValues(toolName, "cancelled").Inc()
		return result, ctx.Err()
	default:
		toolInvocations.WithLabelValues(toolName, "failed").Inc()
		return result, fmt.Errorf("%s failed after %d attempts: %w", toolName, retryResult.Attempts, ErrToolExecutionFailed)
	}
}
