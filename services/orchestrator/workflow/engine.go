// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/adapt"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
)

var engineTracer = otel.Tracer("tutor.orchestrator.workflow")

// Extractor produces the run's extraction result. Satisfied by
// extraction.Coordinator.
type Extractor interface {
	Extract(ctx context.Context, conv *datatypes.ConversationContext) datatypes.ExtractionResult
}

// ToolInvoker executes the selected tool. Satisfied by invoker.Invoker.
type ToolInvoker interface {
	Invoke(ctx context.Context, toolName string, input map[string]any) (datatypes.ToolResult, error)
}

// Engine drives one orchestration run through the pipeline stages.
//
// # Description
//
// Stages run strictly in order: extracting, selecting, preparing,
// validating, executing, building. Each transition appends a TraceEntry;
// the first failure short-circuits the rest and produces a structured
// RunError. A completed run (either way) is appended to the session store
// best-effort.
//
// # Thread Safety
//
// Safe for concurrent use; per-run state lives on the stack.
type Engine struct {
	registry  *registry.ToolRegistry
	extractor Extractor
	invoker   ToolInvoker
	sessions  session.Store
	metrics   *observability.OrchestrationMetrics
}

// NewEngine wires the pipeline. sessions may be nil (history disabled);
// metrics may be nil (recording skipped).
func NewEngine(reg *registry.ToolRegistry, extractor Extractor, inv ToolInvoker, sessions session.Store, metrics *observability.OrchestrationMetrics) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor must not be nil")
	}
	if inv == nil {
		return nil, fmt.Errorf("invoker must not be nil")
	}
	return &Engine{
		registry:  reg,
		extractor: extractor,
		invoker:   inv,
		sessions:  sessions,
		metrics:   metrics,
	}, nil
}

// Run executes one orchestration request end to end.
//
// Always returns a response: failures are reported through the Error field
// and the trace, never as a Go error to the caller.
func (e *Engine) Run(ctx context.Context, req *datatypes.OrchestrateRequest) *datatypes.OrchestrateResponse {
	ctx, span := engineTracer.Start(ctx, "Engine.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.request_id", req.RequestID),
		attribute.String("run.session_id", req.SessionID),
	)

	if e.metrics != nil {
		e.metrics.RunStarted()
		defer e.metrics.RunEnded()
	}
	runStart := time.Now()

	state := NewState()
	resp := datatypes.NewOrchestrateResponse(req.RequestID, req.SessionID)
	var reasoning []string

	// --- extracting ---
	extraction := e.timedStage(state, func() datatypes.ExtractionResult {
		return e.extractor.Extract(ctx, &req.Context)
	})
	resp.Extraction = &extraction
	state.Complete(fmt.Sprintf("source=%s confidence=%.2f", extraction.Source, extraction.Confidence))
	if extraction.Reasoning != "" {
		reasoning = append(reasoning, extraction.Reasoning)
	}

	// --- selecting ---
	stageStart := time.Now()
	selection, err := selectTool(e.registry, extraction, req.Context.StudentMessage)
	e.recordStage(state, stageStart)
	if err != nil {
		state.Fail(err.Error())
		e.finishFailed(ctx, span, resp, req, state, runStart, &datatypes.RunError{
			Code:    string(observability.ErrorCodeNoToolMatched),
			Message: "No educational tool matched the request. Try asking for notes, flashcards, or an explanation.",
		}, reasoning)
		return resp
	}
	resp.SelectedTool = selection.ToolName
	span.SetAttributes(attribute.String("run.tool", selection.ToolName))
	registry.RecordRoutingDecision(selection.ToolName, string(extraction.Source))
	state.Complete(selection.Detail)

	spec, _ := e.registry.Get(selection.ToolName)

	// --- preparing ---
	stageStart = time.Now()
	adapted := adapt.Apply(extraction.Parameters, req.Context.StudentProfile, spec)
	input := buildToolInput(selection.ToolName, adapted.Parameters, spec)
	e.recordStage(state, stageStart)
	state.Complete(fmt.Sprintf("%d parameter(s) prepared", len(input)))
	reasoning = append(reasoning, adapted.Notes...)

	// --- validating ---
	stageStart = time.Now()
	outcome, err := e.registry.ValidateInput(selection.ToolName, input)
	e.recordStage(state, stageStart)
	if err != nil || !outcome.Valid {
		detail := ErrInvalidParameters.Error()
		runErr := &datatypes.RunError{
			Code:    string(observability.ErrorCodeInvalidParameters),
			Message: "Extracted parameters did not satisfy the tool's schema.",
		}
		if err != nil {
			detail = err.Error()
		} else {
			runErr.Fields = outcome.Errors
		}
		state.Fail(detail)
		e.finishFailed(ctx, span, resp, req, state, runStart, runErr, reasoning)
		return resp
	}
	state.Complete("input conforms to tool schema")

	// --- executing ---
	stageStart = time.Now()
	toolResult, err := e.invoker.Invoke(ctx, selection.ToolName, input)
	e.recordStage(state, stageStart)
	resp.ToolResult = &toolResult
	if err != nil {
		state.Fail(err.Error())
		e.finishFailed(ctx, span, resp, req, state, runStart, invocationError(err), reasoning)
		return resp
	}
	state.Complete(fmt.Sprintf("succeeded after %d attempt(s)", toolResult.Attempts))

	// --- building ---
	stageStart = time.Now()
	resp.Reasoning = strings.Join(reasoning, " ")
	e.recordStage(state, stageStart)
	state.Complete("response assembled")

	resp.Trace = state.Trace()
	if e.metrics != nil {
		e.metrics.RecordRun(true, time.Since(runStart).Seconds())
	}
	e.appendHistory(ctx, req, resp, "done")
	return resp
}

// timedStage wraps the extracting stage so its duration lands in metrics
// without cluttering Run.
func (e *Engine) timedStage(state *State, fn func() datatypes.ExtractionResult) datatypes.ExtractionResult {
	start := time.Now()
	result := fn()
	e.recordStage(state, start)
	return result
}

func (e *Engine) recordStage(state *State, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordStage(string(state.Current()), time.Since(start).Seconds())
	}
}

// finishFailed stamps the failure onto the response and persists the run.
func (e *Engine) finishFailed(ctx context.Context, span trace.Span, resp *datatypes.OrchestrateResponse, req *datatypes.OrchestrateRequest, state *State, runStart time.Time, runErr *datatypes.RunError, reasoning []string) {

	resp.Error = runErr
	reasoning = append(reasoning, fmt.Sprintf("Run failed during the %s stage: %s.", lastFailedStage(state), runErr.Message))
	resp.Reasoning = strings.Join(reasoning, " ")
	resp.Trace = state.Trace()

	span.SetStatus(codes.Error, runErr.Code)
	if e.metrics != nil {
		e.metrics.RecordRun(false, time.Since(runStart).Seconds())
		e.metrics.RecordError(observability.ErrorCode(runErr.Code))
	}
	e.appendHistory(ctx, req, resp, "failed")
}

// lastFailedStage names the stage that broke, for the reasoning text.
func lastFailedStage(state *State) string {
	trace := state.Trace()
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Outcome == "failed" {
			return trace[i].Stage
		}
	}
	return string(state.Current())
}

// appendHistory persists the run best-effort. Failures are logged and
// counted, never surfaced.
func (e *Engine) appendHistory(ctx context.Context, req *datatypes.OrchestrateRequest, resp *datatypes.OrchestrateResponse, outcome string) {
	if e.sessions == nil || req.SessionID == "" {
		return
	}

	record := datatypes.NewSessionRecord(req.SessionID, req.Context.StudentMessage)
	record.Extraction = resp.Extraction
	record.ToolResult = resp.ToolResult
	record.Outcome = outcome

	if err := e.sessions.Append(ctx, record); err != nil {
		slog.Warn("Failed to append session history",
			"session_id", req.SessionID,
			"request_id", req.RequestID,
			"error", err)
		if e.metrics != nil {
			e.metrics.RecordSessionAppendError()
		}
	}
}

// invocationError maps invoker failures onto run error codes.
func invocationError(err error) *datatypes.RunError {
	switch {
	case errors.Is(err, invoker.ErrToolRejected):
		return &datatypes.RunError{
			Code:    string(observability.ErrorCodeToolRejected),
			Message: "The tool rejected the prepared input.",
		}
	case errors.Is(err, invoker.ErrToolExecutionFailed):
		return &datatypes.RunError{
			Code:    string(observability.ErrorCodeToolExecutionFailed),
			Message: "The tool kept failing after all retry attempts.",
		}
	default:
		return &datatypes.RunError{
			Code:    string(observability.ErrorCodeInternal),
			Message: err.Error(),
		}
	}
}

// buildToolInput finalizes the tool's input map.
//
// Required string parameters that extraction could not fill get neutral
// fallbacks so a vague request still produces usable output rather than a
// validation failure.
func buildToolInput(toolName string, params map[string]any, spec *registry.ToolSpec) map[string]any {
	input := make(map[string]any, len(params))
	for k, v := range params {
		input[k] = v
	}

	topic, _ := input["topic"].(string)
	subject, _ := input["subject"].(string)

	if spec == nil {
		return input
	}
	for _, p := range spec.Required {
		if _, ok := input[p.Name]; ok {
			continue
		}
		if p.Type != registry.ParamTypeString {
			continue
		}
		switch p.Name {
		case "topic":
			input["topic"] = "General Topic"
		case "subject":
			input["subject"] = "General Subject"
		case "note_taking_style":
			input["note_taking_style"] = "structured"
		case "concept_to_explain":
			if topic != "" {
				input["concept_to_explain"] = topic
			} else {
				input["concept_to_explain"] = "General Concept"
			}
		case "current_topic":
			switch {
			case topic != "":
				input["current_topic"] = topic
			case subject != "":
				input["current_topic"] = subject
			default:
				input["current_topic"] = "General Topic"
			}
		}
	}

	// The explainer's schema has no topic/subject fields; drop anything the
	// tool does not declare so validation never sees unknown keys.
	for name := range input {
		if _, declared := spec.Param(name); !declared {
			delete(input, name)
		}
	}

	return input
}
