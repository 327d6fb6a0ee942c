// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

var modelTracer = otel.Tracer("tutor.orchestrator.extraction")

const (
	// DefaultModelTimeout bounds a single model extraction call. The rule
	// extractor covers for anything slower.
	DefaultModelTimeout = 8 * time.Second

	// DefaultModelConfidence is assumed when the model omits a confidence
	// value from its output.
	DefaultModelConfidence = 0.75

	// historyWindow is how many trailing messages feed the prompt.
	historyWindow = 5

	maxPromptTemperature = float32(0.1)
)

// modelExtractionPayload is the JSON contract the model is prompted to emit.
type modelExtractionPayload struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Confidence *float64       `json:"confidence,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// ModelExtractor asks an LLM to pick a tool and fill its parameters.
//
// # Description
//
// Builds a structured prompt from the tool catalogue, the student profile,
// and a trailing window of chat history, then parses the model's JSON reply.
// All failures map to one of the package sentinels so the coordinator can
// classify and fall back.
//
// # Limitations
//
// Never validates parameter values against the catalogue; that is the
// workflow's validating stage.
type ModelExtractor struct {
	client   llm.LLMClient
	registry *registry.ToolRegistry
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewModelExtractor creates a model extractor. A nil client is permitted and
// yields ErrExtractionUnavailable on every Extract call, which keeps wiring
// uniform for deployments without a model backend. A nil limiter disables
// rate limiting.
func NewModelExtractor(client llm.LLMClient, reg *registry.ToolRegistry, limiter *rate.Limiter, timeout time.Duration) *ModelExtractor {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &ModelExtractor{
		client:   client,
		registry: reg,
		limiter:  limiter,
		timeout:  timeout,
	}
}

// Extract asks the model for a tool and parameters.
func (e *ModelExtractor) Extract(ctx context.Context, conv *datatypes.ConversationContext) (datatypes.ExtractionResult, error) {
	ctx, span := modelTracer.Start(ctx, "ModelExtractor.Extract")
	defer span.End()

	if e.client == nil {
		span.SetStatus(codes.Error, "no model backend configured")
		return datatypes.ExtractionResult{}, ErrExtractionUnavailable
	}
	if e.limiter != nil && !e.limiter.Allow() {
		span.SetStatus(codes.Error, "rate limit exceeded")
		return datatypes.ExtractionResult{}, fmt.Errorf("extraction rate limit exceeded: %w", ErrExtractionUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := e.buildPrompt(conv)
	temp := maxPromptTemperature
	raw, err := e.client.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			span.SetStatus(codes.Error, "model call timed out")
			return datatypes.ExtractionResult{}, fmt.Errorf("model call exceeded %s: %w", e.timeout, ErrExtractionTimeout)
		}
		span.SetStatus(codes.Error, err.Error())
		return datatypes.ExtractionResult{}, fmt.Errorf("model call failed: %w", ErrExtractionUnavailable)
	}

	result, err := parseModelOutput(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed model output")
		return datatypes.ExtractionResult{}, err
	}

	if _, known := e.registry.Get(result.ToolName); !known {
		span.SetStatus(codes.Error, "model chose unknown tool")
		return datatypes.ExtractionResult{}, fmt.Errorf("model chose unknown tool %q: %w", result.ToolName, ErrMalformedModelOutput)
	}

	span.SetAttributes(
		attribute.String("extraction.tool", result.ToolName),
		attribute.Float64("extraction.confidence", result.Confidence),
	)
	return result, nil
}

// buildPrompt renders the extraction prompt: catalogue, profile, recent
// history, and the utterance, with strict JSON output instructions.
func (e *ModelExtractor) buildPrompt(conv *datatypes.ConversationContext) string {
	var b strings.Builder

	b.WriteString("You select an educational tool and extract its parameters from a student's message.\n\n")
	b.WriteString("Available tools:\n")
	for _, spec := range e.registry.Specs() {
		b.WriteString(fmt.Sprintf("- %s: %s\n", spec.Name, spec.Description))
		for _, p := range spec.Required {
			b.WriteString(fmt.Sprintf("    required %s (%s)", p.Name, p.Type))
			if len(p.Enum) > 0 {
				b.WriteString(" one of " + strings.Join(p.Enum, "|"))
			}
			b.WriteString("\n")
		}
		for _, p := range spec.Optional {
			b.WriteString(fmt.Sprintf("    optional %s (%s)\n", p.Name, p.Type))
		}
	}

	b.WriteString(fmt.Sprintf("\nStudent: %s, grade %d, learning style %s, mastery level %d/10",
		conv.StudentProfile.Name,
		conv.StudentProfile.GradeLevel,
		conv.StudentProfile.LearningStyle,
		conv.StudentProfile.MasteryLevel))
	if len(conv.StudentProfile.EmotionalState) > 0 {
		b.WriteString(", emotional state: " + strings.Join(conv.StudentProfile.EmotionalState, ", "))
	}
	b.WriteString("\n")

	if history := conv.RecentHistory(historyWindow); len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range history {
			b.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
	}

	b.WriteString(fmt.Sprintf("\nStudent message: %s\n\n", conv.StudentMessage))
	b.WriteString("Respond with ONLY a JSON object, no prose and no markdown fences:\n")
	b.WriteString(`{"tool_name": "...", "parameters": {...}, "confidence": 0.0-1.0, "reasoning": "..."}`)
	b.WriteString("\n")

	return b.String()
}

// parseModelOutput decodes the model reply, tolerating markdown code fences
// and leading prose before the first brace.
func parseModelOutput(raw string) (datatypes.ExtractionResult, error) {
	cleaned := stripCodeFences(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return datatypes.ExtractionResult{}, fmt.Errorf("no JSON object in model reply: %w", ErrMalformedModelOutput)
	}

	var payload modelExtractionPayload
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return datatypes.ExtractionResult{}, fmt.Errorf("decoding model reply: %v: %w", err, ErrMalformedModelOutput)
	}
	if payload.ToolName == "" {
		return datatypes.ExtractionResult{}, fmt.Errorf("model reply missing tool_name: %w", ErrMalformedModelOutput)
	}

	confidence := DefaultModelConfidence
	if payload.Confidence != nil {
		confidence = *payload.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
	}

	params := payload.Parameters
	if params == nil {
		params = map[string]any{}
	}

	return datatypes.ExtractionResult{
		ToolName:   payload.ToolName,
		Parameters: params,
		Confidence: confidence,
		Reasoning:  payload.Reasoning,
		Source:     datatypes.ExtractionSourceModel,
	}, nil
}

func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
