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
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// =============================================================================
// Metrics
// =============================================================================

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_extractions_total",
		Help: "Extraction outcomes by effective source",
	}, []string{"source"})

	extractionFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_extraction_fallbacks_total",
		Help: "Model-to-rule fallbacks by failure class",
	}, []string{"reason"})
)

// =============================================================================
// Coordinator
// =============================================================================

// Coordinator runs model-first extraction with a rule fallback.
//
// # Description
//
// Tries the model extractor; on ANY model failure it logs the degradation,
// counts the fallback, and returns the rule extractor's result instead. The
// pipeline therefore always receives an extraction result and never sees a
// model error.
type Coordinator struct {
	model *ModelExtractor
	rule  *RuleExtractor
}

// NewCoordinator wires the two extractors together. model may be nil when no
// backend is configured; every run then takes the rule path.
func NewCoordinator(model *ModelExtractor, rule *RuleExtractor) *Coordinator {
	return &Coordinator{model: model, rule: rule}
}

// Extract returns the best available extraction for the conversation.
func (c *Coordinator) Extract(ctx context.Context, conv *datatypes.ConversationContext) datatypes.ExtractionResult {
	if c.model != nil {
		result, err := c.model.Extract(ctx, conv)
		if err == nil {
			extractionsTotal.WithLabelValues(string(datatypes.ExtractionSourceModel)).Inc()
			return result
		}

		reason := fallbackReason(err)
		slog.Warn("Model extraction degraded, falling back to rules",
			"reason", reason,
			"error", err)
		extractionFallbacks.WithLabelValues(reason).Inc()
	}

	result := c.rule.Extract(ctx, conv)
	extractionsTotal.WithLabelValues(string(datatypes.ExtractionSourceRule)).Inc()
	return result
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrExtractionTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedModelOutput):
		return "malformed_output"
	case errors.Is(err, ErrExtractionUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
