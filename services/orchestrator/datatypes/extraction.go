// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ExtractionSource identifies which extractor produced a result.
type ExtractionSource string

const (
	// ExtractionSourceModel marks results produced by the model-based extractor.
	ExtractionSourceModel ExtractionSource = "model"

	// ExtractionSourceRule marks results produced by the rule-based extractor.
	ExtractionSourceRule ExtractionSource = "rule"
)

// ExtractionResult is the outcome of parameter extraction for one run.
//
// # Description
//
// ToolName is empty when no tool could be inferred; Confidence is then 0.0.
// Parameters holds candidate tool parameters keyed by the catalogue's
// parameter names. Values are dynamically typed because each tool declares
// its own schema; the schema validator type-checks them before invocation.
//
// # Fields
//
//   - ToolName: Inferred tool, or "" when nothing matched.
//   - Parameters: Candidate parameters, may be partial or over-complete.
//   - Confidence: 0.0-1.0; rule results with a tool are clamped to >= 0.3.
//   - Reasoning: Human-readable explanation of the inference.
//   - Source: Which extractor produced the result.
type ExtractionResult struct {
	ToolName   string           `json:"tool_name,omitempty"`
	Parameters map[string]any   `json:"parameters"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Source     ExtractionSource `json:"source"`
}

// FieldError describes a single parameter validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
