// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the orchestration
// endpoints. Every request carries a unique ID and timestamp for audit
// trails and session storage.
package datatypes

// =============================================================================
// Orchestration Request Types
// =============================================================================

// OrchestrateRequest is the request body for POST /v1/orchestrate.
//
// # Description
//
// Carries the conversation context for one pipeline run plus the session the
// run belongs to. RequestID, Timestamp, and SessionID are filled by
// EnsureDefaults when the client omits them.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: optional, must be valid UUID v4 when present
//   - SessionID: optional, storage-safe identifier when present
//   - Context: required, validated recursively (SEC-003/004 limits apply)
type OrchestrateRequest struct {
	RequestID string              `json:"request_id" validate:"omitempty,uuid4"`
	SessionID string              `json:"session_id" validate:"omitempty,sessionid"`
	Timestamp int64               `json:"timestamp" validate:"omitempty,gt=0"`
	Context   ConversationContext `json:"conversation_context" validate:"required"`
}

// Validate validates the OrchestrateRequest fields.
//
// # Outputs
//
//   - error: Non-nil if validation failed, with details about which field
func (r *OrchestrateRequest) Validate() error {
	return orchestratorValidate.Struct(r)
}

// EnsureDefaults populates default values for optional fields.
//
// # Description
//
// Generates RequestID, SessionID, and Timestamp if not provided by the
// client. This ensures all requests have proper identifiers for tracing,
// auditing, and session storage.
func (r *OrchestrateRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.SessionID == "" {
		r.SessionID = generateUUID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = nowUnixMilli()
	}
}

// ExtractRequest is the request body for POST /v1/extract.
// Runs extraction alone, without selection or invocation. Diagnostic surface.
type ExtractRequest struct {
	Context ConversationContext `json:"conversation_context" validate:"required"`
}

// Validate validates the ExtractRequest fields.
func (r *ExtractRequest) Validate() error {
	return orchestratorValidate.Struct(r)
}

// ValidateToolInputRequest is the request body for POST /v1/tools/validate.
type ValidateToolInputRequest struct {
	ToolName string         `json:"tool_name" validate:"required"`
	Input    map[string]any `json:"input" validate:"required"`
}

// Validate validates the ValidateToolInputRequest fields.
func (r *ValidateToolInputRequest) Validate() error {
	return orchestratorValidate.Struct(r)
}

// =============================================================================
// Orchestration Response Types
// =============================================================================

// TraceEntry records one state transition of a run.
//
// # Fields
//
//   - Stage: The stage that just ran (extracting, selecting, ...).
//   - Outcome: "ok" or "failed".
//   - Detail: Optional human-readable note (attempt counts, error cause).
//   - Timestamp: Unix milliseconds UTC when the transition happened.
type TraceEntry struct {
	Stage     string `json:"stage"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ToolResult is the outcome of invoking the selected tool.
type ToolResult struct {
	ToolName        string         `json:"tool_name"`
	Success         bool           `json:"success"`
	Output          map[string]any `json:"output,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Attempts        int            `json:"attempts"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

// RunError is the structured error attached to a failed run.
//
// Code is a stable machine-readable identifier (no_tool_matched,
// invalid_parameters, tool_rejected, tool_execution_failed, ...).
// Fields is populated for invalid_parameters only.
type RunError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// OrchestrateResponse is the response body for POST /v1/orchestrate.
//
// # Description
//
// Every response includes a unique ID and timestamp for audit trails and
// session storage. A failed run still returns 200-shaped structure with the
// Error field set and a reasoning string naming the stage that failed.
//
// # Database Schema Alignment
//
//   - ResponseID: Primary key for the response record
//   - RequestID: Correlates with the request record
//   - SessionID: Groups runs into a tutoring session
type OrchestrateResponse struct {
	ResponseID   string            `json:"response_id"`
	RequestID    string            `json:"request_id"`
	SessionID    string            `json:"session_id"`
	Timestamp    int64             `json:"timestamp"`
	SelectedTool string            `json:"selected_tool,omitempty"`
	Extraction   *ExtractionResult `json:"extraction,omitempty"`
	ToolResult   *ToolResult       `json:"tool_result,omitempty"`
	Reasoning    string            `json:"reasoning"`
	Trace        []TraceEntry      `json:"trace"`
	Error        *RunError         `json:"error,omitempty"`
}

// NewOrchestrateResponse creates a response shell with auto-generated
// ID and timestamp.
//
// # Inputs
//
//   - requestID: The request ID to echo back for correlation
//   - sessionID: The session the run belongs to
//
// # Outputs
//
//   - *OrchestrateResponse: A new response with ResponseID and Timestamp set
func NewOrchestrateResponse(requestID, sessionID string) *OrchestrateResponse {
	return &OrchestrateResponse{
		ResponseID: generateUUID(),
		RequestID:  requestID,
		SessionID:  sessionID,
		Timestamp:  nowUnixMilli(),
	}
}
