// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/extraction"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Helpers
// =============================================================================

func testRegistry(t *testing.T) *registry.ToolRegistry {
	t.Helper()
	reg, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load catalogue: %v", err)
	}
	return reg
}

func testEngine(t *testing.T, store session.Store) *workflow.Engine {
	t.Helper()
	reg := testRegistry(t)

	inv, err := invoker.New(invoker.NewLocalCapability(), invoker.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
		JitterFactor:   0,
	})
	if err != nil {
		t.Fatalf("failed to build invoker: %v", err)
	}

	extractor := extraction.NewCoordinator(nil, extraction.NewRuleExtractor(reg))
	engine, err := workflow.NewEngine(reg, extractor, inv, store, nil)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func testStore(t *testing.T) *session.BadgerStore {
	t.Helper()
	store, err := session.OpenBadgerStore("", time.Hour, slog.Default())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func orchestrateBody(message string) map[string]any {
	return map[string]any{
		"conversation_context": map[string]any{
			"student_message": message,
			"student_profile": map[string]any{
				"name":          "Priya",
				"mastery_level": 5,
			},
		},
	}
}

// =============================================================================
// Orchestrate Handler
// =============================================================================

func TestHandleOrchestrate(t *testing.T) {
	router := gin.New()
	router.POST("/v1/orchestrate", HandleOrchestrate(testEngine(t, nil)))

	t.Run("successful run", func(t *testing.T) {
		w := postJSON(t, router, "/v1/orchestrate", orchestrateBody("make 5 flashcards about algebra"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp datatypes.OrchestrateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.SelectedTool != "flashcard_generator" {
			t.Errorf("expected flashcard_generator, got %q", resp.SelectedTool)
		}
		if resp.Error != nil {
			t.Errorf("unexpected run error: %+v", resp.Error)
		}
		if resp.ResponseID == "" || resp.RequestID == "" || resp.SessionID == "" {
			t.Error("expected response, request, and session IDs to be filled")
		}
	})

	t.Run("pipeline failure still returns 200", func(t *testing.T) {
		w := postJSON(t, router, "/v1/orchestrate", orchestrateBody("zzzz qqqq xxxx"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var resp datatypes.OrchestrateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != "no_tool_matched" {
			t.Errorf("expected no_tool_matched error, got %+v", resp.Error)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/orchestrate", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("invalid request is 422", func(t *testing.T) {
		body := map[string]any{
			"conversation_context": map[string]any{
				"student_message": "help me study",
				"student_profile": map[string]any{
					"name":          "Priya",
					"mastery_level": 99,
				},
			},
		}
		w := postJSON(t, router, "/v1/orchestrate", body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
	})
}

// =============================================================================
// Extract Handler
// =============================================================================

func TestHandleExtract(t *testing.T) {
	reg := testRegistry(t)
	extractor := extraction.NewCoordinator(nil, extraction.NewRuleExtractor(reg))

	router := gin.New()
	router.POST("/v1/extract", HandleExtract(extractor))

	w := postJSON(t, router, "/v1/extract", orchestrateBody("explain photosynthesis to me"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Extraction datatypes.ExtractionResult `json:"extraction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Extraction.ToolName != "concept_explainer" {
		t.Errorf("expected concept_explainer, got %q", resp.Extraction.ToolName)
	}
	if resp.Extraction.Source != datatypes.ExtractionSourceRule {
		t.Errorf("expected rule source, got %q", resp.Extraction.Source)
	}
}

// =============================================================================
// Tools Handlers
// =============================================================================

func TestHandleListTools(t *testing.T) {
	router := gin.New()
	router.GET("/v1/tools", HandleListTools(testRegistry(t)))

	w := getPath(router, "/v1/tools")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Tools []toolSummary `json:"tools"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("expected 3 tools, got %d", resp.Count)
	}
	for _, tool := range resp.Tools {
		if len(tool.Required) == 0 {
			t.Errorf("tool %s has no required parameters", tool.Name)
		}
	}
}

func TestHandleValidateToolInput(t *testing.T) {
	router := gin.New()
	router.POST("/v1/tools/validate", HandleValidateToolInput(testRegistry(t)))

	t.Run("valid input", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tools/validate", map[string]any{
			"tool_name": "flashcard_generator",
			"input": map[string]any{
				"topic":      "algebra",
				"count":      5,
				"difficulty": "easy",
				"subject":    "math",
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var outcome struct {
			Valid bool `json:"valid"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
			t.Fatalf("failed to decode outcome: %v", err)
		}
		if !outcome.Valid {
			t.Errorf("expected valid outcome: %s", w.Body.String())
		}
	})

	t.Run("invalid input reports fields", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tools/validate", map[string]any{
			"tool_name": "flashcard_generator",
			"input": map[string]any{
				"topic": "algebra",
				"count": 500,
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var outcome struct {
			Valid  bool                  `json:"valid"`
			Errors []datatypes.FieldError `json:"errors"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
			t.Fatalf("failed to decode outcome: %v", err)
		}
		if outcome.Valid {
			t.Error("expected invalid outcome")
		}
		if len(outcome.Errors) == 0 {
			t.Error("expected field errors")
		}
	})

	t.Run("unknown tool is 404", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tools/validate", map[string]any{
			"tool_name": "essay_grader",
			"input":     map[string]any{},
		})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("missing tool name is 422", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tools/validate", map[string]any{
			"input": map[string]any{"topic": "algebra"},
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", w.Code)
		}
	})
}

// =============================================================================
// Session Handlers
// =============================================================================

func TestHandleSessionHistory(t *testing.T) {
	store := testStore(t)

	router := gin.New()
	router.GET("/v1/sessions/:sessionId/history", HandleSessionHistory(store))

	record := datatypes.NewSessionRecord("sess-42", "make 5 flashcards about algebra")
	record.Outcome = "done"
	if err := store.Append(context.Background(), record); err != nil {
		t.Fatalf("failed to append record: %v", err)
	}

	t.Run("returns records", func(t *testing.T) {
		w := getPath(router, "/v1/sessions/sess-42/history")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			SessionID string                    `json:"session_id"`
			Records   []datatypes.SessionRecord `json:"records"`
			Count     int                       `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Count != 1 || len(resp.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", resp.Count)
		}
		if resp.Records[0].Utterance != "make 5 flashcards about algebra" {
			t.Errorf("unexpected utterance %q", resp.Records[0].Utterance)
		}
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		w := getPath(router, "/v1/sessions/sess-other/history")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Count != 0 {
			t.Errorf("expected 0 records, got %d", resp.Count)
		}
	})

	t.Run("invalid session id is 400", func(t *testing.T) {
		w := getPath(router, fmt.Sprintf("/v1/sessions/%s/history", "bad..id"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestHandleSessionHistory_StoreDisabled(t *testing.T) {
	router := gin.New()
	router.GET("/v1/sessions/:sessionId/history", HandleSessionHistory(nil))

	w := getPath(router, "/v1/sessions/sess-42/history")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestHandleSessionAnalytics(t *testing.T) {
	store := testStore(t)

	router := gin.New()
	router.GET("/v1/sessions/:sessionId/analytics", HandleSessionAnalytics(store))

	for i := 0; i < 2; i++ {
		record := datatypes.NewSessionRecord("sess-a", "flashcards please")
		record.Extraction = &datatypes.ExtractionResult{ToolName: "flashcard_generator"}
		record.Outcome = "done"
		if err := store.Append(context.Background(), record); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
	}

	w := getPath(router, "/v1/sessions/sess-a/analytics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var analytics datatypes.SessionAnalytics
	if err := json.Unmarshal(w.Body.Bytes(), &analytics); err != nil {
		t.Fatalf("failed to decode analytics: %v", err)
	}
	if analytics.MostUsedTool != "flashcard_generator" {
		t.Errorf("expected flashcard_generator, got %q", analytics.MostUsedTool)
	}
	if analytics.TotalRuns != 2 {
		t.Errorf("expected 2 runs, got %d", analytics.TotalRuns)
	}
}

// =============================================================================
// Health Handler
// =============================================================================

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck(testRegistry(t)))

	w := getPath(router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Tools  int    `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Tools != 3 {
		t.Errorf("expected 3 tools, got %d", resp.Tools)
	}
}
