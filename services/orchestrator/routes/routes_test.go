// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/extraction"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/workflow"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// setupTestRouter wires the full route surface against in-process components.
func setupTestRouter(t *testing.T, enableMetrics bool) *gin.Engine {
	t.Helper()

	reg, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load catalogue: %v", err)
	}

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

	store, err := session.OpenBadgerStore("", time.Hour, slog.Default())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	extractor := extraction.NewCoordinator(nil, extraction.NewRuleExtractor(reg))
	engine, err := workflow.NewEngine(reg, extractor, inv, store, nil)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	router := gin.New()
	SetupRoutes(router, reg, engine, extractor, store, enableMetrics)
	return router
}

func request(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ============================================================================
// Route Registration Tests
// ============================================================================

// TestSetupRoutes_AllRoutesRegistered verifies every endpoint is reachable.
func TestSetupRoutes_AllRoutesRegistered(t *testing.T) {
	router := setupTestRouter(t, true)

	orchestrateBody, _ := json.Marshal(map[string]any{
		"conversation_context": map[string]any{
			"student_message": "make flashcards about algebra",
			"student_profile": map[string]any{
				"name":          "Priya",
				"mastery_level": 5,
			},
		},
	})
	validateBody, _ := json.Marshal(map[string]any{
		"tool_name": "note_maker",
		"input": map[string]any{
			"topic":             "algebra",
			"subject":           "math",
			"note_taking_style": "outline",
		},
	})

	tests := []struct {
		name       string
		method     string
		path       string
		body       []byte
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", nil, http.StatusOK},
		{"orchestrate", http.MethodPost, "/v1/orchestrate", orchestrateBody, http.StatusOK},
		{"extract", http.MethodPost, "/v1/extract", orchestrateBody, http.StatusOK},
		{"list tools", http.MethodGet, "/v1/tools", nil, http.StatusOK},
		{"validate tool input", http.MethodPost, "/v1/tools/validate", validateBody, http.StatusOK},
		{"session history", http.MethodGet, "/v1/sessions/sess-1/history", nil, http.StatusOK},
		{"session analytics", http.MethodGet, "/v1/sessions/sess-1/analytics", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("%s %s: expected %d, got %d: %s",
					tt.method, tt.path, tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

// TestSetupRoutes_MetricsDisabled verifies /metrics is absent when disabled.
func TestSetupRoutes_MetricsDisabled(t *testing.T) {
	router := setupTestRouter(t, false)

	w := request(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for disabled metrics, got %d", w.Code)
	}
}

// TestSetupRoutes_UnknownRoute verifies unregistered paths 404.
func TestSetupRoutes_UnknownRoute(t *testing.T) {
	router := setupTestRouter(t, true)

	w := request(router, http.MethodGet, "/v1/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// TestSetupRoutes_NilStore verifies session endpoints degrade to 503.
func TestSetupRoutes_NilStore(t *testing.T) {
	reg, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load catalogue: %v", err)
	}
	inv, err := invoker.New(invoker.NewLocalCapability(), invoker.DefaultRetryConfig())
	if err != nil {
		t.Fatalf("failed to build invoker: %v", err)
	}
	extractor := extraction.NewCoordinator(nil, extraction.NewRuleExtractor(reg))
	engine, err := workflow.NewEngine(reg, extractor, inv, nil, nil)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	router := gin.New()
	SetupRoutes(router, reg, engine, extractor, nil, false)

	w := request(router, http.MethodGet, "/v1/sessions/sess-1/history", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
