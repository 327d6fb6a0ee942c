// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the orchestrator's HTTP API.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/workflow"
)

var handlerTracer = otel.Tracer("tutor.orchestrator.handlers")

// HandleOrchestrate runs the full pipeline for one student message.
//
// POST /v1/orchestrate
//
// Pipeline failures (no tool matched, invalid parameters, tool errors) are
// domain outcomes, not transport errors: they come back as 200 with the
// Error field set. Only malformed or invalid requests get 4xx.
func HandleOrchestrate(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleOrchestrate")
		defer span.End()

		var req datatypes.OrchestrateRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse orchestrate request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("Orchestrate request failed validation", "error", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		resp := engine.Run(ctx, &req)
		c.JSON(http.StatusOK, resp)
	}
}

// HandleExtract runs extraction alone, without selection or invocation.
//
// POST /v1/extract
//
// Diagnostic surface for tuning keyword lexicons and model prompts.
func HandleExtract(extractor workflow.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleExtract")
		defer span.End()

		var req datatypes.ExtractRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		result := extractor.Extract(ctx, &req.Context)
		c.JSON(http.StatusOK, gin.H{"extraction": result})
	}
}
