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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

// toolSummary is the listing shape for one catalogue entry.
type toolSummary struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Keywords    []string    `json:"keywords"`
	Required    []paramView `json:"required"`
	Optional    []paramView `json:"optional,omitempty"`
}

type paramView struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Enum    []string `json:"enum,omitempty"`
	Min     *int     `json:"min,omitempty"`
	Max     *int     `json:"max,omitempty"`
	Default any      `json:"default,omitempty"`
}

// HandleListTools returns the tool catalogue.
//
// GET /v1/tools
func HandleListTools(reg *registry.ToolRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		specs := reg.Specs()
		tools := make([]toolSummary, 0, len(specs))
		for _, spec := range specs {
			tools = append(tools, toolSummary{
				Name:        spec.Name,
				Description: spec.Description,
				Keywords:    spec.Keywords,
				Required:    paramViews(spec.Required),
				Optional:    paramViews(spec.Optional),
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"tools":     tools,
			"count":     len(tools),
			"loaded_at": reg.LoadedAt(),
		})
	}
}

func paramViews(params []registry.ParamSpec) []paramView {
	views := make([]paramView, 0, len(params))
	for _, p := range params {
		views = append(views, paramView{
			Name:    p.Name,
			Type:    string(p.Type),
			Enum:    p.Enum,
			Min:     p.Min,
			Max:     p.Max,
			Default: p.Default,
		})
	}
	return views
}

// HandleValidateToolInput checks an input map against a tool's schema
// without invoking anything.
//
// POST /v1/tools/validate
func HandleValidateToolInput(reg *registry.ToolRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := handlerTracer.Start(c.Request.Context(), "HandleValidateToolInput")
		defer span.End()

		var req datatypes.ValidateToolInputRequest
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

		outcome, err := reg.ValidateInput(req.ToolName, req.Input)
		if err != nil {
			var unknown *registry.ErrUnknownTool
			if errors.As(err, &unknown) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, outcome)
	}
}
