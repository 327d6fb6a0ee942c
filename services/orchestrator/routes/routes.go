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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/workflow"
)

// SetupRoutes wires the HTTP surface onto the router.
//
// store may be nil (session endpoints report 503); enableMetrics controls
// the /metrics scrape endpoint.
func SetupRoutes(router *gin.Engine, reg *registry.ToolRegistry, engine *workflow.Engine,
	extractor workflow.Extractor, store session.Store, enableMetrics bool) {

	router.GET("/health", handlers.HealthCheck(reg))
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/orchestrate", handlers.HandleOrchestrate(engine))
		v1.POST("/extract", handlers.HandleExtract(extractor))
		v1.GET("/tools", handlers.HandleListTools(reg))
		v1.POST("/tools/validate", handlers.HandleValidateToolInput(reg))
		// Session history routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:sessionId/history", handlers.HandleSessionHistory(store))
			sessions.GET("/:sessionId/analytics", handlers.HandleSessionAnalytics(store))
		}
	}
}
