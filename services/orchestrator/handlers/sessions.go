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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianTutor/pkg/validation"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/session"
)

// HandleSessionHistory returns the session's run records in append order.
//
// GET /v1/sessions/:sessionId/history
func HandleSessionHistory(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if err := validation.ValidateSessionID(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session history is disabled"})
			return
		}

		history, err := store.History(c.Request.Context(), sessionID)
		if err != nil {
			slog.Error("Failed to read session history", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session history"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"records":    history,
			"count":      len(history),
		})
	}
}

// HandleSessionAnalytics summarizes tool usage for the session.
//
// GET /v1/sessions/:sessionId/analytics
func HandleSessionAnalytics(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if err := validation.ValidateSessionID(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session history is disabled"})
			return
		}

		analytics, err := store.Analytics(c.Request.Context(), sessionID)
		if err != nil {
			slog.Error("Failed to compute session analytics", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute session analytics"})
			return
		}

		c.JSON(http.StatusOK, analytics)
	}
}
