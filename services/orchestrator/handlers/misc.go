// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers of the HTTP API.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/FirstSpoon/services/orchestrator/datatypes"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/pipeline"
)

// HealthCheck reports liveness and the size of the active snapshot.
func HealthCheck(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:  "healthy",
			Message: "FirstSpoon QA service is running",
			Foods:   p.Snapshot().Catalog.Len(),
		})
	}
}

// HandleReload rebuilds the snapshot from the data file on demand.
// In-flight requests keep the snapshot they started with.
func HandleReload(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := p.Reload(c.Request.Context()); err != nil {
			slog.Error("Manual snapshot reload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Reload failed, previous snapshot still active"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "reloaded",
			"foods":  p.Snapshot().Catalog.Len(),
		})
	}
}
