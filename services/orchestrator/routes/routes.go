// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/FirstSpoon/services/orchestrator/handlers"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/middleware"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/pipeline"
)

func SetupRoutes(router *gin.Engine, p *pipeline.Pipeline, limiter *middleware.RateLimiter) {
	router.GET("/health", handlers.HealthCheck(p))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	{
		api.POST("/ask", handlers.HandleAsk(p))
		api.POST("/reload", handlers.HandleReload(p))
	}
}
