// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/FirstSpoon/services/orchestrator/datatypes"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/observability"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/pipeline"
)

var askTracer = otel.Tracer("firstspoon.handlers")

const defaultTopK = 3

// HandleAsk answers one baby-food question with citations and a
// parent-facing confidence label.
func HandleAsk(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := askTracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		var request datatypes.AskRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind ask request JSON", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if request.TopK == 0 {
			request.TopK = defaultTopK
		}

		requestID := uuid.New().String()
		span.SetAttributes(
			attribute.String("request_id", requestID),
			attribute.Int("top_k", request.TopK),
		)
		slog.Info("Received ask request", "request_id", requestID, "question", request.Question)

		start := time.Now()
		answer, path, err := p.Ask(ctx, request.Question, request.TopK)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(observability.Path(path), false)
			}
			if errors.Is(err, pipeline.ErrNoFoods) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No relevant foods found"})
				return
			}
			slog.Error("Answer pipeline failed", "request_id", requestID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing question"})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.Path(path), true)
			m.RecordAnswerDuration(observability.Path(path), time.Since(start).Seconds())
		}
		span.SetAttributes(attribute.String("answer.path", string(path)))

		c.JSON(http.StatusOK, datatypes.NewAskResponse(answer))
	}
}
