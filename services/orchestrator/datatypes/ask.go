// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response shapes of the HTTP
// API.
package datatypes

import (
	"github.com/AleutianAI/FirstSpoon/services/catalog"
	"github.com/AleutianAI/FirstSpoon/services/composer"
)

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required,min=1"`
	TopK     int    `json:"top_k" binding:"omitempty,gte=1,lte=10"`
}

// Citation points one answer claim at a catalog record.
type Citation struct {
	FoodName       string  `json:"food_name"`
	SourceURL      string  `json:"source_url"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AskResponse is the body returned by POST /api/ask. RetrievedFoods is
// empty when a safety block fired.
type AskResponse struct {
	Answer         string               `json:"answer"`
	Citations      []Citation           `json:"citations"`
	Confidence     string               `json:"confidence"`
	RetrievedFoods []catalog.FoodRecord `json:"retrieved_foods"`
	GraphPath      []string             `json:"graph_path,omitempty"`
}

// NewAskResponse converts a composed answer into the wire shape.
func NewAskResponse(answer composer.Answer) AskResponse {
	resp := AskResponse{
		Answer:         answer.Text,
		Citations:      make([]Citation, 0, len(answer.Citations)),
		Confidence:     answer.Confidence,
		RetrievedFoods: answer.RetrievedFoods,
		GraphPath:      answer.GraphPath,
	}
	if resp.RetrievedFoods == nil {
		resp.RetrievedFoods = []catalog.FoodRecord{}
	}
	for _, c := range answer.Citations {
		resp.Citations = append(resp.Citations, Citation{
			FoodName:       c.FoodName,
			SourceURL:      c.SourceURL,
			RelevanceScore: c.RelevanceScore,
		})
	}
	return resp
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Foods   int    `json:"foods"`
}
