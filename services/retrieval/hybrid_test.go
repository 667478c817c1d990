// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scorerCatalog() *catalog.Catalog {
	return catalog.NewCatalog([]catalog.FoodRecord{
		{Name: "Banana", Category: "fruit", KcalPer100: 89, FiberG: 2.6,
			Note: "Safe from 6 months | How to prepare: mash ripe banana"},
		{Name: "Spinach", Category: "vegetable", IronMg: 2.7, VitAUg: 469,
			Note: "Safe from 6 months | Watch out for: nitrate content"},
		{Name: "Chicken", Category: "protein", ProteinG: 27, IronMg: 1.3,
			Note: "Safe from 6 months | How to prepare: shred finely"},
		{Name: "Strawberry", Category: "fruit", VitCMg: 59,
			Note: "Safe from 6 months | Watch out for: allergy in rare cases"},
		{Name: "Avocado", Category: "fruit", KcalPer100: 160, FiberG: 6.7,
			Note: "Safe from 6 months | How to prepare: mash until smooth"},
	})
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(context.Background(), scorerCatalog(),
		NewTokenFrequencyProvider(), testLogger())
}

func TestConfidenceFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{0.0, ConfidenceLow},
		{0.29, ConfidenceLow},
		{0.3, ConfidenceMedium},
		{0.5, ConfidenceMedium},
		{0.7, ConfidenceMedium},
		{0.71, ConfidenceHigh},
		{1.0, ConfidenceHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceFromScore(tt.score), "score %v", tt.score)
	}
}

func TestDetectNutrient(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"what foods help with growth", "protein"},
		{"my baby has anemia", "iron"},
		{"foods to boost immunity", "vitamin_c"},
		{"good for eye development", "vitamin_a"},
		{"help with digestion", "fiber"},
		{"foods for weight gain", "calories"},
		{"is banana safe", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			spec := detectNutrient(tt.query)
			if tt.want == "" {
				assert.Nil(t, spec)
				return
			}
			require.NotNil(t, spec)
			assert.Equal(t, tt.want, spec.name)
		})
	}
}

func TestDetectNutrientTableOrder(t *testing.T) {
	// "protein" outranks "iron" when both keywords appear.
	spec := detectNutrient("protein or iron for my baby")
	require.NotNil(t, spec)
	assert.Equal(t, "protein", spec.name)
}

func TestNutrientRetrieveRanksByValue(t *testing.T) {
	s := newTestScorer(t)

	result := s.Retrieve(context.Background(), "which foods are high in iron", 2)
	require.Equal(t, ModeNutrient, result.Mode)
	assert.Equal(t, "iron", result.Nutrient)

	require.Len(t, result.Foods, 2)
	assert.Equal(t, "Spinach", result.Foods[0].Food.Name)
	assert.Equal(t, "Chicken", result.Foods[1].Food.Name)

	// Scores normalize over the whole catalog: the best source is 1.0.
	assert.InDelta(t, 1.0, result.Foods[0].Score, 1e-9)
	assert.InDelta(t, 1.3/2.7, result.Foods[1].Score, 1e-9)
}

func TestNutrientRetrieveFallsBackBelowThreshold(t *testing.T) {
	s := newTestScorer(t)

	// Only Chicken clears the 5g protein threshold; fewer hits than
	// topK fall back to the full ranking instead of starving.
	result := s.Retrieve(context.Background(), "best protein for growth", 3)
	require.Equal(t, ModeNutrient, result.Mode)
	require.Len(t, result.Foods, 3)
	assert.Equal(t, "Chicken", result.Foods[0].Food.Name)
}

func TestNutrientRetrieveAllTiedScoresOne(t *testing.T) {
	cat := catalog.NewCatalog([]catalog.FoodRecord{
		{Name: "Rice", Category: "grain"},
		{Name: "Oats", Category: "grain"},
	})
	s := NewScorer(context.Background(), cat, NewTokenFrequencyProvider(), testLogger())

	result := s.Retrieve(context.Background(), "iron sources", 2)
	require.Len(t, result.Foods, 2)
	for _, f := range result.Foods {
		assert.InDelta(t, 1.0, f.Score, 1e-9)
	}
}

func TestStandardRetrieveScoresWithinBounds(t *testing.T) {
	s := newTestScorer(t)

	result := s.Retrieve(context.Background(), "soft fruit to mash for baby", 3)
	require.Equal(t, ModeStandard, result.Mode)
	require.NotEmpty(t, result.Foods)
	require.LessOrEqual(t, len(result.Foods), 3)

	for i, f := range result.Foods {
		assert.GreaterOrEqual(t, f.Score, 0.0)
		assert.LessOrEqual(t, f.Score, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, f.Score, result.Foods[i-1].Score)
		}
	}
}

func TestStandardRetrieveFindsLexicalMatch(t *testing.T) {
	s := newTestScorer(t)

	result := s.Retrieve(context.Background(), "ripe banana", 3)
	require.NotEmpty(t, result.Foods)
	assert.Equal(t, "Banana", result.Foods[0].Food.Name)
}

func TestRetrieveDefaultsTopK(t *testing.T) {
	s := newTestScorer(t)

	result := s.Retrieve(context.Background(), "soft foods", 0)
	assert.LessOrEqual(t, len(result.Foods), 3)
}

func TestRetrieveEmptyCatalog(t *testing.T) {
	cat := catalog.NewCatalog(nil)
	s := NewScorer(context.Background(), cat, NewTokenFrequencyProvider(), testLogger())

	result := s.Retrieve(context.Background(), "anything", 3)
	assert.True(t, result.Empty())
	assert.Zero(t, result.TopScore())
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("backend unreachable")
}

func TestNewScorerFallsBackOnEmbeddingFailure(t *testing.T) {
	s := NewScorer(context.Background(), scorerCatalog(), failingProvider{}, testLogger())

	assert.Equal(t, "token_frequency", s.Provider())

	// The fallback scorer must still answer queries.
	result := s.Retrieve(context.Background(), "ripe banana", 3)
	require.NotEmpty(t, result.Foods)
	assert.Equal(t, "Banana", result.Foods[0].Food.Name)
}

func TestScorerFallbackWeights(t *testing.T) {
	s := newTestScorer(t)
	assert.InDelta(t, lexicalWeightFallback, s.lexicalWeight, 1e-9)
	assert.InDelta(t, semanticWeightFallback, s.semanticWeight, 1e-9)
}

func TestMinMaxNormalize(t *testing.T) {
	t.Run("rescales to unit range", func(t *testing.T) {
		out := minMaxNormalize([]float64{1, 2, 3})
		assert.InDelta(t, 0.0, out[0], 1e-6)
		assert.InDelta(t, 0.5, out[1], 1e-6)
		assert.InDelta(t, 1.0, out[2], 1e-6)
	})

	t.Run("constant vector maps to zeros", func(t *testing.T) {
		for _, v := range minMaxNormalize([]float64{4, 4, 4}) {
			assert.Zero(t, v)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, minMaxNormalize(nil))
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
