// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
)

// Mode distinguishes score semantics. Nutrient-mode scores are
// normalized nutrient magnitudes; standard-mode scores are fused
// lexical+semantic relevance. Callers must not compare scores across
// modes.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeNutrient Mode = "nutrient"
)

// Confidence is the internal confidence tier derived from the top
// score. The composer translates it to a parent-facing label.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ConfidenceFromScore maps a top score to the internal tier:
// below 0.3 Low, above 0.7 High, Medium between.
func ConfidenceFromScore(top float64) Confidence {
	switch {
	case top < 0.3:
		return ConfidenceLow
	case top > 0.7:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}

// ScoredFood pairs a catalog record with its relevance score in [0,1].
type ScoredFood struct {
	Food  *catalog.FoodRecord
	Score float64
}

// Result is a ranked retrieval outcome. Foods is empty (never nil
// panics, just empty) when the catalog is empty — "no data" is a valid
// result, not an error.
type Result struct {
	Mode     Mode
	Nutrient string
	Foods    []ScoredFood
}

// Empty reports whether nothing was retrieved.
func (r *Result) Empty() bool { return len(r.Foods) == 0 }

// TopScore returns the best score, 0 when empty.
func (r *Result) TopScore() float64 {
	if len(r.Foods) == 0 {
		return 0
	}
	return r.Foods[0].Score
}

// nutrientSpec describes one entry of the nutrient keyword table:
// trigger synonyms, the record accessor, and the minimum value a food
// needs to count as a real source of the nutrient.
type nutrientSpec struct {
	name     string
	keywords []string
	value    func(*catalog.FoodRecord) float64
	minValue float64
}

// nutrientTable is ordered; the first nutrient with a keyword hit wins.
var nutrientTable = []nutrientSpec{
	{"protein", []string{"protein", "growth", "muscle"},
		func(f *catalog.FoodRecord) float64 { return f.ProteinG }, 5.0},
	{"iron", []string{"iron", "anemia", "mineral"},
		func(f *catalog.FoodRecord) float64 { return f.IronMg }, 1.0},
	{"vitamin_c", []string{"vitamin c", "immune", "immunity"},
		func(f *catalog.FoodRecord) float64 { return f.VitCMg }, 10.0},
	{"vitamin_a", []string{"vitamin a", "vision", "eye"},
		func(f *catalog.FoodRecord) float64 { return f.VitAUg }, 50.0},
	{"fiber", []string{"fiber", "digestion", "digestive"},
		func(f *catalog.FoodRecord) float64 { return f.FiberG }, 2.0},
	{"calories", []string{"calories", "energy", "weight gain"},
		func(f *catalog.FoodRecord) float64 { return f.KcalPer100 }, 50.0},
}

// Fusion weights. The semantic signal dominates with a real embedding
// backend; the token-frequency fallback is itself lexical, so the split
// shifts toward BM25 there.
const (
	lexicalWeightEmbedding  = 0.3
	semanticWeightEmbedding = 0.7
	lexicalWeightFallback   = 0.4
	semanticWeightFallback  = 0.6

	minMaxEpsilon = 1e-8

	// embedBatchSize and embedConcurrency bound the one-time corpus
	// embedding at snapshot build.
	embedBatchSize   = 16
	embedConcurrency = 4
)

// Scorer is the hybrid retrieval scorer over one catalog snapshot.
type Scorer struct {
	cat            *catalog.Catalog
	bm25           *bm25Index
	embeddings     [][]float32
	provider       EmbeddingProvider
	lexicalWeight  float64
	semanticWeight float64
	logger         *slog.Logger
}

// NewScorer builds the scorer: BM25 index plus the one-time corpus
// embedding. If the configured provider fails, the scorer degrades to
// the token-frequency fallback with a warning instead of failing the
// snapshot — search quality drops, the service stays up.
func NewScorer(ctx context.Context, cat *catalog.Catalog, provider EmbeddingProvider, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scorer{
		cat:    cat,
		bm25:   newBM25Index(cat.Descriptions()),
		logger: logger,
	}
	s.setProvider(provider)

	descs := cat.Descriptions()
	embeddings, err := embedCorpus(ctx, s.provider, descs)
	if err != nil {
		logger.Warn("embedding backend unavailable, falling back to token frequency",
			"backend", s.provider.Name(), "error", err)
		s.setProvider(NewTokenFrequencyProvider())
		// The fallback never fails and performs no I/O.
		embeddings, _ = embedCorpus(ctx, s.provider, descs)
	}
	s.embeddings = embeddings
	return s
}

func (s *Scorer) setProvider(provider EmbeddingProvider) {
	if provider == nil {
		provider = NewTokenFrequencyProvider()
	}
	s.provider = provider
	if provider.Name() == "token_frequency" {
		s.lexicalWeight = lexicalWeightFallback
		s.semanticWeight = semanticWeightFallback
	} else {
		s.lexicalWeight = lexicalWeightEmbedding
		s.semanticWeight = semanticWeightEmbedding
	}
}

// Provider returns the active embedding backend name.
func (s *Scorer) Provider() string { return s.provider.Name() }

// embedCorpus embeds the corpus in bounded-concurrency batches.
func embedCorpus(ctx context.Context, provider EmbeddingProvider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := provider.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Retrieve ranks foods for the query and returns the top k.
//
// A nutrient keyword in the query switches to nutrient-focused mode;
// everything else goes through standard hybrid fusion. An empty catalog
// yields an empty result, never an error.
func (s *Scorer) Retrieve(ctx context.Context, query string, topK int) Result {
	if topK <= 0 {
		topK = 3
	}
	if s.cat.Len() == 0 {
		return Result{Mode: ModeStandard}
	}
	if spec := detectNutrient(query); spec != nil {
		return s.nutrientRetrieve(spec, topK)
	}
	return s.standardRetrieve(ctx, query, topK)
}

// detectNutrient returns the first nutrient whose keyword table matches
// the query, nil when none do.
func detectNutrient(query string) *nutrientSpec {
	lower := strings.ToLower(query)
	for i := range nutrientTable {
		for _, kw := range nutrientTable[i].keywords {
			if strings.Contains(lower, kw) {
				return &nutrientTable[i]
			}
		}
	}
	return nil
}

func (s *Scorer) nutrientRetrieve(spec *nutrientSpec, topK int) Result {
	foods := s.cat.Foods()

	// Sort descending by the nutrient; stable keeps catalog order for
	// ties so repeated calls rank identically.
	order := make([]int, len(foods))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spec.value(&foods[order[a]]) > spec.value(&foods[order[b]])
	})

	var kept []int
	for _, idx := range order {
		if spec.value(&foods[idx]) >= spec.minValue {
			kept = append(kept, idx)
		}
	}
	// Too few foods clear the threshold: fall back to the full sorted
	// list rather than starving the caller.
	if len(kept) < topK {
		kept = order
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}

	// Normalize over the WHOLE catalog, not the filtered subset, so a
	// 100% score means "the best source in the data set".
	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := range foods {
		v := spec.value(&foods[i])
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	result := Result{Mode: ModeNutrient, Nutrient: spec.name}
	for _, idx := range kept {
		score := 1.0
		if maxV > minV {
			score = (spec.value(&foods[idx]) - minV) / (maxV - minV)
		}
		result.Foods = append(result.Foods, ScoredFood{Food: &foods[idx], Score: score})
	}
	return result
}

func (s *Scorer) standardRetrieve(ctx context.Context, query string, topK int) Result {
	foods := s.cat.Foods()

	lexical := minMaxNormalize(s.bm25.scores(query))

	semantic := make([]float64, len(foods))
	queryVecs, err := s.provider.Embed(ctx, []string{query})
	if err != nil || len(queryVecs) != 1 {
		// Per-request semantic failure degrades to lexical-only
		// ranking; the request must still complete.
		s.logger.Warn("query embedding failed, ranking lexically",
			"backend", s.provider.Name(), "error", err)
		semantic = nil
	} else {
		for i := range foods {
			semantic[i] = cosineSimilarity(queryVecs[0], s.embeddings[i])
		}
		semantic = minMaxNormalize(semantic)
	}

	combined := make([]float64, len(foods))
	for i := range combined {
		if semantic == nil {
			combined[i] = lexical[i]
		} else {
			combined[i] = s.lexicalWeight*lexical[i] + s.semanticWeight*semantic[i]
		}
	}

	order := make([]int, len(foods))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return combined[order[a]] > combined[order[b]]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	result := Result{Mode: ModeStandard}
	for _, idx := range order {
		result.Foods = append(result.Foods, ScoredFood{Food: &foods[idx], Score: combined[idx]})
	}
	return result
}

// minMaxNormalize rescales to [0,1] with an epsilon-guarded denominator.
// A constant vector maps to all zeros.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	minV, maxV := scores[0], scores[0]
	for _, v := range scores {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	out := make([]float64, len(scores))
	denom := maxV - minV + minMaxEpsilon
	for i, v := range scores {
		out[i] = (v - minV) / denom
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

