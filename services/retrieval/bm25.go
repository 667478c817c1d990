// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import "math"

// Okapi BM25 parameters. Standard values; the catalog is far too small
// for tuning to matter.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is an in-process Okapi BM25 index over the food
// descriptions. Built once per snapshot, read-only afterwards.
type bm25Index struct {
	docTokens [][]string
	docFreq   map[string]int
	docLen    []int
	avgDocLen float64
}

// newBM25Index tokenizes and indexes the corpus.
func newBM25Index(corpus []string) *bm25Index {
	idx := &bm25Index{
		docTokens: make([][]string, len(corpus)),
		docFreq:   make(map[string]int),
		docLen:    make([]int, len(corpus)),
	}
	total := 0
	for i, doc := range corpus {
		tokens := tokenize(doc)
		idx.docTokens[i] = tokens
		idx.docLen[i] = len(tokens)
		total += len(tokens)

		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				idx.docFreq[t]++
			}
		}
	}
	if len(corpus) > 0 {
		idx.avgDocLen = float64(total) / float64(len(corpus))
	}
	return idx
}

// scores returns the raw BM25 score of every document for the query.
// Raw scores are unbounded; the scorer min-max normalizes them before
// fusing with the semantic score.
func (idx *bm25Index) scores(query string) []float64 {
	out := make([]float64, len(idx.docTokens))
	queryTokens := tokenize(query)
	n := float64(len(idx.docTokens))

	for _, qt := range queryTokens {
		df := idx.docFreq[qt]
		if df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, tokens := range idx.docTokens {
			tf := 0
			for _, t := range tokens {
				if t == qt {
					tf++
				}
			}
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(idx.docLen[i])/idx.avgDocLen
			out[i] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}
	return out
}
