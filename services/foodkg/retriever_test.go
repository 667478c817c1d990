// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package foodkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FirstSpoon/services/queryparser"
)

func TestRetrieveEmitsFactsInGraphOrder(t *testing.T) {
	g := Build(buildTestCatalog(t), nil, loadTable(t))
	r := NewRetriever(g)

	sub := r.Retrieve(queryparser.ParsedQuery{Food: "Spinach"})
	require.False(t, sub.Empty())

	// Builder order for Spinach: SAFE_AT, then the note risk, then the
	// nutrient edges, then cross-food relations.
	require.GreaterOrEqual(t, len(sub.Facts), 4)
	assert.Equal(t, RelSafeAt, sub.Facts[0].Relation)
	assert.Equal(t, "6", sub.Facts[0].Object)
	assert.Equal(t, 6, sub.Facts[0].MinMonths)
	assert.Equal(t, RelHasRisk, sub.Facts[1].Relation)
	assert.Equal(t, "nitrate", sub.Facts[1].Object)
	assert.Equal(t, RelContains, sub.Facts[2].Relation)
	assert.Equal(t, "iron", sub.Facts[2].Object)

	for _, fact := range sub.Facts {
		assert.Equal(t, "Spinach", fact.Subject)
		assert.InDelta(t, 1.0, fact.Confidence, 1e-9)
	}
}

func TestRetrieveGraphPath(t *testing.T) {
	g := Build(buildTestCatalog(t), nil, loadTable(t))
	r := NewRetriever(g)

	sub := r.Retrieve(queryparser.ParsedQuery{Food: "Honey"})
	require.False(t, sub.Empty())

	require.Equal(t, len(sub.Facts)+1, len(sub.GraphPath))
	assert.Equal(t, "Honey", sub.GraphPath[0])
	assert.Contains(t, sub.GraphPath, "Honey --SAFE_AT--> 12")
	assert.Contains(t, sub.GraphPath, "Honey --HAS_RISK--> botulism")
}

func TestRetrieveSafetyFlags(t *testing.T) {
	g := Build(buildTestCatalog(t), nil, loadTable(t))
	r := NewRetriever(g)

	tests := []struct {
		name      string
		query     queryparser.ParsedQuery
		wantFlags []string
	}{
		{
			name:      "age below threshold flags too young",
			query:     queryparser.ParsedQuery{Food: "Honey", AgeMonths: intPtr(6)},
			wantFlags: []string{"too_young_for_honey", "botulism"},
		},
		{
			name:      "age at threshold is not too young",
			query:     queryparser.ParsedQuery{Food: "Honey", AgeMonths: intPtr(12)},
			wantFlags: []string{"botulism"},
		},
		{
			name:      "no stated age still flags risks",
			query:     queryparser.ParsedQuery{Food: "Honey"},
			wantFlags: []string{"botulism"},
		},
		{
			name:  "safe food at safe age has no flags",
			query: queryparser.ParsedQuery{Food: "Avocado", AgeMonths: intPtr(8)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := r.Retrieve(tt.query)
			assert.ElementsMatch(t, tt.wantFlags, sub.SafetyFlags)
		})
	}
}

func TestRetrieveUnknownFoodIsEmpty(t *testing.T) {
	g := Build(buildTestCatalog(t), nil, loadTable(t))
	r := NewRetriever(g)

	empty := r.Retrieve(queryparser.ParsedQuery{})
	assert.True(t, empty.Empty())
	unknown := r.Retrieve(queryparser.ParsedQuery{Food: "Durian"})
	assert.True(t, unknown.Empty())
}

func TestSafeAtMonths(t *testing.T) {
	g := Build(buildTestCatalog(t), nil, loadTable(t))
	r := NewRetriever(g)

	grapes := r.Retrieve(queryparser.ParsedQuery{Food: "Whole Grapes"})
	months, ok := grapes.SafeAtMonths()
	require.True(t, ok)
	assert.Equal(t, 48, months)

	_, ok = (&Subgraph{}).SafeAtMonths()
	assert.False(t, ok)
}
