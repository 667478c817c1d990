// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.NewCatalog([]catalog.FoodRecord{
		{Name: "Honey", Category: "Sweetener"},
		{Name: "Avocado", Category: "Fruit"},
		{Name: "Apple", Category: "Fruit"},
		{Name: "Egg", Category: "Protein"},
		{Name: "Sweet Potato", Category: "Vegetable"},
	})
}

func TestParseExtractsAge(t *testing.T) {
	tests := []struct {
		question string
		want     *int
	}{
		{"Can I give honey to my 6 month old?", intPtr(6)},
		{"is apple safe for a 10 months old baby", intPtr(10)},
		{"she is 8 mo old", intPtr(8)},
		{"my 7 month son loves avocado", intPtr(7)},
		{"baby is 9 m old", intPtr(9)},
		{"safe from 12 months?", intPtr(12)},
		{"what should my baby eat", nil},
	}
	parser := New(testCatalog())
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			parsed := parser.Parse(tt.question)
			if tt.want == nil {
				assert.Nil(t, parsed.AgeMonths)
			} else {
				require.NotNil(t, parsed.AgeMonths)
				assert.Equal(t, *tt.want, *parsed.AgeMonths)
			}
		})
	}
}

func TestParseExtractsFood(t *testing.T) {
	parser := New(testCatalog())

	assert.Equal(t, "Honey", parser.Parse("Can I give honey to my baby?").Food)
	assert.Equal(t, "Sweet Potato", parser.Parse("how do I cook SWEET POTATO").Food)
	assert.Equal(t, "", parser.Parse("what about mango?").Food)
}

func TestParseResolvesPluralForms(t *testing.T) {
	parser := New(testCatalog())

	assert.Equal(t, "Apple", parser.Parse("are apples okay for babies").Food)
	assert.Equal(t, "Egg", parser.Parse("can babies eat eggs").Food)
}

func TestClassifyIntentPriority(t *testing.T) {
	tests := []struct {
		question string
		want     Intent
	}{
		{"is honey safe for my baby", IntentSafety},
		// "safe" outranks "protein" when both appear.
		{"is this protein safe", IntentSafety},
		{"which foods have iron", IntentNutrition},
		{"how do I prepare spinach", IntentPreparation},
		{"tell me about avocado", IntentGeneral},
	}
	parser := New(testCatalog())
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, parser.Parse(tt.question).Intent)
		})
	}
}

func TestParseKeepsOriginalQuestion(t *testing.T) {
	parser := New(testCatalog())
	question := "Can I Give HONEY to my 6 month old?"
	assert.Equal(t, question, parser.Parse(question).Question)
}

func TestParseIsDeterministic(t *testing.T) {
	parser := New(testCatalog())
	first := parser.Parse("are apples and eggs okay at 7 months")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, parser.Parse("are apples and eggs okay at 7 months"))
	}
}

func intPtr(v int) *int { return &v }
