// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FirstSpoon/services/foodkg"
	"github.com/AleutianAI/FirstSpoon/services/queryparser"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := rules.Load()
	require.NoError(t, err)
	return NewEngine(table)
}

func query(food string, age *int) queryparser.ParsedQuery {
	return queryparser.ParsedQuery{Food: food, AgeMonths: age, Intent: queryparser.IntentSafety}
}

func intPtr(v int) *int { return &v }

func TestCheckRequiresFoodAndAge(t *testing.T) {
	engine := testEngine(t)

	assert.Nil(t, engine.Check(query("", intPtr(6)), foodkg.Subgraph{}))
	assert.Nil(t, engine.Check(query("Honey", nil), foodkg.Subgraph{}))
}

func TestCheckStaticTable(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		name         string
		food         string
		age          int
		wantRisk     string
		wantSeverity rules.Severity
		wantLimit    int
	}{
		{"honey at six months", "Honey", 6, "botulism", rules.SeverityCritical, 12},
		{"honey at eleven months", "Honey", 11, "botulism", rules.SeverityCritical, 12},
		{"whole grapes toddler", "Whole grapes", 24, "choking", rules.SeverityCritical, 48},
		{"cows milk under twelve", "Cow's milk", 10, "anemia", rules.SeverityCritical, 12},
		{"shellfish under six", "Shellfish", 5, "allergy", rules.SeverityWarning, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := engine.Check(query(tt.food, intPtr(tt.age)), foodkg.Subgraph{})
			require.NotNil(t, block)
			assert.Equal(t, tt.wantRisk, block.RiskKind)
			assert.Equal(t, tt.wantSeverity, block.Severity)
			assert.Equal(t, tt.wantLimit, block.AgeLimitMonths)
		})
	}
}

func TestCheckPassesAtThreshold(t *testing.T) {
	engine := testEngine(t)

	assert.Nil(t, engine.Check(query("Honey", intPtr(12)), foodkg.Subgraph{}))
	assert.Nil(t, engine.Check(query("Shellfish", intPtr(6)), foodkg.Subgraph{}))
}

// The static table must fire before any graph-derived fact, even when
// the graph asserts a weaker threshold for the same food.
func TestStaticTableOutranksGraphFacts(t *testing.T) {
	engine := testEngine(t)

	sub := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Honey", Relation: foodkg.RelSafeAt, Object: "6", MinMonths: 6, Source: "Ingested Data"},
	}}
	block := engine.Check(query("Honey", intPtr(8)), sub)
	require.NotNil(t, block)
	// 8 months satisfies the graph's bogus 6-month threshold; the static
	// 12-month rule wins anyway.
	assert.Equal(t, "botulism", block.RiskKind)
	assert.Equal(t, 12, block.AgeLimitMonths)
	assert.Equal(t, "AAP Guidelines", block.Source)
}

func TestCheckGraphSafeAt(t *testing.T) {
	engine := testEngine(t)

	sub := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Spinach", Relation: foodkg.RelSafeAt, Object: "6", MinMonths: 6, Source: "AAP/CDC"},
	}}

	block := engine.Check(query("Spinach", intPtr(4)), sub)
	require.NotNil(t, block)
	assert.Equal(t, "age_restriction", block.RiskKind)
	assert.Equal(t, 6, block.AgeLimitMonths)
	assert.Equal(t, "not recommended for babies under 6 months", block.Reason)
	assert.Equal(t, rules.SeverityWarning, block.Severity)
	assert.Equal(t, "AAP/CDC", block.Source)

	assert.Nil(t, engine.Check(query("Spinach", intPtr(6)), sub))
}

func TestCheckGraphRisks(t *testing.T) {
	engine := testEngine(t)

	botulism := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Home syrup", Relation: foodkg.RelHasRisk, Object: "botulism", Source: "AAP Guidelines"},
	}}
	block := engine.Check(query("Home syrup", intPtr(18)), botulism)
	require.NotNil(t, block)
	// Botulism blocks regardless of stated age.
	assert.Equal(t, "botulism", block.RiskKind)
	assert.Equal(t, rules.SeverityCritical, block.Severity)
	assert.Equal(t, 12, block.AgeLimitMonths)

	choking := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Popcorn", Relation: foodkg.RelHasRisk, Object: "choking", Source: "Safety Database"},
	}}
	block = engine.Check(query("Popcorn", intPtr(8)), choking)
	require.NotNil(t, block)
	assert.Equal(t, "choking", block.RiskKind)
	assert.Equal(t, rules.SeverityWarning, block.Severity)

	// Choking does not block at or past 12 months.
	assert.Nil(t, engine.Check(query("Popcorn", intPtr(12)), choking))

	// Allergy risks inform but never block.
	allergy := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Egg", Relation: foodkg.RelHasRisk, Object: "allergy", Source: "Allergy Guidelines"},
	}}
	assert.Nil(t, engine.Check(query("Egg", intPtr(6)), allergy))
}

// Lowering the age must never turn a blocked query into an allowed one.
func TestBlockingIsMonotonicInAge(t *testing.T) {
	engine := testEngine(t)

	sub := foodkg.Subgraph{Facts: []foodkg.Fact{
		{Subject: "Spinach", Relation: foodkg.RelSafeAt, Object: "6", MinMonths: 6, Source: "AAP/CDC"},
		{Subject: "Spinach", Relation: foodkg.RelHasRisk, Object: "choking", Source: "Safety Database"},
	}}

	blockedBefore := false
	for age := 48; age >= 0; age-- {
		blocked := engine.Check(query("Spinach", intPtr(age)), sub) != nil
		if blockedBefore {
			assert.True(t, blocked, "age %d unblocked below a blocked age", age)
		}
		blockedBefore = blocked
	}
}
