// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package foodkg

import (
	"sort"
	"strings"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

// Per-food nutrient thresholds for CONTAINS edges. These mirror the
// source data's notion of a food "containing" a meaningful amount.
const (
	ironThresholdMg    = 2.0
	vitAThresholdUg    = 100.0
	vitCThresholdMg    = 20.0
	proteinThresholdG  = 10.0
	noteSourceDefault  = "AAP/CDC"
	usdaSource         = "USDA Database"
	sourceDataProvider = "Source Data"
)

// riskSources cites the authority for note-derived risk edges.
var riskSources = map[string]string{
	"choking":  "Safety Database",
	"allergy":  "Allergy Guidelines",
	"nitrate":  "CDC Guidelines",
	"botulism": "AAP Guidelines",
}

// Build constructs the knowledge graph from the catalog, the attribute
// rows of the source data, and the shared safety rule table.
//
// Per-food rules apply in strict precedence, first match wins:
//
//  1. Safety table matchers (hard name rules: SAFE_AT + HAS_RISK).
//  2. Note age markers ("safe from 6/12 months") when no table rule hit.
//
// Then, independently of 1-2:
//
//  3. Note risk scan (choking, allergy, nitrate, botulism).
//  4. Nutrient threshold CONTAINS edges.
//  5. Attribute row enrichment (explicit min_month_safe, allergens,
//     nutrient highlights).
//
// Cross-food relations run in three O(n²) passes over the matching
// foods. n is the catalog size, small by construction; this does not
// scale to large catalogs and would need blocking or indexing there.
// The passes iterate foods in sorted name order so that rebuilding from
// identical input always produces an isomorphic graph, regardless of
// source row order.
func Build(cat *catalog.Catalog, attrs []catalog.AttributeRow, table *rules.Table) *Graph {
	g := NewGraph()

	for i := range cat.Foods() {
		food := &cat.Foods()[i]
		g.AddFood(food.Name)

		if rule := table.MatchFood(food.Name, food.Note); rule != nil {
			g.setSafeAt(food.Name, rule.MinMonths, rule.Source)
			g.addRisk(food.Name, rule.Risk, rule.Source)
		} else if food.Facts.MinSafeMonths != nil {
			g.setSafeAt(food.Name, *food.Facts.MinSafeMonths, noteSourceDefault)
		}

		for _, risk := range food.Facts.Risks {
			g.addRisk(food.Name, risk, riskSources[risk])
		}

		if food.IronMg > ironThresholdMg {
			g.addNutrient(food.Name, "iron", RelContains, usdaSource)
		}
		if food.VitAUg > vitAThresholdUg {
			g.addNutrient(food.Name, "vitamin_a", RelContains, usdaSource)
		}
		if food.VitCMg > vitCThresholdMg {
			g.addNutrient(food.Name, "vitamin_c", RelContains, usdaSource)
		}
		if food.ProteinG > proteinThresholdG {
			g.addNutrient(food.Name, "protein", RelContains, usdaSource)
		}
	}

	for _, attr := range attrs {
		if g.FoodNode(attr.FoodName) == nil {
			continue
		}
		if attr.MinMonthSafe != nil {
			g.setSafeAt(attr.FoodName, *attr.MinMonthSafe, sourceDataProvider)
		}
		for _, allergen := range attr.Allergens {
			g.addAllergen(attr.FoodName, allergen, sourceDataProvider)
		}
		for _, nutrient := range attr.NutrientHighlights {
			g.addNutrient(attr.FoodName, nutrient, RelRichIn, sourceDataProvider)
		}
		for _, risk := range attr.Risks {
			kind := strings.ToLower(risk)
			if src, known := riskSources[kind]; known {
				g.addRisk(attr.FoodName, kind, src)
			}
		}
	}

	buildCrossFoodRelations(g, cat)
	return g
}

func buildCrossFoodRelations(g *Graph, cat *catalog.Catalog) {
	var chokingFoods, ironFoods []string
	ageGroups := map[string][]string{}

	for i := range cat.Foods() {
		food := &cat.Foods()[i]
		if food.Facts.HasRisk("choking") {
			chokingFoods = append(chokingFoods, food.Name)
		}
		if food.IronMg > ironThresholdMg {
			ironFoods = append(ironFoods, food.Name)
		}
		note := strings.ToLower(food.Note)
		if strings.Contains(note, "6 months") {
			ageGroups["6_months"] = append(ageGroups["6_months"], food.Name)
		} else if strings.Contains(note, "12 months") {
			ageGroups["12_months"] = append(ageGroups["12_months"], food.Name)
		}
	}

	pairwise(g, chokingFoods, RelSimilarSafetyProfil, "Safety Database")
	pairwise(g, ironFoods, RelNutritionalAlt, usdaSource)

	groups := make([]string, 0, len(ageGroups))
	for group := range ageGroups {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		pairwise(g, ageGroups[group], RelSameAgeGroup, noteSourceDefault)
	}
}

// pairwise links every unordered pair of the given foods. Sorting first
// makes rebuilds order-independent.
func pairwise(g *Graph, foods []string, rel Relation, source string) {
	sorted := append([]string(nil), foods...)
	sort.Strings(sorted)
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			g.addFoodPair(sorted[i], sorted[j], rel, source)
		}
	}
}
