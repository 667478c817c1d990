// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package composer

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
)

// whyExplanations maps foods to the rationale shown under the verdict.
var whyExplanations = map[string]string{
	"banana":       "Bananas are gentle first foods - naturally sweet, easy to mash, and rich in potassium for healthy muscle development",
	"avocado":      "Avocados provide healthy fats essential for brain development during this critical growth period",
	"apple":        "Apples introduce natural sweetness and fiber, helping develop taste preferences for healthy foods",
	"sweet potato": "Sweet potatoes are naturally sweet and packed with beta-carotene for healthy vision development",
	"chicken":      "Chicken provides complete protein with all amino acids needed for your baby's rapid growth",
	"salmon":       "Salmon offers omega-3s crucial for brain development during the first year of life",
	"egg":          "Eggs are nutritional powerhouses and early introduction may help prevent allergies later",
	"spinach":      "Leafy greens provide iron and folate for healthy blood development, though portions should be small for young babies",
}

// firstFoodActions overrides nextStepActions when the question is about
// starting solids.
var firstFoodActions = map[string]string{
	"banana":       "**Next step:** Perfect starter! Try mashed banana mixed into baby cereal at breakfast.",
	"apple":        "**Next step:** Steam and mash smooth. Great first fruit to introduce.",
	"sweet potato": "**Next step:** Steam until very soft, mash smooth. Excellent first vegetable.",
	"rice cereal":  "**Next step:** Mix thin with breast milk. Traditional first food choice.",
	"avocado":      "**Next step:** Mash ripe avocado smooth. Rich, creamy first food.",
}

var nextStepActions = map[string]string{
	"banana":      "**Next step:** Try at breakfast mashed into oatmeal or as finger food strips.",
	"apple":       "**Next step:** Steam and mash, or try as soft cooked pieces for texture practice.",
	"chicken":     "**Next step:** Cook thoroughly, shred finely, and mix with favorite vegetables.",
	"salmon":      "**Next step:** Cook well, check carefully for bones, and flake into small pieces.",
	"egg":         "**Next step:** Scramble well-cooked and try at breakfast. Great protein source.",
	"yogurt":      "**Next step:** Offer plain whole-milk yogurt as snack or mixed with fruit.",
	"spinach":     "**Next step:** Steam and puree, then mix into pasta or rice dishes.",
	"rice cereal": "**Next step:** Start thin, gradually thicken as baby adapts to textures.",
}

// whyItMatters explains the recommendation: query-specific rationale
// first, then food-specific, then a generic development line.
func whyItMatters(food *catalog.FoodRecord, queryLower string) string {
	name := strings.ToLower(food.Name)

	if strings.Contains(queryLower, "first food") || strings.Contains(queryLower, "start") {
		switch name {
		case "banana", "apple", "sweet potato", "avocado":
			return fmt.Sprintf("%s is recommended as a first food because it's naturally soft, easy to digest, and gentle on developing stomachs", food.Name)
		case "rice cereal", "oatmeal":
			return "Iron-fortified cereals are often first foods because they help prevent iron deficiency as your baby's iron stores from birth begin to deplete"
		}
	}

	switch {
	case strings.Contains(queryLower, "iron"):
		return "Iron is crucial after 6 months because babies' iron stores from birth are depleting and breast milk alone may not provide enough"
	case strings.Contains(queryLower, "protein"):
		return "Protein provides the building blocks for rapid growth and brain development during your baby's first year"
	case strings.Contains(queryLower, "vitamin c"):
		return "Vitamin C supports immune system development and helps your baby absorb iron from other foods"
	}

	if why, ok := whyExplanations[name]; ok {
		return why
	}
	return fmt.Sprintf("%s provides important nutrients during your baby's critical development phase", food.Name)
}

// nextStep gives parents one concrete action. Safety-first overrides
// come before query- and food-specific suggestions.
func nextStep(food *catalog.FoodRecord, queryLower string) string {
	name := strings.ToLower(food.Name)

	if strings.Contains(name, "honey") {
		return "**Next step:** Avoid before 12 months. Try maple syrup or mashed banana for sweetness instead."
	}
	if food.Facts.HasRisk("choking") {
		if strings.Contains(name, "grape") {
			return "**Next step:** Always quarter grapes lengthwise. Never give whole grapes."
		}
		return "**Next step:** Prepare safely to avoid choking. Always supervise eating."
	}

	if strings.Contains(queryLower, "first food") || strings.Contains(queryLower, "start") {
		if step, ok := firstFoodActions[name]; ok {
			return step
		}
	}
	if step, ok := nextStepActions[name]; ok {
		return step
	}

	switch strings.ToLower(food.Category) {
	case "fruit":
		return "**Next step:** Try mashed first, then soft pieces as baby develops chewing skills."
	case "vegetable":
		return "**Next step:** Steam until very soft, start with puree, progress to small pieces."
	case "protein":
		return "**Next step:** Cook thoroughly and start with very small, soft pieces."
	default:
		return "**Next step:** Start with small portions and watch for baby's reaction."
	}
}
