// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package composer assembles the final answer text, confidence label,
// and citations for a request. It has three entry points, one per
// pipeline outcome: ComposeBlock for a guardrail violation, ComposeFromGraph
// for a populated knowledge subgraph, and ComposeFromRetrieval for the
// hybrid-scorer fallback. Every path funnels its internal confidence
// through ParentLabel before the answer leaves the package.
package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
	"github.com/AleutianAI/FirstSpoon/services/foodkg"
	"github.com/AleutianAI/FirstSpoon/services/queryparser"
	"github.com/AleutianAI/FirstSpoon/services/retrieval"
	"github.com/AleutianAI/FirstSpoon/services/safety"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

// Parent-facing confidence labels. These are the only confidence
// strings a caller ever sees.
const (
	LabelMedicalGuidelines = "Backed by medical guidelines"
	LabelWellEstablished   = "Well-established guidance"
	LabelGeneralGuidance   = "General guidance available"
	LabelLimitedGuidance   = "Limited guidance - consult pediatrician"
)

// authorityMarkers are the source strings that upgrade a High answer to
// the medical-guidelines label.
var authorityMarkers = []string{"Pediatrician-recommended", "AAP", "CDC", "WHO"}

// Citation points a claim back to a catalog record.
type Citation struct {
	FoodName       string  `json:"food_name"`
	SourceURL      string  `json:"source_url"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Answer is the composed result handed back to the transport layer.
// RetrievedFoods is empty when a safety block fired.
type Answer struct {
	Text           string
	Confidence     string
	Citations      []Citation
	RetrievedFoods []catalog.FoodRecord
	GraphPath      []string
}

// ParentLabel translates an internal confidence tier into the
// parent-facing label. supporting is the text the answer draws on
// (notes plus sources); a recognized medical authority in it upgrades
// High to the medical-guidelines label. Pure function, total over its
// inputs.
func ParentLabel(internal retrieval.Confidence, supporting string) string {
	switch internal {
	case retrieval.ConfidenceHigh:
		for _, marker := range authorityMarkers {
			if strings.Contains(supporting, marker) {
				return LabelMedicalGuidelines
			}
		}
		return LabelWellEstablished
	case retrieval.ConfidenceMedium:
		return LabelGeneralGuidance
	default:
		return LabelLimitedGuidance
	}
}

// ComposeBlock renders a guardrail violation. The response is exactly
// three parts: a verdict line, a risk-specific guidance line, and a
// sources line. Nothing from normal composition may be appended.
func ComposeBlock(block *safety.Block) Answer {
	var verdict string
	if block.Severity == rules.SeverityCritical {
		verdict = fmt.Sprintf("❌ Not safe. Babies under %d months should not consume %s (%s).",
			block.AgeLimitMonths, strings.ToLower(block.Food), block.Reason)
	} else {
		verdict = fmt.Sprintf("⚠️ Caution required. Babies under %d months should not consume %s (%s).",
			block.AgeLimitMonths, strings.ToLower(block.Food), block.Reason)
	}

	parts := []string{verdict}
	switch block.RiskKind {
	case "botulism":
		parts = append(parts, "\U0001f6a8 Critical: This is a serious safety concern - never give honey to infants.")
	case "choking":
		parts = append(parts, "\U0001f504 Alternative: Wait until appropriate age or modify preparation.")
	case "anemia":
		parts = append(parts, "\U0001f95b Note: Small amounts in food are okay, but not as primary drink.")
	}
	parts = append(parts, "\U0001f4da Sources: "+block.Source)

	return Answer{
		Text:       strings.Join(parts, "\n"),
		Confidence: ParentLabel(retrieval.ConfidenceHigh, block.Source),
	}
}

// ComposeFromGraph renders a structured answer from a populated
// subgraph. Each section is omitted when its underlying fact is absent.
func ComposeFromGraph(parsed queryparser.ParsedQuery, sub *foodkg.Subgraph, cat *catalog.Catalog) Answer {
	food := cat.Lookup(parsed.Food)
	if food == nil {
		return Answer{
			Text:       "❌ No information found\n\U0001f4da Sources: Database",
			Confidence: ParentLabel(retrieval.ConfidenceLow, ""),
			GraphPath:  sub.GraphPath,
		}
	}

	queryLower := strings.ToLower(parsed.Question)
	var parts []string

	parts = append(parts, graphVerdict(food, sub, queryLower))

	if why := whyItMatters(food, queryLower); why != "" {
		parts = append(parts, "\n**Why it matters:** "+why)
	}
	if prep := prepInstruction(food); prep != "" {
		parts = append(parts, "\n**Prep:** "+prep)
	}
	if warn := keyWarning(food); warn != "" {
		parts = append(parts, "\n**Note:** "+warn)
	}
	if benefit := nutritionalBenefit(food, sub); benefit != "" {
		parts = append(parts, "\n**Benefit:** "+benefit)
	}
	if step := nextStep(food, queryLower); step != "" {
		parts = append(parts, "\n"+step)
	}
	parts = append(parts, "\n**Sources:** "+factSources(sub))

	supporting := food.Note + " " + factSources(sub)
	return Answer{
		Text:           strings.Join(parts, ""),
		Confidence:     ParentLabel(retrieval.ConfidenceHigh, supporting),
		Citations:      []Citation{{FoodName: food.Name, SourceURL: food.SourceURL, RelevanceScore: 1.0}},
		RetrievedFoods: []catalog.FoodRecord{*food},
		GraphPath:      sub.GraphPath,
	}
}

// graphVerdict produces the leading line: a safety verdict for safety
// questions, a nutrient statement for nutrient questions, a generic
// endorsement otherwise.
func graphVerdict(food *catalog.FoodRecord, sub *foodkg.Subgraph, queryLower string) string {
	name := strings.ToLower(food.Name)
	if strings.Contains(queryLower, "can i") || strings.Contains(queryLower, "safe") {
		if months, ok := sub.SafeAtMonths(); ok {
			return fmt.Sprintf("✅ **Yes, %s is safe** from %d months", name, months)
		}
		return fmt.Sprintf("✅ **Yes, %s is safe** for babies", name)
	}
	switch {
	case strings.Contains(queryLower, "protein"):
		return fmt.Sprintf("**%s provides** %.1fg protein per 100g", food.Name, food.ProteinG)
	case strings.Contains(queryLower, "iron"):
		return fmt.Sprintf("**%s contains** %.1fmg iron per 100g", food.Name, food.IronMg)
	case strings.Contains(queryLower, "vitamin c"):
		return fmt.Sprintf("**%s has** %.1fmg vitamin C per 100g", food.Name, food.VitCMg)
	default:
		return fmt.Sprintf("✅ **%s is** a nutritious %s", food.Name, strings.ToLower(food.Category))
	}
}

// prepInstruction prefers the typed prep text parsed at ingestion and
// falls back to keyword heuristics over the raw note.
func prepInstruction(food *catalog.FoodRecord) string {
	if food.Facts.PrepText != "" {
		return food.Facts.PrepText
	}
	note := strings.ToLower(food.Note)
	switch {
	case strings.Contains(note, "steam") || strings.Contains(note, "boil") || strings.Contains(note, "cook"):
		return "Cook until soft, then mash or puree"
	case strings.Contains(note, "raw") || strings.Contains(note, "fresh"):
		return "Serve raw, ensure it's clean and safe"
	case strings.Contains(note, "bake"):
		return "Bake until soft, then mash or puree"
	}
	return ""
}

// keyWarning prefers the typed warning text and falls back to
// risk-derived phrasing.
func keyWarning(food *catalog.FoodRecord) string {
	if food.Facts.WarningText != "" {
		return food.Facts.WarningText
	}
	for _, risk := range food.Facts.Risks {
		switch risk {
		case "choking":
			return "Potential choking hazard - ensure proper preparation"
		case "allergy":
			return "Watch for potential allergic reactions"
		}
	}
	return ""
}

// nutritionalBenefit states the strongest nutrient the subgraph
// asserts for the food, empty when the graph has no nutrient facts.
func nutritionalBenefit(food *catalog.FoodRecord, sub *foodkg.Subgraph) string {
	for _, fact := range sub.Facts {
		if fact.Relation != foodkg.RelContains && fact.Relation != foodkg.RelRichIn {
			continue
		}
		switch fact.Object {
		case "iron":
			return fmt.Sprintf("Good source of iron (%.1fmg per 100g)", food.IronMg)
		case "protein":
			return fmt.Sprintf("Good source of protein (%.1fg per 100g)", food.ProteinG)
		case "vitamin_a":
			return fmt.Sprintf("Good source of vitamin A (%.0fµg per 100g)", food.VitAUg)
		case "vitamin_c":
			return fmt.Sprintf("Good source of vitamin C (%.1fmg per 100g)", food.VitCMg)
		default:
			return "Good source of " + strings.ReplaceAll(fact.Object, "_", " ")
		}
	}
	return ""
}

// factSources joins the distinct fact sources in first-seen order,
// defaulting to the general guideline corpus.
func factSources(sub *foodkg.Subgraph) string {
	var sources []string
	seen := make(map[string]bool)
	for _, fact := range sub.Facts {
		if fact.Source == "" || seen[fact.Source] {
			continue
		}
		seen[fact.Source] = true
		sources = append(sources, fact.Source)
	}
	if len(sources) == 0 {
		return "AAP/CDC Guidelines"
	}
	return strings.Join(sources, ", ")
}

// ComposeFromRetrieval renders the fallback answer from ranked foods.
// An empty result is the caller's "not found" condition; this function
// assumes at least one scored food.
func ComposeFromRetrieval(question string, result retrieval.Result) Answer {
	top := result.Foods[0]
	internal := retrieval.ConfidenceFromScore(result.TopScore())

	var text string
	if internal == retrieval.ConfidenceLow {
		text = fmt.Sprintf("I'm not sure about '%s', but here's what we do know: %s is a %s with %s",
			question, top.Food.Name, strings.ToLower(top.Food.Category), strings.ToLower(top.Food.Note))
	} else {
		text = detailedRetrievalAnswer(question, result.Foods)
	}

	answer := Answer{
		Text:       text,
		Confidence: ParentLabel(internal, supportingNotes(result.Foods)),
	}
	for _, sf := range result.Foods {
		answer.RetrievedFoods = append(answer.RetrievedFoods, *sf.Food)
		if len(answer.Citations) < 3 {
			answer.Citations = append(answer.Citations, Citation{
				FoodName:       sf.Food.Name,
				SourceURL:      sf.Food.SourceURL,
				RelevanceScore: round3(sf.Score),
			})
		}
	}
	return answer
}

// detailedRetrievalAnswer picks a fixed per-nutrient template keyed on
// the question, else the generic most-relevant template.
func detailedRetrievalAnswer(question string, foods []retrieval.ScoredFood) string {
	queryLower := strings.ToLower(question)
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(queryLower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("iron", "anemia", "mineral"):
		ranked := rankBy(foods, func(f *catalog.FoodRecord) float64 { return f.IronMg })
		text := fmt.Sprintf("For iron content, %s contains %.1fmg iron per 100g", ranked[0].Name, ranked[0].IronMg)
		if len(ranked) > 1 {
			text += fmt.Sprintf(", and %s has %.1fmg iron per 100g", ranked[1].Name, ranked[1].IronMg)
		}
		return text
	case contains("vitamin a", "vision", "eye"):
		ranked := rankBy(foods, func(f *catalog.FoodRecord) float64 { return f.VitAUg })
		return fmt.Sprintf("For Vitamin A, %s provides %.0fµg per 100g", ranked[0].Name, ranked[0].VitAUg)
	case contains("vitamin c", "immune", "immunity"):
		ranked := rankBy(foods, func(f *catalog.FoodRecord) float64 { return f.VitCMg })
		return fmt.Sprintf("For Vitamin C, %s contains %.1fmg per 100g", ranked[0].Name, ranked[0].VitCMg)
	case contains("protein", "growth"):
		ranked := rankBy(foods, func(f *catalog.FoodRecord) float64 { return f.ProteinG })
		return fmt.Sprintf("For protein, %s provides %.1fg per 100g", ranked[0].Name, ranked[0].ProteinG)
	case contains("fiber", "digestion", "digestive"):
		ranked := rankBy(foods, func(f *catalog.FoodRecord) float64 { return f.FiberG })
		return fmt.Sprintf("For fiber, %s contains %.1fg per 100g", ranked[0].Name, ranked[0].FiberG)
	default:
		return fmt.Sprintf("Based on your question, %s seems most relevant. %s", foods[0].Food.Name, foods[0].Food.Note)
	}
}

// rankBy returns the retrieved records sorted descending by the given
// nutrient, without disturbing the caller's slice.
func rankBy(foods []retrieval.ScoredFood, value func(*catalog.FoodRecord) float64) []*catalog.FoodRecord {
	out := make([]*catalog.FoodRecord, len(foods))
	for i, sf := range foods {
		out[i] = sf.Food
	}
	sort.SliceStable(out, func(a, b int) bool { return value(out[a]) > value(out[b]) })
	return out
}

func supportingNotes(foods []retrieval.ScoredFood) string {
	var sb strings.Builder
	for _, sf := range foods {
		sb.WriteString(sf.Food.Note)
		sb.WriteByte(' ')
	}
	return sb.String()
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
