// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package queryparser extracts a target food, an age in months, and an
// intent category from a free-text question.
//
// # Description
//
// Parsing is pure string work with no side effects and no failure modes:
// an unrecognized food or a question without an age produce nil fields,
// never errors. Downstream components handle the nil cases explicitly.
//
// # Known Limitation
//
// Food matching is case-insensitive substring containment against catalog
// names, so short names can false-positive inside longer ones ("pea"
// matches inside "peanut"). Ties are broken by catalog iteration order,
// which the catalog fixes to the source file order.
package queryparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
)

// Intent is the closed set of question categories.
type Intent string

const (
	IntentSafety      Intent = "safety"
	IntentNutrition   Intent = "nutrition"
	IntentPreparation Intent = "preparation"
	IntentGeneral     Intent = "general"
)

// ParsedQuery is the per-request parse result, consumed read-only by the
// graph retriever, guardrail engine and composer.
type ParsedQuery struct {
	// Food is the catalog name of the matched food, empty when none
	// matched. Resolved case-insensitively against the catalog.
	Food string

	// AgeMonths is the extracted age, nil when the question names none.
	AgeMonths *int

	// Intent is the classified question category.
	Intent Intent

	// Question is the original text, unmodified.
	Question string
}

// agePatterns are tried in order; the first match wins. The broad trailing
// "N months" pattern must stay last.
var agePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*months?\s*old`),
	regexp.MustCompile(`(\d+)\s*mo\s*old`),
	regexp.MustCompile(`my\s*(\d+)\s*month`),
	regexp.MustCompile(`(\d+)\s*m\s*old`),
	regexp.MustCompile(`(\d+)\s*months?`),
}

// pluralVariations maps common plural forms to their canonical catalog
// name. Only consulted when direct substring matching finds nothing.
// Ordered slice, not a map, so repeated parses match deterministically.
var pluralVariations = []struct{ variation, canonical string }{
	{"apples", "apple"},
	{"bananas", "banana"},
	{"eggs", "egg"},
	{"carrots", "carrot"},
	{"peas", "peas"},
}

var (
	safetyKeywords    = []string{"safe", "can", "okay", "give", "introduce", "start"}
	nutritionKeywords = []string{"protein", "iron", "vitamin", "nutrition", "healthy"}
	prepKeywords      = []string{"prepare", "cook", "make", "serve", "texture"}
)

// Parser resolves food names against a fixed catalog.
type Parser struct {
	catalog *catalog.Catalog
}

// New creates a Parser over the given catalog snapshot.
func New(c *catalog.Catalog) *Parser {
	return &Parser{catalog: c}
}

// Parse extracts food, age and intent from a question.
func (p *Parser) Parse(question string) ParsedQuery {
	lower := strings.ToLower(question)
	return ParsedQuery{
		Food:      p.extractFood(lower),
		AgeMonths: extractAge(lower),
		Intent:    classifyIntent(lower),
		Question:  question,
	}
}

func extractAge(lower string) *int {
	for _, pattern := range agePatterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			age, err := strconv.Atoi(m[1])
			if err != nil || age < 0 {
				continue
			}
			return &age
		}
	}
	return nil
}

func (p *Parser) extractFood(lower string) string {
	for _, name := range p.catalog.Names() {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	for _, pv := range pluralVariations {
		if strings.Contains(lower, pv.variation) {
			if rec := p.catalog.Lookup(pv.canonical); rec != nil {
				return rec.Name
			}
		}
	}
	return ""
}

// classifyIntent tests keyword sets in fixed priority order:
// safety > nutrition > preparation > general.
func classifyIntent(lower string) Intent {
	contains := func(keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
	switch {
	case contains(safetyKeywords):
		return IntentSafety
	case contains(nutritionKeywords):
		return IntentNutrition
	case contains(prepKeywords):
		return IntentPreparation
	default:
		return IntentGeneral
	}
}
