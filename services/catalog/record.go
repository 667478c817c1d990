// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog holds the immutable in-memory food catalog.
//
// # Description
//
// The catalog is loaded once at startup from a CSV file and is thereafter
// read-only; it may be shared freely across concurrent requests without
// locking. A data refresh never mutates a live catalog: the loader builds
// a brand new Catalog and the orchestrator atomically swaps the snapshot
// that references it.
//
// Each FoodRecord carries a free-text note from the source data. The note
// is parsed exactly once at ingestion into typed NoteFacts so downstream
// components (graph builder, answer composer) consume structured fields
// instead of re-scanning the raw string per request.
package catalog

import (
	"strings"
)

// FoodRecord is one immutable catalog entry. Name is the unique,
// case-insensitive key. Records are referenced, never copied or mutated,
// by every other component.
type FoodRecord struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	KcalPer100 float64 `json:"kcal_100g"`
	ProteinG   float64 `json:"protein_g"`
	FiberG     float64 `json:"fiber_g"`
	IronMg     float64 `json:"iron_mg"`
	VitAUg     float64 `json:"vit_a_ug"`
	VitCMg     float64 `json:"vit_c_mg"`
	SourceURL  string  `json:"usda_url"`
	Note       string  `json:"note"`

	// Facts is the typed parse of Note, produced once at load time.
	Facts NoteFacts `json:"-"`
}

// Description returns the searchable text for this record:
// "name category note".
func (f *FoodRecord) Description() string {
	return f.Name + " " + f.Category + " " + f.Note
}

// NoteFacts is the structured form of a FoodRecord note. Absent fields
// stay at their zero value; MinSafeMonths is nil when the note names no
// age threshold.
type NoteFacts struct {
	// PrepText is the preparation guidance ("How to prepare: ..." segment).
	PrepText string

	// WarningText is the safety warning ("Watch out for: ..." segment).
	WarningText string

	// Risks are the hazard keywords found in the note, in detection order:
	// choking, allergy, nitrate, botulism.
	Risks []string

	// MinSafeMonths is the minimum safe introduction age stated in the
	// note, nil when the note is silent.
	MinSafeMonths *int

	// Authorities are the recognized medical-authority markers present
	// in the note (AAP, CDC, WHO, Pediatrician-recommended).
	Authorities []string
}

// HasRisk reports whether the given risk keyword was detected in the note.
func (n *NoteFacts) HasRisk(kind string) bool {
	for _, r := range n.Risks {
		if r == kind {
			return true
		}
	}
	return false
}

// authorityMarkers are the source strings that count as medical
// authorities for confidence translation.
var authorityMarkers = []string{"AAP", "CDC", "WHO", "Pediatrician-recommended"}

// ParseNote extracts typed facts from a delimited note string.
//
// The source data packs preparation, warnings, age thresholds and risk
// keywords into one '|'-delimited field. This runs once per record at
// ingestion; nothing downstream re-parses the raw note.
func ParseNote(note string) NoteFacts {
	facts := NoteFacts{}
	lower := strings.ToLower(note)

	for _, segment := range strings.Split(note, "|") {
		trimmed := strings.TrimSpace(segment)
		segLower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(segLower, "how to prepare:"):
			facts.PrepText = strings.TrimSpace(trimmed[len("how to prepare:"):])
		case strings.HasPrefix(segLower, "watch out for:"):
			facts.WarningText = strings.TrimSpace(trimmed[len("watch out for:"):])
		}
	}

	for _, risk := range []string{"choking", "allergy", "nitrate", "botulism"} {
		if strings.Contains(lower, risk) {
			facts.Risks = append(facts.Risks, risk)
		}
	}
	// "contains allergens" style notes flag the allergy risk too.
	if strings.Contains(lower, "allergen") && !facts.HasRisk("allergy") {
		facts.Risks = append(facts.Risks, "allergy")
	}

	switch {
	case strings.Contains(lower, "safe from 6 months"):
		six := 6
		facts.MinSafeMonths = &six
	case strings.Contains(lower, "safe from 12 months"):
		twelve := 12
		facts.MinSafeMonths = &twelve
	}

	for _, marker := range authorityMarkers {
		if strings.Contains(note, marker) {
			facts.Authorities = append(facts.Authorities, marker)
		}
	}

	return facts
}

// AttributeRow carries the optional structured columns of the source data
// (beyond the core nutrient fields). The graph builder consumes these to
// enrich the knowledge graph; any field may be empty.
type AttributeRow struct {
	FoodName           string
	MinMonthSafe       *int
	Allergens          []string
	Risks              []string
	NutrientHighlights []string
}

// Catalog is the immutable collection of food records. Iteration order is
// the source file order and is fixed for the catalog's lifetime; the query
// parser's first-match tie break depends on it.
type Catalog struct {
	foods  []FoodRecord
	byName map[string]*FoodRecord
}

// NewCatalog builds a Catalog from loaded records. The slice is owned by
// the catalog afterwards.
func NewCatalog(foods []FoodRecord) *Catalog {
	c := &Catalog{foods: foods, byName: make(map[string]*FoodRecord, len(foods))}
	for i := range c.foods {
		c.byName[strings.ToLower(c.foods[i].Name)] = &c.foods[i]
	}
	return c
}

// Foods returns all records in catalog iteration order. Callers must not
// modify the returned slice.
func (c *Catalog) Foods() []FoodRecord {
	return c.foods
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.foods)
}

// Lookup resolves a food by case-insensitive name. Returns nil when the
// name is unknown.
func (c *Catalog) Lookup(name string) *FoodRecord {
	return c.byName[strings.ToLower(name)]
}

// Names returns the food names in catalog iteration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.foods))
	for i := range c.foods {
		names[i] = c.foods[i].Name
	}
	return names
}

// Descriptions returns the searchable text for every record, aligned with
// Foods() order.
func (c *Catalog) Descriptions() []string {
	descs := make([]string, len(c.foods))
	for i := range c.foods {
		descs[i] = c.foods[i].Description()
	}
	return descs
}
