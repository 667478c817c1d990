// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rules loads and validates the authoritative infant feeding
// safety table.
//
// # Description
//
// The table is embedded YAML (see the enforcement package). It is loaded
// once at process startup; a malformed table is a configuration error
// and must be fatal, since every safety guarantee downstream depends on
// this table being well-formed. The table is never mutated at runtime.
//
// The same entries drive two consumers with different matching logic:
//
//   - the knowledge graph builder (Matchers against catalog records)
//   - the guardrail engine's static critical check (Food name against
//     the parsed query, substring in either direction)
//
// Historically these were two hand-maintained lists that could drift
// apart; a single table closes that gap.
package rules

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/FirstSpoon/services/safety/enforcement"
)

// Table is the ordered, immutable safety rule set. Entries keep their
// declared order; the first matching entry wins in both consumers.
type Table struct {
	Rules []Rule
}

// Load parses and validates the embedded rule table.
//
// Returns an error when the YAML is malformed or any entry fails
// validation (missing reason, negative threshold, unknown severity,
// matcher without name_contains). Callers treat this as fatal.
func Load() (*Table, error) {
	return parse(enforcement.SafetyRulePatterns)
}

func parse(raw []byte) (*Table, error) {
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded safety rule table: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("the safety rule table is empty")
	}

	validate := validator.New()
	for i, rule := range file.Rules {
		if err := validate.Struct(rule); err != nil {
			return nil, fmt.Errorf("safety rule %d (%q) is malformed: %w", i, rule.Food, err)
		}
	}
	return &Table{Rules: file.Rules}, nil
}

// MatchFood returns the first rule whose Matchers select the given
// catalog food. Name and note are compared lowercased.
func (t *Table) MatchFood(name, note string) *Rule {
	nameLower := strings.ToLower(name)
	noteLower := strings.ToLower(note)
	for i := range t.Rules {
		for _, m := range t.Rules[i].Matchers {
			if !strings.Contains(nameLower, strings.ToLower(m.NameContains)) {
				continue
			}
			if m.NoteContains != "" && !strings.Contains(noteLower, strings.ToLower(m.NoteContains)) {
				continue
			}
			return &t.Rules[i]
		}
	}
	return nil
}

// FirstViolated returns the first rule whose display name matches the
// parsed query food by case-insensitive substring in either direction
// and whose age threshold the stated age falls below. Rules whose
// threshold is satisfied do not shadow later rules.
//
// The both-directions check is deliberate: "honey" must match a query
// for "raw honey" and a query for "honey" must match "Honey". It is also
// a known precision gap for short names ("pea" inside "peanut"); the
// source data does not disambiguate, so neither do we.
func (t *Table) FirstViolated(queryFood string, ageMonths int) *Rule {
	foodLower := strings.ToLower(queryFood)
	for i := range t.Rules {
		ruleLower := strings.ToLower(t.Rules[i].Food)
		if !strings.Contains(foodLower, ruleLower) && !strings.Contains(ruleLower, foodLower) {
			continue
		}
		if ageMonths < t.Rules[i].MinMonths {
			return &t.Rules[i]
		}
	}
	return nil
}
