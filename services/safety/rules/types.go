// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Severity classifies how a triggered rule must be surfaced.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// UnmarshalYAML rejects any severity outside the closed set. A typo in
// the rule table must fail the load, not silently downgrade a block.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	incoming := Severity(raw)
	switch incoming {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		*s = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for severity: %q", incoming)
	}
}

// Matcher selects catalog foods this rule applies to during graph
// construction. NameContains is a case-insensitive substring on the food
// name; NoteContains, when set, additionally requires a case-insensitive
// substring in the food's note.
type Matcher struct {
	NameContains string `yaml:"name_contains" validate:"required"`
	NoteContains string `yaml:"note_contains"`
}

// Rule is one entry of the authoritative safety table.
//
// The guardrail engine matches Food against the parsed query food by
// substring in either direction; the graph builder matches Matchers
// against catalog records. Both read MinMonths, Risk, Reason, Source and
// Severity from the same entry, so the two consumers cannot diverge.
type Rule struct {
	Food      string    `yaml:"food" validate:"required"`
	MinMonths int       `yaml:"min_months" validate:"gte=0"`
	Risk      string    `yaml:"risk" validate:"required"`
	Reason    string    `yaml:"reason" validate:"required"`
	Source    string    `yaml:"source" validate:"required"`
	Severity  Severity  `yaml:"severity" validate:"required"`
	Matchers  []Matcher `yaml:"matchers" validate:"required,min=1,dive"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}
