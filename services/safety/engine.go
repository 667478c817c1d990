// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package safety evaluates guardrail rules against a parsed query and
// its knowledge graph subgraph.
//
// # Description
//
// The engine layers three checks with strict precedence; the first hit
// wins and produces a Block that bypasses all normal answer generation:
//
//  1. The static rule table (embedded at build time). This encodes
//     authorities that must never be weakened by incomplete or malformed
//     ingested data, which is why it runs before anything graph-derived.
//  2. Graph SAFE_AT facts: the stated age below a food's minimum safe
//     age yields a WARNING block citing the fact's source.
//  3. Graph HAS_RISK facts: botulism always blocks as CRITICAL
//     regardless of age; choking blocks as WARNING only under 12 months.
//
// Check is a total function: it never errors, and absence of a match is
// the normal "safe" path. Guardrails only apply when both a food and an
// age were parsed — without an age there is no threshold to compare.
//
// # Thread Safety
//
// An Engine is immutable after construction and safe for concurrent use.
package safety

import (
	"fmt"

	"github.com/AleutianAI/FirstSpoon/services/foodkg"
	"github.com/AleutianAI/FirstSpoon/services/queryparser"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

// Block records a triggered safety rule. It is a terminal,
// non-overridable verdict: the composer renders it and nothing else.
type Block struct {
	Food           string         `json:"food"`
	AgeLimitMonths int            `json:"age_limit_months"`
	RiskKind       string         `json:"risk_kind"`
	Reason         string         `json:"reason"`
	Source         string         `json:"source"`
	Severity       rules.Severity `json:"severity"`
}

// Engine evaluates guardrails against the static table and graph facts.
type Engine struct {
	table *rules.Table
}

// NewEngine creates an Engine over a loaded rule table.
func NewEngine(table *rules.Table) *Engine {
	return &Engine{table: table}
}

// Check returns the first triggered block, or nil when the query is not
// blocked. See the package documentation for the precedence contract.
func (e *Engine) Check(parsed queryparser.ParsedQuery, sub foodkg.Subgraph) *Block {
	if parsed.Food == "" || parsed.AgeMonths == nil {
		return nil
	}
	age := *parsed.AgeMonths

	if rule := e.table.FirstViolated(parsed.Food, age); rule != nil {
		return &Block{
			Food:           rule.Food,
			AgeLimitMonths: rule.MinMonths,
			RiskKind:       rule.Risk,
			Reason:         rule.Reason,
			Source:         rule.Source,
			Severity:       rule.Severity,
		}
	}

	// Graph-derived age rule. The graph keeps at most one SAFE_AT fact
	// per food with the most restrictive threshold already applied.
	for _, fact := range sub.Facts {
		if fact.Relation != foodkg.RelSafeAt {
			continue
		}
		if age < fact.MinMonths {
			return &Block{
				Food:           parsed.Food,
				AgeLimitMonths: fact.MinMonths,
				RiskKind:       "age_restriction",
				Reason:         fmt.Sprintf("not recommended for babies under %d months", fact.MinMonths),
				Source:         fact.Source,
				Severity:       rules.SeverityWarning,
			}
		}
	}

	// Graph-derived risk rule.
	for _, fact := range sub.Facts {
		if fact.Relation != foodkg.RelHasRisk {
			continue
		}
		switch fact.Object {
		case "botulism":
			return &Block{
				Food:           parsed.Food,
				AgeLimitMonths: 12,
				RiskKind:       "botulism",
				Reason:         "risk of infant botulism",
				Source:         fact.Source,
				Severity:       rules.SeverityCritical,
			}
		case "choking":
			if age < 12 {
				return &Block{
					Food:           parsed.Food,
					AgeLimitMonths: age,
					RiskKind:       "choking",
					Reason:         "choking hazard for young babies",
					Source:         fact.Source,
					Severity:       rules.SeverityWarning,
				}
			}
		}
	}

	return nil
}
