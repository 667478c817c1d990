// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package foodkg

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/FirstSpoon/services/queryparser"
)

// Fact is a materialized (subject, relation, object, source, confidence)
// tuple produced when querying the graph. Stateless, value-typed.
type Fact struct {
	Subject    string   `json:"subject"`
	Relation   Relation `json:"relation"`
	Object     string   `json:"object"`
	Source     string   `json:"source"`
	Confidence float64  `json:"confidence"`

	// MinMonths carries the age threshold for SAFE_AT facts so the
	// guardrail engine does not re-parse Object. Zero otherwise.
	MinMonths int `json:"-"`
}

// Subgraph is the bounded set of facts reachable from one food node,
// used to answer a single query. Ephemeral, one per request.
type Subgraph struct {
	Facts       []Fact   `json:"facts"`
	GraphPath   []string `json:"graph_path"`
	SafetyFlags []string `json:"safety_flags"`
}

// Empty reports whether the subgraph carries no facts.
func (s *Subgraph) Empty() bool { return len(s.Facts) == 0 }

// SafeAtMonths returns the age threshold of the subgraph's SAFE_AT
// fact, if one is present. A built graph holds at most one per food.
func (s *Subgraph) SafeAtMonths() (int, bool) {
	for _, fact := range s.Facts {
		if fact.Relation == RelSafeAt {
			return fact.MinMonths, true
		}
	}
	return 0, false
}

// Retriever materializes per-request subgraphs from a built graph.
type Retriever struct {
	graph *Graph
}

// NewRetriever wraps a built graph.
func NewRetriever(g *Graph) *Retriever {
	return &Retriever{graph: g}
}

// Retrieve enumerates every outgoing edge of the parsed food's node and
// emits one fact per edge, in the graph's insertion order. That order is
// deliberately not re-sorted: the guardrail engine's first-match logic
// must be deterministic across identical requests.
//
// A query without a food, or with a food that has no node, yields an
// empty subgraph — that is the normal fallback path, not an error.
//
// Safety flags are appended for HAS_RISK facts (flag = the risk kind)
// and for SAFE_AT facts whose threshold the stated age falls below
// (flag = "too_young_for_<food>").
func (r *Retriever) Retrieve(parsed queryparser.ParsedQuery) Subgraph {
	if parsed.Food == "" {
		return Subgraph{}
	}
	node := r.graph.FoodNode(parsed.Food)
	if node == nil {
		return Subgraph{}
	}

	sub := Subgraph{GraphPath: []string{parsed.Food}}
	for _, edge := range r.graph.Out(node.ID) {
		target := r.graph.Node(edge.To)
		fact := Fact{
			Subject:    parsed.Food,
			Relation:   edge.Relation,
			Object:     objectLabel(target),
			Source:     edge.Source,
			Confidence: edge.Confidence,
		}
		if edge.Relation == RelSafeAt {
			fact.MinMonths = target.MinMonths
		}
		sub.Facts = append(sub.Facts, fact)
		sub.GraphPath = append(sub.GraphPath,
			fmt.Sprintf("%s --%s--> %s", parsed.Food, edge.Relation, fact.Object))

		switch {
		case edge.Relation == RelHasRisk:
			sub.SafetyFlags = append(sub.SafetyFlags, fact.Object)
		case edge.Relation == RelSafeAt && parsed.AgeMonths != nil && *parsed.AgeMonths < target.MinMonths:
			sub.SafetyFlags = append(sub.SafetyFlags,
				"too_young_for_"+strings.ToLower(parsed.Food))
		}
	}
	return sub
}

// objectLabel renders the fact object the way downstream consumers and
// citations expect: the bare threshold for age nodes, the entity name
// otherwise, falling back to the raw node ID.
func objectLabel(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindAgeGroup:
		return fmt.Sprintf("%d", n.MinMonths)
	default:
		if n.Name != "" {
			return n.Name
		}
		return n.ID
	}
}
