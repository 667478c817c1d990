// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package foodkg builds and queries the infant food knowledge graph.
//
// # Description
//
// The graph is a directed multigraph of typed nodes (foods, age
// thresholds, allergens, nutrients, safety risks) built once at startup
// from the food catalog, the attribute rows of the source data, and the
// shared safety rule table. It is read-only for the lifetime of a
// process snapshot: a data reload builds a whole new graph, it never
// patches a live one.
//
// # Invariant
//
// Every food node has at most one outgoing SAFE_AT edge, pointing at the
// minimum safe age known from any source. When sources disagree the most
// restrictive (highest) threshold wins; setSafeAt enforces this
// explicitly rather than relying on insertion order.
//
// # Thread Safety
//
// A built Graph is immutable and safe for concurrent readers. Building
// is single-threaded.
package foodkg

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind types a graph entity.
type NodeKind string

const (
	KindFood     NodeKind = "food"
	KindAgeGroup NodeKind = "age_group"
	KindAllergen NodeKind = "allergen"
	KindNutrient NodeKind = "nutrient"
	KindRisk     NodeKind = "safety_risk"
)

// Relation is the closed edge vocabulary.
type Relation string

const (
	RelSafeAt              Relation = "SAFE_AT"
	RelHasRisk             Relation = "HAS_RISK"
	RelContains            Relation = "CONTAINS"
	RelContainsAllergen    Relation = "CONTAINS_ALLERGEN"
	RelRichIn              Relation = "RICH_IN"
	RelSameAgeGroup        Relation = "SAME_AGE_GROUP"
	RelNutritionalAlt      Relation = "NUTRITIONAL_ALTERNATIVE"
	RelSimilarSafetyProfil Relation = "SIMILAR_SAFETY_PROFILE"
)

// Node is one typed graph entity. MinMonths is meaningful only for
// age-group nodes.
type Node struct {
	ID        string
	Kind      NodeKind
	Name      string
	MinMonths int
}

// Edge is a typed, sourced relation between two nodes. Confidence
// defaults to 1.0.
type Edge struct {
	From       string
	To         string
	Relation   Relation
	Source     string
	Confidence float64
}

// Graph is the directed multigraph. Outgoing edges keep stable insertion
// order; the retriever's fact order, and therefore the guardrail
// engine's first-match behavior, depends on it.
type Graph struct {
	nodes map[string]*Node
	order []string
	out   map[string][]Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]Edge),
	}
}

func foodNodeID(name string) string { return "FOOD:" + name }
func ageNodeID(months int) string   { return "AGE:" + strconv.Itoa(months) }
func riskNodeID(kind string) string { return "RISK:" + kind }
func nutrientNodeID(n string) string {
	return "NUTRIENT:" + strings.ReplaceAll(strings.ToLower(n), " ", "_")
}
func allergenNodeID(a string) string { return "ALLERGEN:" + strings.ToLower(a) }

func (g *Graph) ensureNode(n Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	node := n
	g.nodes[node.ID] = &node
	g.order = append(g.order, node.ID)
	return &node
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// FoodNode returns the food node for a catalog name, or nil.
func (g *Graph) FoodNode(name string) *Node {
	return g.nodes[foodNodeID(name)]
}

// Out returns the outgoing edges of a node in insertion order. Callers
// must not modify the returned slice.
func (g *Graph) Out(id string) []Edge {
	return g.out[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.out {
		total += len(edges)
	}
	return total
}

// AddFood inserts a food node.
func (g *Graph) AddFood(name string) {
	g.ensureNode(Node{ID: foodNodeID(name), Kind: KindFood, Name: name})
}

func (g *Graph) addEdge(from, to string, rel Relation, source string) {
	g.out[from] = append(g.out[from], Edge{
		From:       from,
		To:         to,
		Relation:   rel,
		Source:     source,
		Confidence: 1.0,
	})
}

// setSafeAt records the minimum safe age for a food, keeping at most one
// SAFE_AT edge per food node. A later, less restrictive threshold never
// replaces an earlier stricter one; a stricter one replaces in place so
// the edge keeps its position in the enumeration order.
func (g *Graph) setSafeAt(foodName string, months int, source string) {
	from := foodNodeID(foodName)
	for i, e := range g.out[from] {
		if e.Relation != RelSafeAt {
			continue
		}
		existing := g.nodes[e.To].MinMonths
		if months <= existing {
			return
		}
		g.ensureNode(Node{ID: ageNodeID(months), Kind: KindAgeGroup,
			Name: fmt.Sprintf("%d months", months), MinMonths: months})
		g.out[from][i].To = ageNodeID(months)
		g.out[from][i].Source = source
		return
	}
	g.ensureNode(Node{ID: ageNodeID(months), Kind: KindAgeGroup,
		Name: fmt.Sprintf("%d months", months), MinMonths: months})
	g.addEdge(from, ageNodeID(months), RelSafeAt, source)
}

// addRisk links a food to a risk node, deduplicating on the risk kind.
// The first source to assert a risk keeps the citation; the rule table
// runs before the note scan, so table authority wins.
func (g *Graph) addRisk(foodName, kind, source string) {
	from := foodNodeID(foodName)
	to := riskNodeID(kind)
	for _, e := range g.out[from] {
		if e.Relation == RelHasRisk && e.To == to {
			return
		}
	}
	g.ensureNode(Node{ID: to, Kind: KindRisk, Name: kind})
	g.addEdge(from, to, RelHasRisk, source)
}

func (g *Graph) addNutrient(foodName, nutrient string, rel Relation, source string) {
	to := nutrientNodeID(nutrient)
	g.ensureNode(Node{ID: to, Kind: KindNutrient, Name: nutrient})
	g.addEdge(foodNodeID(foodName), to, rel, source)
}

func (g *Graph) addAllergen(foodName, allergen, source string) {
	to := allergenNodeID(allergen)
	g.ensureNode(Node{ID: to, Kind: KindAllergen, Name: allergen})
	g.addEdge(foodNodeID(foodName), to, RelContainsAllergen, source)
}

func (g *Graph) addFoodPair(a, b string, rel Relation, source string) {
	g.addEdge(foodNodeID(a), foodNodeID(b), rel, source)
}
