// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Loader reads food records and attribute rows from a CSV file.
//
// # Description
//
// The expected header carries the core columns
// (name, category, kcal_100g, protein_g, fiber_g, iron_mg, vit_a_ug,
// vit_c_mg, usda_url, note) plus optional attribute columns
// (min_month_safe, allergens, risks, nutrient_highlights). Columns are
// resolved by header name, not position, so the data file can evolve
// without breaking the loader.
//
// Load is called at startup and on every data reload; it always produces
// a fresh Catalog and never touches a previously returned one.
type Loader struct {
	Path string
}

// NewLoader creates a Loader for the given CSV path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load reads the CSV and returns the catalog plus the attribute rows for
// the graph builder. A file with only a header yields an empty catalog,
// which is legal: retrieval over an empty catalog returns empty results.
func (l *Loader) Load() (*Catalog, []AttributeRow, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open the food data file %s: %w", l.Path, err)
	}
	defer f.Close()
	return l.read(f)
}

func (l *Loader) read(r io.Reader) (*Catalog, []AttributeRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("food data file %s is empty", l.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read the CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "category", "note"} {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("food data file is missing the required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	numField := func(row []string, name string) (float64, error) {
		raw := field(row, name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return v, nil
	}

	var foods []FoodRecord
	var attrs []AttributeRow
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read line %d of the food data: %w", line, err)
		}

		rec := FoodRecord{
			Name:      field(row, "name"),
			Category:  field(row, "category"),
			SourceURL: field(row, "usda_url"),
			Note:      field(row, "note"),
		}
		if rec.Name == "" {
			return nil, nil, fmt.Errorf("line %d of the food data has an empty name", line)
		}
		for _, nc := range []struct {
			col string
			dst *float64
		}{
			{"kcal_100g", &rec.KcalPer100},
			{"protein_g", &rec.ProteinG},
			{"fiber_g", &rec.FiberG},
			{"iron_mg", &rec.IronMg},
			{"vit_a_ug", &rec.VitAUg},
			{"vit_c_mg", &rec.VitCMg},
		} {
			v, err := numField(row, nc.col)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d of the food data: %w", line, err)
			}
			*nc.dst = v
		}
		rec.Facts = ParseNote(rec.Note)
		foods = append(foods, rec)

		attr := AttributeRow{
			FoodName:           rec.Name,
			Allergens:          splitList(field(row, "allergens"), ","),
			Risks:              splitList(field(row, "risks"), ";"),
			NutrientHighlights: splitList(field(row, "nutrient_highlights"), ","),
		}
		if raw := field(row, "min_month_safe"); raw != "" {
			months, err := strconv.Atoi(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d of the food data: column min_month_safe: %w", line, err)
			}
			attr.MinMonthSafe = &months
		}
		attrs = append(attrs, attr)
	}

	return NewCatalog(foods), attrs, nil
}

func splitList(raw, sep string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
