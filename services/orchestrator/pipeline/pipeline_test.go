// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FirstSpoon/services/retrieval"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

const csvHeader = "name,category,kcal_100g,protein_g,fiber_g,iron_mg,vit_a_ug,vit_c_mg,usda_url,note\n"

const fullCSV = csvHeader +
	`Honey,Sweetener,304,0.3,0.2,0.42,0,0.5,https://fdc.nal.usda.gov/honey,Never give before 12 months - risk of infant botulism (AAP)
Avocado,Fruit,160,2,6.7,0.55,7,10,https://fdc.nal.usda.gov/avocado,Safe from 6 months | How to prepare: mash until smooth
Spinach,Vegetable,23,2.9,2.2,2.7,469,28,https://fdc.nal.usda.gov/spinach,Safe from 6 months | Watch out for: nitrate content
Banana,Fruit,89,1.1,2.6,0.26,3,8.7,https://fdc.nal.usda.gov/banana,Safe from 6 months | How to prepare: mash ripe banana
Chicken,Protein,165,27,0,1.3,6,0,https://fdc.nal.usda.gov/chicken,Safe from 6 months | How to prepare: shred finely
Whole Grapes,Fruit,69,0.7,0.9,0.36,3,3.2,https://fdc.nal.usda.gov/grapes,Choking hazard - always quarter lengthwise
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foods.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestPipeline(t *testing.T, csv string) *Pipeline {
	t.Helper()
	table, err := rules.Load()
	require.NoError(t, err)

	p, err := New(context.Background(), Config{
		DataPath: writeCSV(t, csv),
		Table:    table,
		Provider: retrieval.NewTokenFrequencyProvider(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return p
}

func TestAskBlocksHoneyForInfant(t *testing.T) {
	p := newTestPipeline(t, fullCSV)

	answer, path, err := p.Ask(context.Background(), "Can my 6 month old have honey?", 3)
	require.NoError(t, err)

	assert.Equal(t, PathBlocked, path)
	assert.Contains(t, answer.Text, "❌ Not safe. Babies under 12 months should not consume honey")
	assert.Contains(t, answer.Text, "never give honey to infants")
	assert.Empty(t, answer.RetrievedFoods)
	assert.Empty(t, answer.Citations)
}

func TestAskBlocksWholeGrapesForToddler(t *testing.T) {
	p := newTestPipeline(t, fullCSV)

	answer, path, err := p.Ask(context.Background(), "Can my 8 month old eat whole grapes?", 3)
	require.NoError(t, err)

	assert.Equal(t, PathBlocked, path)
	assert.Contains(t, answer.Text, "should not consume whole grapes (choking hazard)")
}

func TestAskGraphPathForKnownFood(t *testing.T) {
	p := newTestPipeline(t, fullCSV)

	answer, path, err := p.Ask(context.Background(), "Is avocado safe for my 7 month old?", 3)
	require.NoError(t, err)

	assert.Equal(t, PathGraph, path)
	assert.Contains(t, answer.Text, "avocado is safe")
	assert.Contains(t, answer.Text, "**Prep:** mash until smooth")
	assert.NotEmpty(t, answer.GraphPath)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "Avocado", answer.Citations[0].FoodName)
}

func TestAskFallsBackToRetrieval(t *testing.T) {
	p := newTestPipeline(t, fullCSV)

	answer, path, err := p.Ask(context.Background(), "Which foods are high in iron?", 3)
	require.NoError(t, err)

	assert.Equal(t, PathRetrieval, path)
	assert.Contains(t, answer.Text, "For iron content, Spinach contains 2.7mg iron per 100g")
	assert.NotEmpty(t, answer.RetrievedFoods)
}

func TestAskEmptyCatalog(t *testing.T) {
	p := newTestPipeline(t, csvHeader)

	_, _, err := p.Ask(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNoFoods)
}

func TestReloadSwapsSnapshot(t *testing.T) {
	table, err := rules.Load()
	require.NoError(t, err)

	path := writeCSV(t, csvHeader+
		"Banana,Fruit,89,1.1,2.6,0.26,3,8.7,https://fdc.nal.usda.gov/banana,Safe from 6 months\n")
	p, err := New(context.Background(), Config{
		DataPath: path,
		Table:    table,
		Provider: retrieval.NewTokenFrequencyProvider(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, p.Snapshot().Catalog.Len())

	require.NoError(t, os.WriteFile(path, []byte(fullCSV), 0o644))
	require.NoError(t, p.Reload(context.Background()))
	assert.Equal(t, 6, p.Snapshot().Catalog.Len())

	t.Run("failed reload keeps previous snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("not,a,valid,header\n"), 0o644))
		assert.Error(t, p.Reload(context.Background()))
		assert.Equal(t, 6, p.Snapshot().Catalog.Len())
	})
}

func TestAskKeepsSnapshotPerRequest(t *testing.T) {
	p := newTestPipeline(t, fullCSV)

	before := p.Snapshot()
	_, _, err := p.Ask(context.Background(), "Is banana safe?", 3)
	require.NoError(t, err)
	assert.Same(t, before, p.Snapshot())
}
