// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline wires the question-answering core: parse, graph
// retrieval, guardrails, and composition over an immutable data
// snapshot.
//
// # Description
//
// A Snapshot bundles everything derived from one read of the food CSV:
// the catalog, the knowledge graph, the graph retriever, and the hybrid
// scorer with its precomputed corpus embeddings. The Pipeline holds the
// current snapshot behind an atomic pointer; requests load it once and
// use it for their whole lifetime, so a concurrent Reload never gives a
// request a half-built view.
//
// # Thread Safety
//
// Snapshot contents are immutable after Build. Swap and Load are
// atomic. Ask performs no locking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/FirstSpoon/services/catalog"
	"github.com/AleutianAI/FirstSpoon/services/composer"
	"github.com/AleutianAI/FirstSpoon/services/foodkg"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/observability"
	"github.com/AleutianAI/FirstSpoon/services/queryparser"
	"github.com/AleutianAI/FirstSpoon/services/retrieval"
	"github.com/AleutianAI/FirstSpoon/services/safety"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

var tracer = otel.Tracer("firstspoon.pipeline")

// Snapshot is one immutable view of the loaded data and every index
// built from it.
type Snapshot struct {
	Catalog   *catalog.Catalog
	Graph     *foodkg.Graph
	Parser    *queryparser.Parser
	Retriever *foodkg.Retriever
	Guard     *safety.Engine
	Scorer    *retrieval.Scorer
}

// Config carries the pipeline's startup inputs.
type Config struct {
	DataPath string
	Table    *rules.Table
	Provider retrieval.EmbeddingProvider
	Logger   *slog.Logger
}

// Pipeline answers questions against the current snapshot and supports
// atomic reloads.
type Pipeline struct {
	cfg  Config
	snap atomic.Pointer[Snapshot]
}

// New builds the first snapshot and returns a ready pipeline. A load
// failure here is fatal to the caller: the service must not start
// without a valid catalog and safety table.
func New(ctx context.Context, cfg Config) (*Pipeline, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &Pipeline{cfg: cfg}
	snap, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.snap.Store(snap)
	if m := observability.DefaultMetrics; m != nil {
		m.LoadedFoods.Set(float64(snap.Catalog.Len()))
	}
	return p, nil
}

// Snapshot returns the current immutable snapshot.
func (p *Pipeline) Snapshot() *Snapshot { return p.snap.Load() }

// Reload rebuilds every index from the data file and swaps it in
// atomically. In-flight requests keep the snapshot they started with.
// On failure the previous snapshot stays active.
func (p *Pipeline) Reload(ctx context.Context) error {
	snap, err := p.build(ctx)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordReload(err == nil)
	}
	if err != nil {
		return err
	}
	p.snap.Store(snap)
	if m := observability.DefaultMetrics; m != nil {
		m.LoadedFoods.Set(float64(snap.Catalog.Len()))
	}
	p.cfg.Logger.Info("snapshot reloaded", "foods", snap.Catalog.Len())
	return nil
}

func (p *Pipeline) build(ctx context.Context) (*Snapshot, error) {
	cat, attrs, err := catalog.NewLoader(p.cfg.DataPath).Load()
	if err != nil {
		return nil, fmt.Errorf("loading food data: %w", err)
	}
	graph := foodkg.Build(cat, attrs, p.cfg.Table)
	return &Snapshot{
		Catalog:   cat,
		Graph:     graph,
		Parser:    queryparser.New(cat),
		Retriever: foodkg.NewRetriever(graph),
		Guard:     safety.NewEngine(p.cfg.Table),
		Scorer:    retrieval.NewScorer(ctx, cat, p.cfg.Provider, p.cfg.Logger),
	}, nil
}

// AnswerPath names the pipeline branch that produced an answer.
type AnswerPath string

const (
	PathBlocked   AnswerPath = "blocked"
	PathGraph     AnswerPath = "graph"
	PathRetrieval AnswerPath = "retrieval"
)

// Ask runs the full answer flow for one question and reports which
// branch produced the answer.
//
// Order is load-bearing: guardrails run before any composition, and a
// violation short-circuits to the block response with no retrieved
// foods attached. Only an empty subgraph falls through to the hybrid
// scorer.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (composer.Answer, AnswerPath, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Ask")
	defer span.End()

	snap := p.snap.Load()
	if snap.Catalog.Len() == 0 {
		return composer.Answer{}, PathRetrieval, ErrNoFoods
	}

	parsed := snap.Parser.Parse(question)
	span.SetAttributes(
		attribute.String("query.food", parsed.Food),
		attribute.String("query.intent", string(parsed.Intent)),
	)

	sub := snap.Retriever.Retrieve(parsed)

	if block := snap.Guard.Check(parsed, sub); block != nil {
		span.SetAttributes(
			attribute.String("safety.risk", block.RiskKind),
			attribute.String("safety.severity", string(block.Severity)),
		)
		p.cfg.Logger.Warn("safety block triggered",
			"food", block.Food, "risk", block.RiskKind, "severity", block.Severity)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordSafetyBlock(block.RiskKind, string(block.Severity))
		}
		return composer.ComposeBlock(block), PathBlocked, nil
	}

	if !sub.Empty() {
		return composer.ComposeFromGraph(parsed, &sub, snap.Catalog), PathGraph, nil
	}

	result := snap.Scorer.Retrieve(ctx, question, topK)
	if result.Empty() {
		return composer.Answer{}, PathRetrieval, ErrNoFoods
	}
	return composer.ComposeFromRetrieval(question, result), PathRetrieval, nil
}

// ErrNoFoods signals the empty-catalog / empty-result condition. The
// transport layer maps it to a not-found response.
var ErrNoFoods = errors.New("no relevant foods found")

// Watch reloads the snapshot whenever the data file changes. It blocks
// until ctx is canceled and is meant to run in its own goroutine.
func (p *Pipeline) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(p.cfg.DataPath); err != nil {
		return err
	}
	p.cfg.Logger.Info("watching data file for changes", "path", p.cfg.DataPath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.Reload(ctx); err != nil {
				p.cfg.Logger.Error("reload after file change failed, keeping previous snapshot",
					"error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.cfg.Logger.Error("data file watcher error", "error", err)
		}
	}
}
