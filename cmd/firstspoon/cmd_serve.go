// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/FirstSpoon/pkg/ux"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/middleware"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/observability"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/pipeline"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/routes"
	"github.com/AleutianAI/FirstSpoon/services/retrieval"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

var (
	servePort     string
	serveDataPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FirstSpoon answer service",
	Long: `Serve loads the food catalog, builds the knowledge graph and retrieval
indexes, and starts the HTTP answer service on the given port.

This is the same service the Docker deployment runs; the command exists
so a local catalog can be served without a container. OTLP tracing is
not wired here - use the service binary for traced deployments.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "12310", "port to listen on")
	serveCmd.Flags().StringVar(&serveDataPath, "data", "data/foods.csv", "path to the food catalog CSV")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	observability.InitMetrics()

	// A malformed rule table means the guardrail guarantee is gone, so
	// this failure stops the command before anything is served.
	table, err := rules.Load()
	if err != nil {
		ux.Error("Could not load the safety rule table: " + err.Error())
		return err
	}

	provider, err := retrieval.NewProviderFromEnv()
	if err != nil {
		slog.Warn("Embedding backend misconfigured, using token frequency fallback", "error", err)
		provider = retrieval.NewTokenFrequencyProvider()
	}

	if cacheDir := os.Getenv("EMBEDDING_CACHE_DIR"); cacheDir != "" {
		cache, err := retrieval.OpenEmbeddingCache(cacheDir)
		if err != nil {
			slog.Warn("Could not open embedding cache, continuing without", "error", err)
		} else {
			defer cache.Close()
			provider = retrieval.NewCachedProvider(provider, cache)
		}
	}

	p, err := pipeline.New(ctx, pipeline.Config{
		DataPath: serveDataPath,
		Table:    table,
		Provider: provider,
	})
	if err != nil {
		ux.Error("Could not build the initial snapshot: " + err.Error())
		return err
	}
	ux.Success("Loaded " + serveDataPath)

	go func() {
		if err := p.Watch(ctx); err != nil && ctx.Err() == nil {
			slog.Error("data file watcher stopped", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	limiter := middleware.NewRateLimiter(10, 20)
	routes.SetupRoutes(router, p, limiter)

	ux.Title("FirstSpoon listening on :" + servePort)
	return router.Run(":" + servePort)
}
