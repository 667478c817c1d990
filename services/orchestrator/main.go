// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/FirstSpoon/pkg/logging"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/middleware"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/observability"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/pipeline"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/routes"
	"github.com/AleutianAI/FirstSpoon/services/retrieval"
	"github.com/AleutianAI/FirstSpoon/services/safety/rules"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "firstspoon-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("firstspoon-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("FIRSTSPOON_PORT")
	if port == "" {
		port = "12310"
	}
	dataPath := os.Getenv("FOOD_DATA_PATH")
	if dataPath == "" {
		dataPath = "data/foods.csv"
	}

	appLog := logging.New(logging.Config{
		Service: "orchestrator",
		JSON:    true,
		LogDir:  os.Getenv("FIRSTSPOON_LOG_DIR"),
	})
	defer appLog.Close()
	logger := appLog.Slog()
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	// The safety table is the one config whose failure must stop the
	// process. A malformed rule here means the guardrail guarantee is
	// gone.
	table, err := rules.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load the safety rule table: %v", err)
	}

	provider, err := retrieval.NewProviderFromEnv()
	if err != nil {
		slog.Warn("Embedding backend misconfigured, using token frequency fallback", "error", err)
		provider = retrieval.NewTokenFrequencyProvider()
	}
	slog.Info("Using embedding backend", "backend", provider.Name())

	if cacheDir := os.Getenv("EMBEDDING_CACHE_DIR"); cacheDir != "" {
		cache, err := retrieval.OpenEmbeddingCache(cacheDir)
		if err != nil {
			slog.Warn("Could not open embedding cache, continuing without", "error", err)
		} else {
			defer cache.Close()
			provider = retrieval.NewCachedProvider(provider, cache)
		}
	}

	ctx := context.Background()
	p, err := pipeline.New(ctx, pipeline.Config{
		DataPath: dataPath,
		Table:    table,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("FATAL: Could not build the initial snapshot: %v", err)
	}
	slog.Info("Successfully loaded baby foods", "count", p.Snapshot().Catalog.Len())

	go func() {
		if err := p.Watch(ctx); err != nil && ctx.Err() == nil {
			slog.Error("data file watcher stopped", "error", err)
		}
	}()

	router := gin.Default()
	router.Use(otelgin.Middleware("firstspoon-service"))

	limiter := middleware.NewRateLimiter(10, 20)
	routes.SetupRoutes(router, p, limiter)

	log.Println("Starting the FirstSpoon server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
