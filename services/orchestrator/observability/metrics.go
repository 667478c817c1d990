// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// question-answering service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the answer
// pipeline. Metrics include:
//   - Request counters (by outcome)
//   - Safety block counters (by risk and severity)
//   - Answer latency histograms (by pipeline path)
//   - Snapshot reload counters and the loaded-food gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "firstspoon"

const askSubsystem = "ask"

// Path labels the pipeline branch that produced an answer.
type Path string

const (
	// PathBlocked means a safety guardrail short-circuited the answer.
	PathBlocked Path = "blocked"

	// PathGraph means the answer was composed from knowledge-graph facts.
	PathGraph Path = "graph"

	// PathRetrieval means the hybrid scorer fallback produced the answer.
	PathRetrieval Path = "retrieval"
)

// AskMetrics holds all Prometheus metrics for the answer pipeline.
//
// Initialize once at startup via InitMetrics().
type AskMetrics struct {
	// RequestsTotal counts answered requests.
	// Labels: path (blocked, graph, retrieval), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// SafetyBlocksTotal counts triggered guardrails.
	// Labels: risk (botulism, choking, ...), severity (CRITICAL, WARNING)
	SafetyBlocksTotal *prometheus.CounterVec

	// AnswerDurationSeconds measures end-to-end answer latency.
	// Labels: path
	AnswerDurationSeconds *prometheus.HistogramVec

	// ReloadsTotal counts snapshot reloads.
	// Labels: status (success, error)
	ReloadsTotal *prometheus.CounterVec

	// LoadedFoods tracks the record count of the active snapshot.
	LoadedFoods prometheus.Gauge
}

// DefaultMetrics is the singleton instance of AskMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AskMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *AskMetrics {
	DefaultMetrics = &AskMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "requests_total",
				Help:      "Total answered requests by pipeline path and status",
			},
			[]string{"path", "status"},
		),

		SafetyBlocksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "safety_blocks_total",
				Help:      "Total safety guardrail triggers by risk and severity",
			},
			[]string{"risk", "severity"},
		),

		AnswerDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "answer_duration_seconds",
				Help:      "End-to-end answer latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"path"},
		),

		ReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshot_reloads_total",
				Help:      "Total snapshot reloads by status",
			},
			[]string{"status"},
		),

		LoadedFoods: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "loaded_foods",
				Help:      "Number of food records in the active snapshot",
			},
		),
	}
	return DefaultMetrics
}

// RecordRequest records one answered request.
func (m *AskMetrics) RecordRequest(path Path, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(path), status).Inc()
}

// RecordSafetyBlock records a triggered guardrail.
func (m *AskMetrics) RecordSafetyBlock(risk, severity string) {
	m.SafetyBlocksTotal.WithLabelValues(risk, severity).Inc()
}

// RecordAnswerDuration records end-to-end latency for one request.
func (m *AskMetrics) RecordAnswerDuration(path Path, seconds float64) {
	m.AnswerDurationSeconds.WithLabelValues(string(path)).Observe(seconds)
}

// RecordReload records a snapshot reload attempt.
func (m *AskMetrics) RecordReload(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ReloadsTotal.WithLabelValues(status).Inc()
}
