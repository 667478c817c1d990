// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.toSlogLevel(); got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_Constants(t *testing.T) {
	// Verify ordering: Debug < Info < Warn < Error
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be < LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be < LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be < LevelError")
	}
}

// =============================================================================
// Logger Constructor Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.slogger == nil {
		t.Error("logger.slogger is nil")
	}
	defer logger.Close()
}

func TestNew_WithService(t *testing.T) {
	logger := New(Config{Service: "test-service", Quiet: true})
	defer logger.Close()

	if logger.config.Service != "test-service" {
		t.Errorf("Service = %v, want test-service", logger.config.Service)
	}
}

func TestNew_QuietMode(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close()

	if logger.slogger == nil {
		t.Error("logger.slogger is nil in quiet mode")
	}
	// Must not panic with no destinations.
	logger.Info("goes nowhere")
}

func TestNew_WithLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})
	defer logger.Close()

	if logger.file == nil {
		t.Fatal("logger.file is nil when LogDir specified")
	}

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(files) == 0 {
		t.Error("No log file created in LogDir")
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{LogDir: tmpDir, Quiet: true})
	defer logger.Close()

	// Should use "firstspoon" as default service name
	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	found := false
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "firstspoon_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected log file with 'firstspoon_' prefix")
	}
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	logger := New(Config{
		LogDir: string([]byte{0}) + "/cannot/exist",
		Quiet:  true,
	})
	defer logger.Close()

	// Should still work, just without file logging
	if logger.file != nil {
		t.Error("logger.file should be nil for invalid path")
	}
	logger.Info("still logs without a file")
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Level != LevelInfo {
		t.Errorf("Default level = %v, want LevelInfo", logger.config.Level)
	}
	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

type captureExporter struct {
	mu      sync.Mutex
	entries []LogEntry
	flushed bool
	closed  bool
}

func (e *captureExporter) Export(_ context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

func (e *captureExporter) Flush(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushed = true
	return nil
}

func (e *captureExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *captureExporter) waitForEntry(t *testing.T) LogEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		if len(e.entries) > 0 {
			entry := e.entries[0]
			e.mu.Unlock()
			return entry
		}
		e.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("exporter never received an entry")
	return LogEntry{}
}

func TestExporter_ReceivesEntries(t *testing.T) {
	exporter := &captureExporter{}
	logger := New(Config{Quiet: true, Service: "test", Exporter: exporter})
	defer logger.Close()

	logger.Info("catalog loaded", "foods", 42)

	entry := exporter.waitForEntry(t)
	if entry.Message != "catalog loaded" {
		t.Errorf("Message = %v, want 'catalog loaded'", entry.Message)
	}
	if entry.Service != "test" {
		t.Errorf("Service = %v, want test", entry.Service)
	}
	if entry.Attrs["foods"] != 42 {
		t.Errorf("Attrs[foods] = %v, want 42", entry.Attrs["foods"])
	}
}

func TestExporter_LevelFilter(t *testing.T) {
	exporter := &captureExporter{}
	logger := New(Config{Quiet: true, Level: LevelWarn, Exporter: exporter})
	defer logger.Close()

	logger.Info("filtered out")
	logger.Warn("kept")

	entry := exporter.waitForEntry(t)
	if entry.Message != "kept" {
		t.Errorf("Message = %v, want 'kept'", entry.Message)
	}
}

func TestClose_FlushesExporter(t *testing.T) {
	exporter := &captureExporter{}
	logger := New(Config{Quiet: true, Exporter: exporter})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	if !exporter.flushed {
		t.Error("Close() did not flush the exporter")
	}
	if !exporter.closed {
		t.Error("Close() did not close the exporter")
	}
}
