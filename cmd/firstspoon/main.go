// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"os"

	"github.com/AleutianAI/FirstSpoon/pkg/logging"
)

func main() {
	// CLI logs go to stderr so command output stays pipeable; set
	// FIRSTSPOON_LOG_DIR to keep a JSON log file as well.
	logger := logging.New(logging.Config{
		Service: "cli",
		LogDir:  os.Getenv("FIRSTSPOON_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		logger.Close()
		os.Exit(1)
	}
}
