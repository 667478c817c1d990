// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "firstspoon",
	Short: "FirstSpoon - evidence-backed baby food answers",
	Long: `FirstSpoon answers questions about introducing foods to infants,
grounded in a curated knowledge graph with hard safety guardrails.

Most commands talk to a running FirstSpoon service; point them at yours
with FIRSTSPOON_SERVICE_URL (default http://localhost:12310). Use
"firstspoon serve" to run the service itself.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("firstspoon", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(reloadCmd)
}

// serviceURL resolves the QA service base URL.
func serviceURL() string {
	if url := os.Getenv("FIRSTSPOON_SERVICE_URL"); url != "" {
		return url
	}
	return "http://localhost:12310"
}
