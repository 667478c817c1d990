// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/FirstSpoon/pkg/ux"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/datatypes"
)

var healthHTTPClient = &http.Client{Timeout: 10 * time.Second}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the FirstSpoon service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := healthHTTPClient.Get(serviceURL() + "/health")
		if err != nil {
			ux.Error("Service unreachable at " + serviceURL())
			return err
		}
		defer resp.Body.Close()

		var health datatypes.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("decoding health response: %w", err)
		}
		if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
			ux.Error(fmt.Sprintf("Service unhealthy (%d): %s", resp.StatusCode, health.Message))
			return fmt.Errorf("unhealthy")
		}
		ux.Success(fmt.Sprintf("%s (%d foods loaded)", health.Message, health.Foods))
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the service's food data snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := healthHTTPClient.Post(serviceURL()+"/api/reload", "application/json", nil)
		if err != nil {
			ux.Error("Service unreachable at " + serviceURL())
			return err
		}
		defer resp.Body.Close()

		var result struct {
			Status string `json:"status"`
			Foods  int    `json:"foods"`
			Error  string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding reload response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			ux.Error(result.Error)
			return fmt.Errorf("reload failed")
		}
		ux.Success(fmt.Sprintf("Snapshot reloaded with %d foods", result.Foods))
		return nil
	},
}
