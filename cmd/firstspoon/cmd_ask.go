// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/FirstSpoon/pkg/ux"
	"github.com/AleutianAI/FirstSpoon/services/orchestrator/datatypes"
)

var askHTTPClient = &http.Client{Timeout: time.Minute}

var (
	askTopK     int
	askJSON     bool
	askShowPath bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a baby food question",
	Long: `Ask sends a free-text question to the FirstSpoon service and prints
the answer with its confidence label and citations.

Examples:
  firstspoon ask "Can I give honey to my 6 month old?"
  firstspoon ask --top-k 5 "Which foods are high in iron?"
  firstspoon ask --json "Is avocado safe for babies?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 3, "number of foods to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the raw JSON response")
	askCmd.Flags().BoolVar(&askShowPath, "graph-path", false, "show the knowledge graph reasoning path")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	body, err := json.Marshal(datatypes.AskRequest{Question: question, TopK: askTopK})
	if err != nil {
		return err
	}

	resp, err := askHTTPClient.Post(serviceURL()+"/api/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		ux.Error("Could not reach the FirstSpoon service. Is it running?")
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			ux.Error(apiErr.Error)
			return fmt.Errorf("service returned %d", resp.StatusCode)
		}
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, raw)
	}

	if askJSON {
		fmt.Println(string(raw))
		return nil
	}

	var answer datatypes.AskResponse
	if err := json.Unmarshal(raw, &answer); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	renderAnswer(answer)
	return nil
}

func renderAnswer(answer datatypes.AskResponse) {
	ux.Box("Answer", answer.Answer)
	ux.Muted("Confidence: " + answer.Confidence)

	if len(answer.Citations) > 0 {
		fmt.Println()
		ux.Title("Citations")
		for _, c := range answer.Citations {
			line := fmt.Sprintf("%s (relevance %.3f)", c.FoodName, c.RelevanceScore)
			if c.SourceURL != "" {
				line += " - " + c.SourceURL
			}
			ux.Muted("  " + line)
		}
	}

	if askShowPath && len(answer.GraphPath) > 0 {
		fmt.Println()
		ux.Title("Graph path")
		for _, hop := range answer.GraphPath {
			ux.Muted("  " + hop)
		}
	}
}
