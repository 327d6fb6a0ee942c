// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	toolsJSONOutput   bool   // Output raw JSON
	validateToolName  string // Tool to validate against
	validateToolInput string // JSON input map
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// toolsCmd lists the orchestrator's tool catalogue.
//
// # Examples
//
//	tutorctl tools            # Human-readable listing
//	tutorctl tools --json     # Raw catalogue JSON
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the educational tool catalogue",
	RunE:  runToolsCommand,
}

// validateCmd checks an input map against a tool's schema without running it.
//
// # Examples
//
//	tutorctl tools validate -t flashcard_generator \
//	    -i '{"topic":"algebra","count":5,"difficulty":"easy","subject":"math"}'
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a tool input map against its schema",
	RunE:  runValidateCommand,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSONOutput, "json", false, "Output raw JSON")
	validateCmd.Flags().StringVarP(&validateToolName, "tool", "t", "", "Tool name (required)")
	validateCmd.Flags().StringVarP(&validateToolInput, "input", "i", "{}", "Tool input as JSON")
	_ = validateCmd.MarkFlagRequired("tool")
	toolsCmd.AddCommand(validateCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

type toolListing struct {
	Tools []struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
		Required    []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"required"`
	} `json:"tools"`
	Count int `json:"count"`
}

func runToolsCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	var listing toolListing
	if err := client.getJSON("/v1/tools", &listing); err != nil {
		return err
	}

	if toolsJSONOutput {
		return printJSON(listing)
	}

	fmt.Printf("Catalogue: %d tools\n\n", listing.Count)
	for _, tool := range listing.Tools {
		required := make([]string, 0, len(tool.Required))
		for _, p := range tool.Required {
			required = append(required, fmt.Sprintf("%s:%s", p.Name, p.Type))
		}
		fmt.Printf("  %s\n", tool.Name)
		fmt.Printf("    %s\n", tool.Description)
		fmt.Printf("    keywords: %s\n", strings.Join(tool.Keywords, ", "))
		fmt.Printf("    required: %s\n\n", strings.Join(required, ", "))
	}
	return nil
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(validateToolInput), &input); err != nil {
		return fmt.Errorf("--input is not valid JSON: %w", err)
	}

	client := newAPIClient(serverURL)
	var outcome map[string]any
	err := client.postJSON("/v1/tools/validate", map[string]any{
		"tool_name": validateToolName,
		"input":     input,
	}, &outcome)
	if err != nil {
		return err
	}

	return printJSON(outcome)
}
