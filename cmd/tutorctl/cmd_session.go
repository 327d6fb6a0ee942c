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
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect session history and analytics",
}

// sessionHistoryCmd prints a session's run records in append order.
//
// # Examples
//
//	tutorctl session history 9b2f...-uuid
var sessionHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the run records for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionHistoryCommand,
}

// sessionAnalyticsCmd summarizes tool usage for a session.
var sessionAnalyticsCmd = &cobra.Command{
	Use:   "analytics <session-id>",
	Short: "Show tool usage analytics for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionAnalyticsCommand,
}

func init() {
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionAnalyticsCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runSessionHistoryCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	var history map[string]any
	path := fmt.Sprintf("/v1/sessions/%s/history", url.PathEscape(args[0]))
	if err := client.getJSON(path, &history); err != nil {
		return err
	}
	return printJSON(history)
}

func runSessionAnalyticsCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	var analytics map[string]any
	path := fmt.Sprintf("/v1/sessions/%s/analytics", url.PathEscape(args[0]))
	if err := client.getJSON(path, &analytics); err != nil {
		return err
	}
	return printJSON(analytics)
}
