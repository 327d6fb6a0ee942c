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

	"github.com/spf13/cobra"
)

// healthCmd checks orchestrator liveness.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check orchestrator health",
	RunE:  runHealthCommand,
}

func runHealthCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	var status struct {
		Status   string `json:"status"`
		Tools    int    `json:"tools"`
		Keywords int    `json:"keywords"`
	}
	if err := client.getJSON("/health", &status); err != nil {
		return err
	}

	fmt.Printf("status: %s (%d tools, %d keywords)\n", status.Status, status.Tools, status.Keywords)
	return nil
}
