// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tutorctl is the command-line client for the AleutianTutor
// orchestrator HTTP API.
//
// # Usage
//
//	tutorctl tools                           # List the tool catalogue
//	tutorctl orchestrate -m "make 5 flashcards on algebra"
//	tutorctl session history <session-id>
//	tutorctl health
//
// The server address comes from --server or the TUTOR_SERVER env var,
// defaulting to http://localhost:12210.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "tutorctl",
	Short: "Client for the AleutianTutor orchestrator",
	Long: `tutorctl talks to the AleutianTutor orchestrator HTTP API.

It can list the tool catalogue, run the orchestration pipeline for a
student message, validate tool inputs, and inspect session history.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	defaultServer := os.Getenv("TUTOR_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:12210"
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer,
		"Orchestrator base URL")

	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(healthCmd)
}
