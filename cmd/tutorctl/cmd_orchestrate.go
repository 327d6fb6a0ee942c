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

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	orchMessage     string   // Student message
	orchSessionID   string   // Session to attach the run to
	orchStudentName string   // Student profile name
	orchMastery     int      // Mastery level 1-10
	orchGrade       int      // Grade level 1-12
	orchEmotions    []string // Emotional state tags
	orchJSONOutput  bool     // Raw JSON output
	orchExtractOnly bool     // Run extraction only (POST /v1/extract)
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// orchestrateCmd runs the full pipeline for one student message.
//
// # Examples
//
//	tutorctl orchestrate -m "make 5 flashcards on algebra"
//	tutorctl orchestrate -m "explain photosynthesis" --emotion confused
//	tutorctl orchestrate -m "notes on world war 2" --mastery 9 --json
//	tutorctl orchestrate -m "quiz me on fractions" --extract-only
var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Run the orchestration pipeline for a student message",
	Long: `Sends a student message through the orchestrator pipeline:
extraction, tool selection, profile adaptation, validation, and invocation.

The student profile flags shape parameter adaptation: anxious or confused
emotional states reduce difficulty, high mastery raises it.`,
	RunE: runOrchestrateCommand,
}

func init() {
	orchestrateCmd.Flags().StringVarP(&orchMessage, "message", "m", "",
		"Student message (required)")
	orchestrateCmd.Flags().StringVar(&orchSessionID, "session", "",
		"Session ID (generated when omitted)")
	orchestrateCmd.Flags().StringVar(&orchStudentName, "name", "Student",
		"Student name for the profile")
	orchestrateCmd.Flags().IntVar(&orchMastery, "mastery", 5,
		"Mastery level 1-10")
	orchestrateCmd.Flags().IntVar(&orchGrade, "grade", 0,
		"Grade level 1-12 (optional)")
	orchestrateCmd.Flags().StringSliceVar(&orchEmotions, "emotion", nil,
		"Emotional state tags (repeatable: anxious, confused, focused, ...)")
	orchestrateCmd.Flags().BoolVar(&orchJSONOutput, "json", false,
		"Output raw JSON")
	orchestrateCmd.Flags().BoolVar(&orchExtractOnly, "extract-only", false,
		"Run parameter extraction only, skip selection and invocation")
	_ = orchestrateCmd.MarkFlagRequired("message")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runOrchestrateCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	convContext := datatypes.ConversationContext{
		StudentMessage: orchMessage,
		StudentProfile: datatypes.StudentProfile{
			Name:           orchStudentName,
			GradeLevel:     orchGrade,
			EmotionalState: orchEmotions,
			MasteryLevel:   orchMastery,
		},
	}

	if orchExtractOnly {
		var extraction struct {
			Extraction datatypes.ExtractionResult `json:"extraction"`
		}
		err := client.postJSON("/v1/extract", datatypes.ExtractRequest{Context: convContext}, &extraction)
		if err != nil {
			return err
		}
		return printJSON(extraction.Extraction)
	}

	req := datatypes.OrchestrateRequest{
		SessionID: orchSessionID,
		Context:   convContext,
	}

	var resp datatypes.OrchestrateResponse
	if err := client.postJSON("/v1/orchestrate", req, &resp); err != nil {
		return err
	}

	if orchJSONOutput {
		return printJSON(resp)
	}

	printRunSummary(&resp)
	return nil
}

func printRunSummary(resp *datatypes.OrchestrateResponse) {
	fmt.Printf("session:  %s\n", resp.SessionID)
	if resp.SelectedTool != "" {
		fmt.Printf("tool:     %s\n", resp.SelectedTool)
	}
	if resp.Extraction != nil {
		fmt.Printf("source:   %s (confidence %.2f)\n", resp.Extraction.Source, resp.Extraction.Confidence)
	}
	fmt.Printf("reasoning: %s\n", resp.Reasoning)

	if resp.Error != nil {
		fmt.Printf("\nrun failed: %s (%s)\n", resp.Error.Message, resp.Error.Code)
		for _, field := range resp.Error.Fields {
			fmt.Printf("  %s: %s\n", field.Field, field.Message)
		}
		return
	}

	if resp.ToolResult != nil {
		fmt.Printf("\nresult (%d attempt(s), %dms):\n", resp.ToolResult.Attempts, resp.ToolResult.ExecutionTimeMs)
		_ = printJSON(resp.ToolResult.Output)
	}
}
