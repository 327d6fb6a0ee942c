// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

// SelectionThreshold is the minimum extraction confidence to accept the
// extractor's tool choice outright.
const SelectionThreshold = 0.3

// Selection is the accepted tool plus how it was chosen, for the trace.
type Selection struct {
	ToolName string
	Detail   string
}

// selectTool decides which tool the run will invoke.
//
// # Description
//
// Accepts the extraction's tool when it cleared the confidence threshold.
// Below the threshold (or with no tool at all) the utterance is rescored
// against the catalogue's keyword index as a second opinion; a rescored hit
// is accepted at reduced trust. Nothing matching either way ends the run
// with ErrNoToolMatched.
func selectTool(reg *registry.ToolRegistry, extraction datatypes.ExtractionResult, utterance string) (Selection, error) {
	if extraction.ToolName != "" && extraction.Confidence >= SelectionThreshold {
		return Selection{
			ToolName: extraction.ToolName,
			Detail:   fmt.Sprintf("accepted %s at confidence %.2f", extraction.ToolName, extraction.Confidence),
		}, nil
	}

	matches := reg.FindToolsByKeyword(strings.ToLower(utterance))
	if len(matches) > 0 {
		return Selection{
			ToolName: matches[0].ToolName,
			Detail:   fmt.Sprintf("rescored to %s on %d keyword match(es)", matches[0].ToolName, matches[0].MatchCount),
		}, nil
	}

	return Selection{}, ErrNoToolMatched
}
