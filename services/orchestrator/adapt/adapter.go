// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adapt tunes extracted tool parameters to the student's profile.
// The adapter is pure: it never mutates its input map and the same inputs
// always produce the same output.
package adapt

import (
	"fmt"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

// Mastery thresholds for difficulty adjustment.
const (
	HighMasteryThreshold = 7
	LowMasteryThreshold  = 3
)

// Emotional states that trigger a difficulty downgrade.
var calmingStates = []string{"anxious", "confused"}

// Transition tables for the two ordinal parameters. A value absent from a
// table stays put: the calming downgrade moves hard to medium and
// comprehensive to intermediate, nothing further down.
var (
	downgradeDifficulty = map[string]string{"hard": "medium"}

	downgradeDepth = map[string]string{"comprehensive": "intermediate"}
	upgradeDepth   = map[string]string{"basic": "intermediate", "intermediate": "advanced", "advanced": "comprehensive"}
)

var depthRank = map[string]int{"basic": 0, "intermediate": 1, "advanced": 2, "comprehensive": 3}

var difficultyRank = map[string]int{"easy": 0, "medium": 1, "hard": 2}

// Result carries the adapted parameters plus a note per adjustment made,
// in the order the rules fired. Notes feed the response's reasoning text.
type Result struct {
	Parameters map[string]any
	Notes      []string
}

// Apply adjusts params for the student.
//
// # Description
//
// Rules fire in fixed precedence:
//  1. An anxious or confused student gets hard stepped down to medium and
//     comprehensive stepped down to intermediate; everything else stays.
//  2. A high-mastery student (level 7+) gets difficulty raised to hard when
//     it is medium or still unset, plus a depth step up, unless rule 1 was
//     in effect.
//  3. A low-mastery student (level 3 or below) is forced to easy difficulty
//     and floored at basic depth.
//  4. Any catalogue parameter with a declared default that is still unset
//     is filled with that default.
//
// # Outputs
//
// A new parameter map; the input map is never modified.
func Apply(params map[string]any, profile datatypes.StudentProfile, spec *registry.ToolSpec) Result {
	adapted := make(map[string]any, len(params))
	for k, v := range params {
		adapted[k] = v
	}

	result := Result{Parameters: adapted}

	calmed := false
	for _, state := range calmingStates {
		if profile.HasEmotion(state) {
			calmed = true
			break
		}
	}

	if calmed {
		if shift(adapted, "difficulty", downgradeDifficulty) {
			result.Notes = append(result.Notes, fmt.Sprintf("Reduced difficulty to '%v' for the student's emotional state", adapted["difficulty"]))
		}
		if shift(adapted, "desired_depth", downgradeDepth) {
			result.Notes = append(result.Notes, fmt.Sprintf("Reduced depth to '%v' for the student's emotional state", adapted["desired_depth"]))
		}
	}

	if !calmed && profile.MasteryLevel >= HighMasteryThreshold {
		if raiseDifficultyToHard(adapted) {
			result.Notes = append(result.Notes, fmt.Sprintf("Raised difficulty to 'hard' for mastery level %d", profile.MasteryLevel))
		}
		if shift(adapted, "desired_depth", upgradeDepth) {
			result.Notes = append(result.Notes, fmt.Sprintf("Raised depth to '%v' for mastery level %d", adapted["desired_depth"], profile.MasteryLevel))
		}
	}

	if profile.MasteryLevel > 0 && profile.MasteryLevel <= LowMasteryThreshold {
		if forceFloor(adapted, "difficulty", "easy", difficultyRank) {
			result.Notes = append(result.Notes, fmt.Sprintf("Floored difficulty at 'easy' for mastery level %d", profile.MasteryLevel))
		}
		if clampFloor(adapted, "desired_depth", "basic", depthRank) {
			result.Notes = append(result.Notes, fmt.Sprintf("Floored depth at 'basic' for mastery level %d", profile.MasteryLevel))
		}
	}

	if spec != nil {
		for _, p := range spec.Required {
			if fillDefault(adapted, p) {
				result.Notes = append(result.Notes, fmt.Sprintf("Defaulted '%s' to '%v'", p.Name, p.Default))
			}
		}
		for _, p := range spec.Optional {
			if fillDefault(adapted, p) {
				result.Notes = append(result.Notes, fmt.Sprintf("Defaulted '%s' to '%v'", p.Name, p.Default))
			}
		}
	}

	return result
}

// shift replaces a string parameter via the transition table. Returns
// whether it changed.
func shift(params map[string]any, key string, table map[string]string) bool {
	value, ok := params[key].(string)
	if !ok {
		return false
	}
	next, ok := table[value]
	if !ok {
		return false
	}
	params[key] = next
	return true
}

// raiseDifficultyToHard upgrades difficulty for a high-mastery student.
// Fires when the parameter is medium or not set at all; an extracted easy
// (or a non-string value) is left alone.
func raiseDifficultyToHard(params map[string]any) bool {
	if current, present := params["difficulty"]; present {
		value, ok := current.(string)
		if !ok || value != "medium" {
			return false
		}
	}
	params["difficulty"] = "hard"
	return true
}

// clampFloor drops a string parameter down to floorValue when it ranks above it.
func clampFloor(params map[string]any, key, floorValue string, rank map[string]int) bool {
	value, ok := params[key].(string)
	if !ok {
		return false
	}
	current, known := rank[value]
	if !known || current <= rank[floorValue] {
		return false
	}
	params[key] = floorValue
	return true
}

// forceFloor is clampFloor that also claims an unset parameter, so the
// safety floor holds before defaults are filled.
func forceFloor(params map[string]any, key, floorValue string, rank map[string]int) bool {
	if _, present := params[key]; !present {
		params[key] = floorValue
		return true
	}
	return clampFloor(params, key, floorValue, rank)
}

func fillDefault(params map[string]any, p registry.ParamSpec) bool {
	if p.Default == nil {
		return false
	}
	if _, ok := params[p.Name]; ok {
		return false
	}
	params[p.Name] = p.Default
	return true
}
