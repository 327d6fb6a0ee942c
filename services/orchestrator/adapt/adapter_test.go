// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapt

import (
	"context"
	"testing"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

func profile(mastery int, emotions ...string) datatypes.StudentProfile {
	return datatypes.StudentProfile{
		Name:           "Jordan",
		GradeLevel:     9,
		LearningStyle:  "direct",
		EmotionalState: emotions,
		MasteryLevel:   mastery,
	}
}

func loadSpec(t *testing.T, tool string) *registry.ToolSpec {
	t.Helper()
	reg, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	spec, ok := reg.Get(tool)
	if !ok {
		t.Fatalf("Get(%q): tool not in catalogue", tool)
	}
	return spec
}

func TestApply_EmotionalDowngrade(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   map[string]any
	}{
		{"hard to medium", map[string]any{"difficulty": "hard"}, map[string]any{"difficulty": "medium"}},
		{"medium unchanged", map[string]any{"difficulty": "medium"}, map[string]any{"difficulty": "medium"}},
		{"easy stays easy", map[string]any{"difficulty": "easy"}, map[string]any{"difficulty": "easy"}},
		{"comprehensive to intermediate", map[string]any{"desired_depth": "comprehensive"}, map[string]any{"desired_depth": "intermediate"}},
		{"advanced unchanged", map[string]any{"desired_depth": "advanced"}, map[string]any{"desired_depth": "advanced"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.params, profile(5, "anxious"), nil)
			for k, want := range tt.want {
				if got.Parameters[k] != want {
					t.Errorf("%s = %v, want %v", k, got.Parameters[k], want)
				}
			}
		})
	}
}

func TestApply_AnxiousStudentNeverGetsHard(t *testing.T) {
	// Mastery 9 would normally raise difficulty; the calming state takes
	// precedence and suppresses the upgrade entirely.
	got := Apply(map[string]any{"difficulty": "medium"}, profile(9, "anxious"), nil)
	if got.Parameters["difficulty"] != "medium" {
		t.Fatalf("difficulty = %v, want medium", got.Parameters["difficulty"])
	}

	got = Apply(map[string]any{"difficulty": "hard"}, profile(9, "anxious"), nil)
	if got.Parameters["difficulty"] != "medium" {
		t.Fatalf("difficulty = %v, want medium after downgrade", got.Parameters["difficulty"])
	}
}

func TestApply_HighMasteryUpgrade(t *testing.T) {
	got := Apply(map[string]any{"difficulty": "medium", "desired_depth": "intermediate"}, profile(9, "focused"), nil)
	if got.Parameters["difficulty"] != "hard" {
		t.Errorf("difficulty = %v, want hard", got.Parameters["difficulty"])
	}
	if got.Parameters["desired_depth"] != "advanced" {
		t.Errorf("desired_depth = %v, want advanced", got.Parameters["desired_depth"])
	}
	if len(got.Notes) != 2 {
		t.Errorf("Notes = %v, want two adjustment notes", got.Notes)
	}
}

func TestApply_HighMasteryUpgradesUnsetDifficulty(t *testing.T) {
	// An extraction that never produced a difficulty still gets hard for a
	// high-mastery student; the catalogue default must not win over the
	// upgrade.
	spec := loadSpec(t, "flashcard_generator")

	got := Apply(map[string]any{"topic": "algebra", "subject": "math"}, profile(9, "focused"), spec)
	if got.Parameters["difficulty"] != "hard" {
		t.Errorf("difficulty = %v, want hard", got.Parameters["difficulty"])
	}

	// An extracted easy is respected, not upgraded.
	got = Apply(map[string]any{"difficulty": "easy"}, profile(9, "focused"), nil)
	if got.Parameters["difficulty"] != "easy" {
		t.Errorf("difficulty = %v, want easy", got.Parameters["difficulty"])
	}
}

func TestApply_LowMasteryFloor(t *testing.T) {
	got := Apply(map[string]any{"difficulty": "hard", "desired_depth": "comprehensive"}, profile(2), nil)
	if got.Parameters["difficulty"] != "easy" {
		t.Errorf("difficulty = %v, want easy", got.Parameters["difficulty"])
	}
	if got.Parameters["desired_depth"] != "basic" {
		t.Errorf("desired_depth = %v, want basic", got.Parameters["desired_depth"])
	}
}

func TestApply_LowMasteryForcesEasyWhenUnset(t *testing.T) {
	spec := loadSpec(t, "flashcard_generator")

	got := Apply(map[string]any{"topic": "fractions", "subject": "math"}, profile(2), spec)
	if got.Parameters["difficulty"] != "easy" {
		t.Errorf("difficulty = %v, want easy", got.Parameters["difficulty"])
	}
}

func TestApply_MidMasteryNeutralUnchanged(t *testing.T) {
	got := Apply(map[string]any{"difficulty": "medium"}, profile(5), nil)
	if got.Parameters["difficulty"] != "medium" {
		t.Errorf("difficulty = %v, want medium", got.Parameters["difficulty"])
	}
	if len(got.Notes) != 0 {
		t.Errorf("Notes = %v, want none", got.Notes)
	}
}

func TestApply_FillsCatalogueDefaults(t *testing.T) {
	spec := loadSpec(t, "flashcard_generator")

	got := Apply(map[string]any{"topic": "algebra", "subject": "math"}, profile(5), spec)
	if got.Parameters["count"] != 10 {
		t.Errorf("count = %v, want default 10", got.Parameters["count"])
	}
	if got.Parameters["difficulty"] != "medium" {
		t.Errorf("difficulty = %v, want default medium", got.Parameters["difficulty"])
	}
}

func TestApply_DefaultsDoNotOverrideExtracted(t *testing.T) {
	spec := loadSpec(t, "flashcard_generator")

	got := Apply(map[string]any{"count": 5, "difficulty": "hard"}, profile(5), spec)
	if got.Parameters["count"] != 5 {
		t.Errorf("count = %v, want 5", got.Parameters["count"])
	}
	if got.Parameters["difficulty"] != "hard" {
		t.Errorf("difficulty = %v, want hard", got.Parameters["difficulty"])
	}
}

func TestApply_AdaptedParamsStillValidate(t *testing.T) {
	reg, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	spec, _ := reg.Get("flashcard_generator")

	got := Apply(map[string]any{
		"topic":      "algebra",
		"subject":    "math",
		"difficulty": "hard",
		"count":      15,
	}, profile(9, "focused"), spec)

	outcome, err := reg.ValidateInput("flashcard_generator", got.Parameters)
	if err != nil {
		t.Fatalf("ValidateInput() error = %v", err)
	}
	if !outcome.Valid {
		t.Errorf("adapted parameters failed validation: %v", outcome.Errors)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	input := map[string]any{"difficulty": "hard"}
	Apply(input, profile(2, "anxious"), nil)
	if input["difficulty"] != "hard" {
		t.Fatalf("input mutated: %v", input)
	}
}
