// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"errors"
	"reflect"
	"testing"
)

func validFlashcardInput() map[string]any {
	return map[string]any{
		"topic":      "chemical bonds",
		"subject":    "science",
		"count":      10,
		"difficulty": "medium",
	}
}

func TestValidateInputValid(t *testing.T) {
	reg := loadTestRegistry(t)

	outcome, err := reg.ValidateInput("flashcard_generator", validFlashcardInput())
	if err != nil {
		t.Fatalf("ValidateInput returned error: %v", err)
	}
	if !outcome.Valid || len(outcome.Errors) != 0 {
		t.Errorf("outcome = %+v, want valid with no errors", outcome)
	}
}

func TestValidateInputUnknownTool(t *testing.T) {
	reg := loadTestRegistry(t)

	_, err := reg.ValidateInput("essay_grader", map[string]any{})
	var unknownErr *ErrUnknownTool
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	if unknownErr.ToolName != "essay_grader" {
		t.Errorf("ToolName = %s, want essay_grader", unknownErr.ToolName)
	}
}

func TestValidateInputFailures(t *testing.T) {
	reg := loadTestRegistry(t)

	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{"missing required", func(m map[string]any) { delete(m, "topic") }, "topic"},
		{"wrong type", func(m map[string]any) { m["count"] = "ten" }, "count"},
		{"fractional int", func(m map[string]any) { m["count"] = 2.5 }, "count"},
		{"below min", func(m map[string]any) { m["count"] = 0 }, "count"},
		{"above max", func(m map[string]any) { m["count"] = 21 }, "count"},
		{"enum violation", func(m map[string]any) { m["difficulty"] = "impossible" }, "difficulty"},
		{"unknown field", func(m map[string]any) { m["color"] = "blue" }, "color"},
		{"bad optional type", func(m map[string]any) { m["include_examples"] = "yes" }, "include_examples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validFlashcardInput()
			tt.mutate(input)

			outcome, err := reg.ValidateInput("flashcard_generator", input)
			if err != nil {
				t.Fatalf("ValidateInput returned error: %v", err)
			}
			if outcome.Valid {
				t.Fatal("outcome should be invalid")
			}
			found := false
			for _, fe := range outcome.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing field %s", outcome.Errors, tt.wantField)
			}
		})
	}
}

func TestValidateInputCollectsAllErrors(t *testing.T) {
	reg := loadTestRegistry(t)

	outcome, err := reg.ValidateInput("flashcard_generator", map[string]any{
		"count":   50,
		"mystery": true,
	})
	if err != nil {
		t.Fatalf("ValidateInput returned error: %v", err)
	}
	// topic, subject, difficulty missing; count out of range; mystery unknown.
	if len(outcome.Errors) != 5 {
		t.Errorf("got %d errors, want 5: %v", len(outcome.Errors), outcome.Errors)
	}
}

func TestValidateInputAcceptsFloatIntegers(t *testing.T) {
	reg := loadTestRegistry(t)

	// JSON decoding produces float64 for numbers.
	input := validFlashcardInput()
	input["count"] = float64(15)

	outcome, err := reg.ValidateInput("flashcard_generator", input)
	if err != nil {
		t.Fatalf("ValidateInput returned error: %v", err)
	}
	if !outcome.Valid {
		t.Errorf("whole-valued float64 should validate as int: %v", outcome.Errors)
	}
}

func TestValidateInputIdempotent(t *testing.T) {
	reg := loadTestRegistry(t)

	input := validFlashcardInput()
	input["count"] = 0
	snapshot := map[string]any{}
	for k, v := range input {
		snapshot[k] = v
	}

	first, err := reg.ValidateInput("flashcard_generator", input)
	if err != nil {
		t.Fatalf("first ValidateInput: %v", err)
	}
	second, err := reg.ValidateInput("flashcard_generator", input)
	if err != nil {
		t.Fatalf("second ValidateInput: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation not idempotent: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(input, snapshot) {
		t.Errorf("validation mutated its input: %v", input)
	}
}

func TestValidateInputMissingOptionalIsFine(t *testing.T) {
	reg := loadTestRegistry(t)

	outcome, err := reg.ValidateInput("note_maker", map[string]any{
		"topic":             "photosynthesis",
		"subject":           "science",
		"note_taking_style": "outline",
	})
	if err != nil {
		t.Fatalf("ValidateInput returned error: %v", err)
	}
	if !outcome.Valid {
		t.Errorf("missing optional fields should not fail validation: %v", outcome.Errors)
	}
}
