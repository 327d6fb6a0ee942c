// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"simple", "session1", false},
		{"underscores", "student_42_review", false},
		{"single char", "a", false},
		{"empty", "", true},
		{"leading hyphen", "-abc", true},
		{"path traversal", "../etc/passwd", true},
		{"slash", "a/b", true},
		{"whitespace", "abc def", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateToolName(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		wantErr bool
	}{
		{"note maker", "note_maker", false},
		{"flashcards", "flashcard_generator", false},
		{"explainer", "concept_explainer", false},
		{"empty", "", true},
		{"uppercase", "NoteMaker", true},
		{"leading digit", "1tool", true},
		{"hyphen", "note-maker", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToolName(tt.tool)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateToolName(%q) error = %v, wantErr %v", tt.tool, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeSessionID(t *testing.T) {
	got, err := SanitizeSessionID("  session-7  ")
	if err != nil {
		t.Fatalf("SanitizeSessionID returned error: %v", err)
	}
	if got != "session-7" {
		t.Errorf("SanitizeSessionID = %q, want %q", got, "session-7")
	}

	if _, err := SanitizeSessionID("   "); err == nil {
		t.Error("SanitizeSessionID should reject whitespace-only input")
	}
}
