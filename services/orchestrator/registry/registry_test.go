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
	"context"
	"testing"
)

func loadTestRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	reg, err := parseToolCatalogYAML(defaultToolCatalogYAML)
	if err != nil {
		t.Fatalf("failed to parse embedded catalogue: %v", err)
	}
	return reg
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	reg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if reg.ToolCount() != 3 {
		t.Errorf("ToolCount = %d, want 3", reg.ToolCount())
	}

	for _, name := range []string{"note_maker", "flashcard_generator", "concept_explainer"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("catalogue missing tool %s", name)
		}
	}

	if reg.LoadedAt() == 0 {
		t.Error("LoadedAt should be set after load")
	}
}

func TestLoadNilContext(t *testing.T) {
	if _, err := Load(nil); err == nil { //nolint:staticcheck
		t.Error("Load(nil) should return an error")
	}
}

func TestParseRejectsDuplicateParams(t *testing.T) {
	yaml := `
tools:
  - name: bad_tool
    keywords: [x]
    required:
      - name: topic
        type: string
    optional:
      - name: topic
        type: string
`
	if _, err := parseToolCatalogYAML([]byte(yaml)); err == nil {
		t.Error("expected error for parameter declared both required and optional")
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	yaml := `
tools:
  - name: bad_tool
    keywords: [x]
    required:
      - name: topic
        type: float
`
	if _, err := parseToolCatalogYAML([]byte(yaml)); err == nil {
		t.Error("expected error for unknown parameter type")
	}
}

func TestFindToolsByKeyword(t *testing.T) {
	reg := loadTestRegistry(t)

	tests := []struct {
		name      string
		utterance string
		wantTool  string
	}{
		{"notes", "I need notes on photosynthesis", "note_maker"},
		{"flashcards", "make me 5 flashcards about chemistry", "flashcard_generator"},
		{"explain", "can you explain derivatives", "concept_explainer"},
		{"multi-word keyword", "what is a covalent bond", "concept_explainer"},
		{"quiz", "quiz me for the test tomorrow", "flashcard_generator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := reg.FindToolsByKeyword(tt.utterance)
			if len(matches) == 0 {
				t.Fatalf("no matches for %q", tt.utterance)
			}
			if matches[0].ToolName != tt.wantTool {
				t.Errorf("best match = %s, want %s (matches: %v)", matches[0].ToolName, tt.wantTool, matches)
			}
		})
	}
}

func TestFindToolsByKeywordNoMatch(t *testing.T) {
	reg := loadTestRegistry(t)

	matches := reg.FindToolsByKeyword("xyzzy plugh asdf")
	if len(matches) != 0 {
		t.Errorf("expected no matches for gibberish, got %v", matches)
	}

	if got := reg.FindToolsByKeyword(""); len(got) != 0 {
		t.Errorf("expected no matches for empty utterance, got %v", got)
	}
}

func TestFindToolsByKeywordTieBreak(t *testing.T) {
	reg := loadTestRegistry(t)

	// "review my notes" hits both note_maker (notes) and flashcard_generator
	// (review) with one keyword each; catalogue order puts note_maker first.
	matches := reg.FindToolsByKeyword("review my notes")
	if len(matches) < 2 {
		t.Fatalf("expected two matches, got %v", matches)
	}
	if matches[0].ToolName != "note_maker" {
		t.Errorf("tie should resolve to note_maker, got %s", matches[0].ToolName)
	}
}

func TestToolSpecParam(t *testing.T) {
	reg := loadTestRegistry(t)
	spec, _ := reg.Get("flashcard_generator")

	p, ok := spec.Param("count")
	if !ok {
		t.Fatal("count parameter should exist")
	}
	if p.Type != ParamTypeInt || p.Min == nil || *p.Min != 1 || p.Max == nil || *p.Max != 20 {
		t.Errorf("count spec = %+v, want int in [1,20]", p)
	}

	if _, ok := spec.Param("nonexistent"); ok {
		t.Error("Param should report absence of undeclared parameters")
	}
}

func TestSpecsDeterministicOrder(t *testing.T) {
	reg := loadTestRegistry(t)
	specs := reg.Specs()
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Name >= specs[i].Name {
			t.Errorf("Specs not sorted: %s before %s", specs[i-1].Name, specs[i].Name)
		}
	}
}
