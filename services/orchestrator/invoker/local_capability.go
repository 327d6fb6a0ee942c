// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invoker

import (
	"context"
	"fmt"
)

// LocalCapability executes tools in-process with generated content.
//
// # Description
//
// Stands in for the real educational tool services in development and test
// deployments. Output shapes match what the HTTP tools return so the rest
// of the pipeline cannot tell the difference.
type LocalCapability struct{}

// NewLocalCapability creates the in-process capability.
func NewLocalCapability() *LocalCapability {
	return &LocalCapability{}
}

// Execute implements the Capability interface.
func (l *LocalCapability) Execute(_ context.Context, toolName string, input map[string]any) (map[string]any, error) {
	switch toolName {
	case "note_maker":
		return l.makeNotes(input), nil
	case "flashcard_generator":
		return l.makeFlashcards(input), nil
	case "concept_explainer":
		return l.explainConcept(input), nil
	default:
		return nil, fmt.Errorf("unknown tool %q: %w", toolName, ErrToolRejected)
	}
}

func (l *LocalCapability) makeNotes(input map[string]any) map[string]any {
	topic := stringParam(input, "topic", "General Topic")
	subject := stringParam(input, "subject", "General Subject")
	style := stringParam(input, "note_taking_style", "structured")

	intro := map[string]any{
		"title":   fmt.Sprintf("Introduction to %s", topic),
		"content": fmt.Sprintf("This section covers the fundamental concepts of %s.", topic),
		"key_points": []string{
			fmt.Sprintf("Key concept 1 about %s", topic),
			fmt.Sprintf("Key concept 2 about %s", topic),
			fmt.Sprintf("Important relationship in %s", topic),
		},
		"examples": []string{
			fmt.Sprintf("Example 1 demonstrating %s", topic),
			fmt.Sprintf("Example 2 showing application of %s", topic),
		},
		"analogies": []string{},
	}
	if boolParam(input, "include_analogies") {
		intro["analogies"] = []string{fmt.Sprintf("Think of %s like a familiar concept...", topic)}
	}

	advanced := map[string]any{
		"title":   fmt.Sprintf("Advanced Concepts in %s", topic),
		"content": fmt.Sprintf("This section explores more complex aspects of %s.", topic),
		"key_points": []string{
			"Advanced principle 1",
			"Advanced principle 2",
		},
		"examples":  []string{},
		"analogies": []string{},
	}
	if boolParam(input, "include_examples") {
		advanced["examples"] = []string{fmt.Sprintf("Complex example of %s", topic)}
	}

	return map[string]any{
		"topic":         topic,
		"title":         fmt.Sprintf("Study Notes: %s", topic),
		"summary":       fmt.Sprintf("Comprehensive notes on %s in %s", topic, subject),
		"note_sections": []map[string]any{intro, advanced},
		"key_concepts": []string{
			fmt.Sprintf("Core concept A in %s", topic),
			fmt.Sprintf("Core concept B in %s", topic),
			fmt.Sprintf("Core concept C in %s", topic),
		},
		"connections_to_prior_learning": []string{
			"Connects to previous study of related topics",
			"Builds upon foundational knowledge",
		},
		"practice_suggestions": []string{
			fmt.Sprintf("Practice problem set 1 for %s", topic),
			fmt.Sprintf("Practice problem set 2 for %s", topic),
			"Review exercises",
		},
		"source_references": []string{
			fmt.Sprintf("Textbook chapter on %s", topic),
			fmt.Sprintf("Online resource about %s", subject),
		},
		"note_taking_style": style,
	}
}

func (l *LocalCapability) makeFlashcards(input map[string]any) map[string]any {
	topic := stringParam(input, "topic", "General Topic")
	difficulty := stringParam(input, "difficulty", "medium")
	count := intParam(input, "count", 5)
	withExamples := boolParam(input, "include_examples")

	flashcards := make([]map[string]any, 0, count)
	for i := 1; i <= count; i++ {
		card := map[string]any{
			"title":    fmt.Sprintf("%s - Card %d", topic, i),
			"question": fmt.Sprintf("What is the key concept %d in %s?", i, topic),
			"answer":   fmt.Sprintf("The answer to key concept %d in %s is...", i, topic),
		}
		if withExamples {
			card["example"] = fmt.Sprintf("Example: %s application %d", topic, i)
		}
		flashcards = append(flashcards, card)
	}

	return map[string]any{
		"flashcards":         flashcards,
		"topic":              topic,
		"adaptation_details": fmt.Sprintf("Flashcards adapted for %s difficulty level based on student profile", difficulty),
		"difficulty":         difficulty,
	}
}

func (l *LocalCapability) explainConcept(input map[string]any) map[string]any {
	concept := stringParam(input, "concept_to_explain", "General Concept")
	depth := stringParam(input, "desired_depth", "intermediate")

	return map[string]any{
		"explanation": fmt.Sprintf("A %s explanation of %s: This concept involves multiple interconnected ideas that work together to form a comprehensive understanding.", depth, concept),
		"examples": []string{
			fmt.Sprintf("Example 1: Real-world application of %s", concept),
			fmt.Sprintf("Example 2: Practical demonstration of %s", concept),
			fmt.Sprintf("Example 3: Common scenario involving %s", concept),
		},
		"related_concepts": []string{
			fmt.Sprintf("Related concept A that connects to %s", concept),
			fmt.Sprintf("Related concept B that builds upon %s", concept),
			fmt.Sprintf("Related concept C that applies %s", concept),
		},
		"practice_questions": []string{
			fmt.Sprintf("How does %s relate to your previous knowledge?", concept),
			fmt.Sprintf("Can you identify %s in this new scenario?", concept),
			fmt.Sprintf("What would happen if we modified %s?", concept),
		},
		"source_references": []string{
			fmt.Sprintf("Academic source on %s", concept),
			fmt.Sprintf("Research paper about %s", concept),
			fmt.Sprintf("Educational resource for %s", concept),
		},
	}
}

func stringParam(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func boolParam(input map[string]any, key string) bool {
	v, _ := input[key].(bool)
	return v
}
