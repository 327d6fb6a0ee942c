// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extraction turns a conversation context into a candidate tool name
// and parameter set. Two extractors exist: a deterministic rule-based one
// (total, never fails) and an optional model-based one. The Coordinator
// prefers the model and falls back to rules on any model failure.
package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/registry"
)

// =============================================================================
// Lexicons
// =============================================================================

// academicTopics are recognized topic terms, matched as substrings of the
// lowercased utterance. Multi-word entries must precede their single-word
// prefixes so the longest match wins.
var academicTopics = []string{
	"data structures", "computer science",
	"calculus", "algebra", "geometry", "trigonometry", "statistics",
	"physics", "chemistry", "biology", "anatomy", "genetics",
	"history", "literature", "writing", "grammar", "vocabulary",
	"programming", "algorithms",
	"economics", "psychology", "sociology", "philosophy",
}

// subjectKeywords maps academic subjects to the terms that imply them.
var subjectKeywords = map[string][]string{
	"math":             {"math", "calculus", "algebra", "geometry", "trigonometry", "statistics"},
	"science":          {"physics", "chemistry", "biology", "science"},
	"english":          {"english", "literature", "writing", "grammar"},
	"history":          {"history", "social studies"},
	"computer science": {"programming", "computer", "coding", "algorithms", "data structures"},
}

// subjectOrder fixes iteration order over subjectKeywords for determinism.
var subjectOrder = []string{"math", "science", "english", "history", "computer science"}

// topicPatterns capture a trailing topic clause after a trigger word.
var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`about\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`on\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`with\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`studying\s+([a-zA-Z][a-zA-Z\s]*)`),
}

// conceptPatterns capture the concept a student wants explained.
var conceptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`explain\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`what is\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`understand\s+([a-zA-Z][a-zA-Z\s]*)`),
	regexp.MustCompile(`confused about\s+([a-zA-Z][a-zA-Z\s]*)`),
}

var countPattern = regexp.MustCompile(`(\d+)`)

// =============================================================================
// Rule Extractor
// =============================================================================

// RuleExtractor is the deterministic keyword-based extractor.
//
// # Description
//
// Routes the utterance to a tool via the catalogue's keyword index, then
// recovers tool-specific parameters with lexicons and patterns. Total: the
// same input always yields the same result and no input yields an error.
// When nothing matches, the result carries an empty tool name and
// confidence 0.0.
//
// # Thread Safety
//
// Safe for concurrent use; holds only the immutable catalogue.
type RuleExtractor struct {
	registry *registry.ToolRegistry
}

// NewRuleExtractor creates a rule extractor over the given catalogue.
func NewRuleExtractor(reg *registry.ToolRegistry) *RuleExtractor {
	return &RuleExtractor{registry: reg}
}

// Extract infers a tool and parameters from the conversation context.
//
// The ctx parameter exists for interface symmetry with the model extractor;
// rule extraction never blocks.
func (e *RuleExtractor) Extract(_ context.Context, conv *datatypes.ConversationContext) datatypes.ExtractionResult {
	message := strings.ToLower(conv.StudentMessage)

	result := datatypes.ExtractionResult{
		Parameters: map[string]any{},
		Source:     datatypes.ExtractionSourceRule,
	}

	matches := e.registry.FindToolsByKeyword(message)
	if len(matches) == 0 {
		result.Reasoning = "No tool keywords matched the student's message."
		return result
	}
	result.ToolName = matches[0].ToolName

	topic := extractTopic(message)
	subject := extractSubject(message)
	if topic != "" {
		result.Parameters["topic"] = topic
	}
	if subject != "" {
		result.Parameters["subject"] = subject
	}

	switch result.ToolName {
	case "note_maker":
		extractNoteMakerParams(message, result.Parameters)
	case "flashcard_generator":
		extractFlashcardParams(message, result.Parameters)
	case "concept_explainer":
		extractExplainerParams(message, topic, subject, result.Parameters)
	}

	result.Confidence = ruleConfidence(result.ToolName, topic, subject)
	result.Reasoning = ruleReasoning(result)

	return result
}

// extractTopic returns the first recognized academic topic, or the clause
// after a trigger word when short enough to be a plausible topic.
func extractTopic(message string) string {
	for _, topic := range academicTopics {
		if strings.Contains(message, topic) {
			return topic
		}
	}

	for _, pattern := range topicPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			topic := strings.TrimSpace(m[1])
			if len(strings.Fields(topic)) <= 3 {
				return topic
			}
		}
	}

	return ""
}

// extractSubject maps the utterance to an academic subject.
func extractSubject(message string) string {
	for _, subject := range subjectOrder {
		for _, keyword := range subjectKeywords[subject] {
			if strings.Contains(message, keyword) {
				return subject
			}
		}
	}
	return ""
}

func extractNoteMakerParams(message string, params map[string]any) {
	switch {
	case strings.Contains(message, "outline") || strings.Contains(message, "bullet") || strings.Contains(message, "points"):
		params["note_taking_style"] = "outline"
	case strings.Contains(message, "narrative"):
		params["note_taking_style"] = "narrative"
	default:
		params["note_taking_style"] = "structured"
	}

	params["include_examples"] = strings.Contains(message, "example")
	params["include_analogies"] = strings.Contains(message, "analog")
}

func extractFlashcardParams(message string, params map[string]any) {
	if m := countPattern.FindStringSubmatch(message); m != nil {
		count, err := strconv.Atoi(m[1])
		if err == nil {
			// Clamp rather than reject: out-of-range counts are treated as
			// emphatic requests for the nearest bound.
			if count < 1 {
				count = 1
			}
			if count > 20 {
				count = 20
			}
			params["count"] = count
		}
	} else {
		params["count"] = 10
	}

	switch {
	case containsAny(message, "easy", "basic", "simple"):
		params["difficulty"] = "easy"
	case containsAny(message, "hard", "difficult", "advanced", "challenging"):
		params["difficulty"] = "hard"
	default:
		params["difficulty"] = "medium"
	}

	params["include_examples"] = true
}

func extractExplainerParams(message, topic, subject string, params map[string]any) {
	for _, pattern := range conceptPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			concept := strings.TrimSpace(m[1])
			if len(strings.Fields(concept)) <= 4 {
				params["concept_to_explain"] = concept
				break
			}
		}
	}

	switch {
	case containsAny(message, "basic", "simple", "overview"):
		params["desired_depth"] = "basic"
	case containsAny(message, "detailed", "comprehensive", "thorough"):
		params["desired_depth"] = "comprehensive"
	case containsAny(message, "advanced", "deep"):
		params["desired_depth"] = "advanced"
	default:
		params["desired_depth"] = "intermediate"
	}

	// Broader topic context falls back to whatever was recognized.
	if topic != "" {
		params["current_topic"] = topic
	} else if subject != "" {
		params["current_topic"] = subject
	} else if concept, ok := params["concept_to_explain"].(string); ok {
		params["current_topic"] = concept
	}
}

// ruleConfidence scores how much of the inference is backed by evidence.
// Results with a tool are clamped to [0.3, 1.0]; no tool means 0.0.
func ruleConfidence(toolName, topic, subject string) float64 {
	if toolName == "" {
		return 0.0
	}

	// Summed in integer tenths: adding the float weights directly leaves
	// 0.5+0.2+0.2+0.1 just shy of 1.0.
	tenths := 5 + 2 // base + tool keyword match
	if topic != "" {
		tenths += 2
	}
	if subject != "" {
		tenths++
	}

	if tenths > 10 {
		tenths = 10
	}
	if tenths < 3 {
		tenths = 3
	}
	return float64(tenths) / 10
}

// ruleReasoning assembles the human-readable extraction explanation.
func ruleReasoning(result datatypes.ExtractionResult) string {
	parts := []string{
		fmt.Sprintf("Identified '%s' as the most appropriate tool", result.ToolName),
	}
	if topic, ok := result.Parameters["topic"].(string); ok {
		parts = append(parts, fmt.Sprintf("Extracted topic: '%s'", topic))
	}
	if difficulty, ok := result.Parameters["difficulty"].(string); ok {
		parts = append(parts, fmt.Sprintf("Inferred difficulty level: '%s'", difficulty))
	}
	if depth, ok := result.Parameters["desired_depth"].(string); ok {
		parts = append(parts, fmt.Sprintf("Inferred desired depth: '%s'", depth))
	}
	return strings.Join(parts, ". ") + "."
}

func containsAny(message string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(message, w) {
			return true
		}
	}
	return false
}
