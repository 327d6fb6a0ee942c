// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the tutoring orchestrator.
//
// This file contains the conversation context types shared by every pipeline
// stage: the student's message, the rolling chat history, and the student
// profile. These types are read-only once a run starts.
package datatypes

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTutor/pkg/validation"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	// Per SEC-003: Unbounded message input mitigation.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of history messages in a request.
	// Per SEC-004: Unbounded message history mitigation.
	MaxMessagesPerRequest = 100

	// MinMasteryLevel and MaxMasteryLevel bound the 1-10 mastery scale.
	MinMasteryLevel = 1
	MaxMasteryLevel = 10
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// orchestratorValidate is the validator instance for orchestrator datatypes.
// Initialized in init() with custom validators.
var orchestratorValidate *validator.Validate

func init() {
	orchestratorValidate = validator.New()

	// Register custom validator for message content size (SEC-003)
	_ = orchestratorValidate.RegisterValidation("maxbytes", validateMaxBytes)

	// Register custom validator for storage-safe session identifiers
	_ = orchestratorValidate.RegisterValidation("sessionid", validateSessionID)
}

// validateMaxBytes validates that a string field does not exceed MaxMessageContentBytes.
//
// # Description
//
// Custom validator to enforce SEC-003 message size limits. Checks byte length
// (not rune count) to prevent memory exhaustion attacks with large payloads.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if content <= 32KB, false otherwise
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// validateSessionID validates that a string field is a storage-safe session id.
// Delegates to pkg/validation so the rule matches what the session store enforces.
func validateSessionID(fl validator.FieldLevel) bool {
	return validation.ValidateSessionID(fl.Field().String()) == nil
}

// =============================================================================
// Conversation Context Types
// =============================================================================

// Message is a single turn of the conversation history.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// StudentProfile describes the student the run is serving.
//
// # Description
//
// The profile is read-only to the pipeline: the adaptation stage reads it to
// shape tool parameters but never writes it back. EmotionalState entries are
// free-form labels (e.g. "focused", "anxious", "confused", "tired") and are
// matched case-insensitively.
//
// # Fields
//
//   - Name: Student's display name.
//   - GradeLevel: School grade, 1-12.
//   - LearningStyle: Preferred teaching approach.
//   - EmotionalState: Current emotional labels, matched case-insensitively.
//   - MasteryLevel: 1-10 scale; 1-3 foundation, 4-6 developing, 7-9 advanced,
//     10 full mastery.
type StudentProfile struct {
	Name           string   `json:"name" validate:"required,max=128"`
	GradeLevel     int      `json:"grade_level" validate:"omitempty,gte=1,lte=12"`
	LearningStyle  string   `json:"learning_style" validate:"omitempty,oneof=direct socratic visual flipped_classroom"`
	EmotionalState []string `json:"emotional_state" validate:"max=8,dive,max=32"`
	MasteryLevel   int      `json:"mastery_level" validate:"required,gte=1,lte=10"`
}

// HasEmotion reports whether the profile carries the given emotional label.
// Matching is case-insensitive and ignores surrounding whitespace.
func (p *StudentProfile) HasEmotion(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, e := range p.EmotionalState {
		if strings.ToLower(strings.TrimSpace(e)) == label {
			return true
		}
	}
	return false
}

// ConversationContext is the immutable input snapshot for one orchestration run.
//
// # Validation
//
// Uses go-playground/validator:
//   - StudentMessage: required, max 32768 bytes (32KB) per SEC-003
//   - ChatHistory: 0-100 elements, each element validated
//   - StudentProfile: required, validated recursively
type ConversationContext struct {
	StudentMessage string         `json:"student_message" validate:"required,maxbytes"`
	ChatHistory    []Message      `json:"chat_history" validate:"max=100,dive"`
	StudentProfile StudentProfile `json:"student_profile" validate:"required"`
}

// Validate validates the ConversationContext fields.
func (c *ConversationContext) Validate() error {
	return orchestratorValidate.Struct(c)
}

// RecentHistory returns the last n history messages, newest last.
// Returns the full history when it holds fewer than n messages.
func (c *ConversationContext) RecentHistory(n int) []Message {
	if n <= 0 || len(c.ChatHistory) <= n {
		return c.ChatHistory
	}
	return c.ChatHistory[len(c.ChatHistory)-n:]
}

// generateUUID returns a new UUID v4 string for request/response/record ids.
func generateUUID() string {
	return uuid.NewString()
}

// nowUnixMilli returns the current time as Unix milliseconds UTC.
func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
