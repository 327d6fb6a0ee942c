// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end up in
// storage keys, log lines, or URL paths. Using these validators prevents key
// injection and path traversal via crafted session or tool identifiers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDPattern matches valid session identifiers.
// Allows: letters, digits, hyphens, underscores (covers UUIDs and
// client-chosen ids). Max length: 64 characters.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-]{0,63}$`)

// toolNamePattern matches valid tool names.
// Tool names are lowercase snake_case, 1-48 characters.
var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// ValidateSessionID validates a session identifier before it is used in a
// storage key or URL path.
//
// Valid session ids:
//   - 1-64 characters
//   - Letters, digits, hyphens, underscores
//   - Must start with a letter or digit
//
// Returns an error if the id is invalid.
//
// Example:
//
//	if err := validation.ValidateSessionID(id); err != nil {
//	    return fmt.Errorf("invalid session id: %w", err)
//	}
//	// Safe to use as a storage key prefix
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q (must be 1-64 alphanumeric chars, hyphens, or underscores)", id)
	}

	return nil
}

// ValidateToolName validates a tool name against the snake_case convention
// used by the tool catalogue.
//
// Returns an error if the name is invalid.
func ValidateToolName(name string) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	if !toolNamePattern.MatchString(name) {
		return fmt.Errorf("invalid tool name format: %q (must be 1-48 lowercase snake_case chars)", name)
	}

	return nil
}

// SanitizeSessionID normalizes and validates a session identifier.
// Returns the trimmed id if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safeID, err := validation.SanitizeSessionID(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeID is trimmed and validated
func SanitizeSessionID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateSessionID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
