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
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// ValidationOutcome is the all-or-nothing result of validating tool input.
//
// A tool input is either fully valid or invalid with the complete list of
// field errors; there is no partially-valid state. Validation is idempotent:
// it never mutates the input.
type ValidationOutcome struct {
	Valid  bool                   `json:"valid"`
	Errors []datatypes.FieldError `json:"errors,omitempty"`
}

// ErrUnknownTool is returned when validating against a tool the catalogue
// does not contain.
type ErrUnknownTool struct {
	ToolName string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.ToolName)
}

// ValidateInput validates a candidate input map against a tool's schema.
//
// # Description
//
//	Checks, in order per field: required presence, type, enum membership,
//	numeric range, and string length. Fields not declared by the schema
//	produce an "unknown field" error. Missing optional fields are fine.
//	All failures are collected; the outcome is never partial.
//
// # Inputs
//
//	toolName - Tool to validate against. Must exist in the catalogue.
//	input - Candidate parameters. Not mutated.
//
// # Outputs
//
//	ValidationOutcome - Valid=true with no errors, or Valid=false with all errors.
//	error - Non-nil only when toolName is not in the catalogue.
//
// Thread Safety: Safe for concurrent use.
func (r *ToolRegistry) ValidateInput(toolName string, input map[string]any) (ValidationOutcome, error) {
	spec, ok := r.Get(toolName)
	if !ok {
		return ValidationOutcome{}, &ErrUnknownTool{ToolName: toolName}
	}

	var errs []datatypes.FieldError

	for _, p := range spec.Required {
		v, present := input[p.Name]
		if !present || v == nil {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: "required parameter is missing",
			})
			continue
		}
		errs = append(errs, checkValue(p, v)...)
	}

	for _, p := range spec.Optional {
		v, present := input[p.Name]
		if !present || v == nil {
			continue
		}
		errs = append(errs, checkValue(p, v)...)
	}

	// Unknown fields are rejected rather than silently dropped.
	var unknown []string
	for name := range input {
		if _, declared := spec.Param(name); !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, datatypes.FieldError{
			Field:   name,
			Message: "unknown field",
		})
	}

	return ValidationOutcome{Valid: len(errs) == 0, Errors: errs}, nil
}

// checkValue validates a single present value against its spec.
func checkValue(p ParamSpec, v any) []datatypes.FieldError {
	var errs []datatypes.FieldError

	switch p.Type {
	case ParamTypeString:
		s, ok := v.(string)
		if !ok {
			return append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("expected string, got %T", v),
			})
		}
		if p.MaxLen > 0 && len(s) > p.MaxLen {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("exceeds maximum length %d", p.MaxLen),
			})
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("value %q not in %v", s, p.Enum),
			})
		}

	case ParamTypeInt:
		n, ok := asInt(v)
		if !ok {
			return append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("expected integer, got %T", v),
			})
		}
		if p.Min != nil && n < *p.Min {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("below minimum %d", *p.Min),
			})
		}
		if p.Max != nil && n > *p.Max {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("above maximum %d", *p.Max),
			})
		}

	case ParamTypeBool:
		if _, ok := v.(bool); !ok {
			errs = append(errs, datatypes.FieldError{
				Field:   p.Name,
				Message: fmt.Sprintf("expected boolean, got %T", v),
			})
		}
	}

	return errs
}

// asInt accepts int and whole-valued float64 (JSON numbers decode as float64).
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func containsString(set []string, s string) bool {
	for _, e := range set {
		if e == s {
			return true
		}
	}
	return false
}
