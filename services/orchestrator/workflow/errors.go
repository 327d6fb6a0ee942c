// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import "errors"

var (
	// ErrNoToolMatched indicates no tool cleared the selection confidence
	// bar, even after keyword rescoring.
	ErrNoToolMatched = errors.New("no tool matched the student's request")

	// ErrInvalidParameters indicates the prepared tool input failed schema
	// validation. The run's RunError carries the per-field details.
	ErrInvalidParameters = errors.New("tool input failed validation")
)
