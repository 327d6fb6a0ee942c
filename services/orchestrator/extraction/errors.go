// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extraction

import "errors"

var (
	// ErrExtractionUnavailable indicates the model backend is not configured
	// or refuses service (rate limit gate closed). The coordinator recovers
	// by falling back to rule-based extraction.
	ErrExtractionUnavailable = errors.New("model extraction unavailable")

	// ErrExtractionTimeout indicates the model call exceeded its bounded wait.
	// Recovered the same way as ErrExtractionUnavailable.
	ErrExtractionTimeout = errors.New("model extraction timed out")

	// ErrMalformedModelOutput indicates the model produced output that could
	// not be parsed into an extraction result.
	ErrMalformedModelOutput = errors.New("malformed model extraction output")
)
