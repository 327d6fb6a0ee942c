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

import "errors"

var (
	// ErrToolRejected indicates the tool refused the input. Rejections are
	// deterministic, so they are never retried.
	ErrToolRejected = errors.New("tool rejected input")

	// ErrToolExecutionFailed indicates the tool kept failing after the retry
	// budget was exhausted.
	ErrToolExecutionFailed = errors.New("tool execution failed")

	// ErrInvalidRetryConfig indicates a retry configuration that cannot be
	// executed (zero attempts, inverted backoff bounds).
	ErrInvalidRetryConfig = errors.New("invalid retry configuration")
)

// transientError marks a failure as worth retrying.
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// MarkTransient wraps err so IsTransient reports true for it. A nil err
// returns nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked transient anywhere in its chain.
// Rejections are never transient, even if double-wrapped.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrToolRejected) {
		return false
	}
	var t *transientError
	return errors.As(err, &t)
}
