// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session persists per-session orchestration history.
//
// The store is append-only: every completed run adds one record, nothing is
// ever updated in place, and records age out via the configured TTL. Writes
// are best-effort from the pipeline's point of view; a failed append must
// never fail the run that produced it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// DefaultTTL is how long session records are retained.
const DefaultTTL = 24 * time.Hour

// ErrSessionStoreUnavailable indicates the backing store cannot serve the
// request (closed database, corrupted directory).
var ErrSessionStoreUnavailable = errors.New("session store unavailable")

// Store is the session history persistence contract.
type Store interface {
	// Append adds one record to the session's history.
	Append(ctx context.Context, record *datatypes.SessionRecord) error

	// History returns the session's records in append order. An unknown
	// session yields an empty slice, not an error.
	History(ctx context.Context, sessionID string) ([]*datatypes.SessionRecord, error)

	// Analytics summarizes tool usage for the session.
	Analytics(ctx context.Context, sessionID string) (*datatypes.SessionAnalytics, error)

	// Close releases the backing store.
	Close() error
}
