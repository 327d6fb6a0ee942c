// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/storage/badger"
)

// keyPrefix namespaces session records inside the shared database.
const keyPrefix = "session/"

// BadgerStore persists session records in BadgerDB with per-entry TTL.
//
// # Description
//
// Keys are "session/<sessionID>/<timestampMillis>/<recordID>", so a prefix
// scan over a session returns records in append order without a secondary
// index. Retention is enforced by Badger's entry TTL, not by a sweeper.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore wraps an opened database as a session store. A
// non-positive ttl falls back to DefaultTTL.
func NewBadgerStore(db *badger.DB, ttl time.Duration) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// OpenBadgerStore opens a database at path and wraps it as a session store.
// An empty path opens an in-memory store.
func OpenBadgerStore(path string, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	var cfg badger.Config
	if path == "" {
		cfg = badger.InMemoryConfig()
	} else {
		cfg = badger.DefaultConfig()
		cfg.Path = path
	}
	cfg.Logger = logger

	db, err := badger.OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return NewBadgerStore(db, ttl)
}

func recordKey(record *datatypes.SessionRecord) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", keyPrefix, record.SessionID, record.Timestamp, record.RecordID))
}

func sessionPrefix(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + "/")
}

// Append implements the Store interface.
func (s *BadgerStore) Append(ctx context.Context, record *datatypes.SessionRecord) error {
	if record == nil || record.SessionID == "" {
		return fmt.Errorf("record must have a session ID")
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	err = s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry(recordKey(record), value).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: append: %v", ErrSessionStoreUnavailable, err)
	}
	return nil
}

// History implements the Store interface.
func (s *BadgerStore) History(ctx context.Context, sessionID string) ([]*datatypes.SessionRecord, error) {
	records := []*datatypes.SessionRecord{}

	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		prefix := sessionPrefix(sessionID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record datatypes.SessionRecord
				if err := json.Unmarshal(val, &record); err != nil {
					// A corrupt record is skipped, not fatal.
					slog.Warn("Skipping unreadable session record",
						"session_id", sessionID,
						"key", string(it.Item().Key()),
						"error", err)
					return nil
				}
				records = append(records, &record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrSessionStoreUnavailable, err)
	}

	return records, nil
}

// Analytics implements the Store interface.
func (s *BadgerStore) Analytics(ctx context.Context, sessionID string) (*datatypes.SessionAnalytics, error) {
	records, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	analytics := &datatypes.SessionAnalytics{
		SessionID: sessionID,
		TotalRuns: len(records),
		ToolUsage: map[string]int{},
	}

	for _, record := range records {
		if record.Extraction != nil && record.Extraction.ToolName != "" {
			analytics.ToolUsage[record.Extraction.ToolName]++
		}
		if record.Timestamp > analytics.LastRunAt {
			analytics.LastRunAt = record.Timestamp
		}
	}

	// Deterministic winner: highest count, name as tie-break.
	tools := make([]string, 0, len(analytics.ToolUsage))
	for tool := range analytics.ToolUsage {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	best := 0
	for _, tool := range tools {
		if analytics.ToolUsage[tool] > best {
			best = analytics.ToolUsage[tool]
			analytics.MostUsedTool = tool
		}
	}

	return analytics, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
