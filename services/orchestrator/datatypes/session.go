// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// SessionRecord is one append-only entry of a tutoring session's history.
//
// Records are written best-effort after each run; a storage failure never
// fails the run that produced the record.
type SessionRecord struct {
	RecordID   string            `json:"record_id"`
	SessionID  string            `json:"session_id"`
	Utterance  string            `json:"utterance"`
	Extraction *ExtractionResult `json:"extraction,omitempty"`
	ToolResult *ToolResult       `json:"tool_result,omitempty"`
	Outcome    string            `json:"outcome"`
	Timestamp  int64             `json:"timestamp"`
}

// NewSessionRecord creates a record with auto-generated ID and timestamp.
func NewSessionRecord(sessionID, utterance string) *SessionRecord {
	return &SessionRecord{
		RecordID:  generateUUID(),
		SessionID: sessionID,
		Utterance: utterance,
		Timestamp: nowUnixMilli(),
	}
}

// SessionAnalytics summarizes tool usage across a session's records.
type SessionAnalytics struct {
	SessionID    string         `json:"session_id"`
	TotalRuns    int            `json:"total_runs"`
	ToolUsage    map[string]int `json:"tool_usage"`
	MostUsedTool string         `json:"most_used_tool,omitempty"`
	LastRunAt    int64          `json:"last_run_at,omitempty"`
}
