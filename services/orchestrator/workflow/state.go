// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow runs the orchestration pipeline: a sequential state
// machine from extraction through tool invocation to response assembly.
package workflow

import (
	"time"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageExtracting Stage = "extracting"
	StageSelecting  Stage = "selecting"
	StagePreparing  Stage = "preparing"
	StageValidating Stage = "validating"
	StageExecuting  Stage = "executing"
	StageBuilding   Stage = "building"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// pipelineOrder is the only legal forward path; a run either walks it to
// done or drops to failed from whichever stage broke.
var pipelineOrder = []Stage{
	StageExtracting,
	StageSelecting,
	StagePreparing,
	StageValidating,
	StageExecuting,
	StageBuilding,
}

// State tracks one run's progress and accumulates its trace.
//
// Not safe for concurrent use; each run owns its own State.
type State struct {
	current Stage
	trace   []datatypes.TraceEntry
}

// NewState starts a run at the extracting stage.
func NewState() *State {
	return &State{current: StageExtracting}
}

// Current returns the stage the run sits at.
func (s *State) Current() Stage {
	return s.current
}

// Trace returns the transitions recorded so far.
func (s *State) Trace() []datatypes.TraceEntry {
	return s.trace
}

// Complete records the current stage as succeeded and advances to the next
// stage in the pipeline. Completing the last stage lands on done.
func (s *State) Complete(detail string) {
	s.trace = append(s.trace, datatypes.TraceEntry{
		Stage:     string(s.current),
		Outcome:   "ok",
		Detail:    detail,
		Timestamp: time.Now().UnixMilli(),
	})
	s.current = s.next()
}

// Fail records the current stage as failed and moves the run to failed.
// A failed run makes no further transitions.
func (s *State) Fail(detail string) {
	s.trace = append(s.trace, datatypes.TraceEntry{
		Stage:     string(s.current),
		Outcome:   "failed",
		Detail:    detail,
		Timestamp: time.Now().UnixMilli(),
	})
	s.current = StageFailed
}

// Terminal reports whether the run has reached done or failed.
func (s *State) Terminal() bool {
	return s.current == StageDone || s.current == StageFailed
}

func (s *State) next() Stage {
	for i, stage := range pipelineOrder {
		if stage == s.current {
			if i == len(pipelineOrder)-1 {
				return StageDone
			}
			return pipelineOrder[i+1]
		}
	}
	return s.current
}
