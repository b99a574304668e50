// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package progress carries pipeline state changes to the terminal UI. The
// pipeline emits an Event on every transition; a Tracker folds events from
// any number of concurrent runs into one status line.
package progress

// Stage names a pipeline state. Terminal stages end a run.
type Stage string

const (
	StageGenerate   Stage = "GENERATE"
	StageExecute    Stage = "EXECUTE"
	StageExecuted   Stage = "EXECUTED"
	StageDiagnose   Stage = "DIAGNOSE"
	StageRegenerate Stage = "REGENERATE"
)

// Event is one state change of one run.
type Event struct {
	RunID    string `json:"run_id"`
	Question string `json:"question,omitempty"`
	Attempt  int    `json:"attempt"`
	Stage    Stage  `json:"stage"`
	// Outcome is set on EXECUTED and DIAGNOSE.
	Outcome string `json:"outcome,omitempty"`
	// Terminal marks the final event of a run; Stage then holds the status.
	Terminal bool `json:"terminal,omitempty"`
	Success  bool `json:"success,omitempty"`
}

// Sink receives events. It may be called from several goroutines.
type Sink func(Event)

// Emit calls s when it is non-nil.
func (s Sink) Emit(ev Event) {
	if s != nil {
		s(ev)
	}
}
