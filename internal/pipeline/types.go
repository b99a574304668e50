// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"encoding/json"
	"time"

	"sqlpilot/cli/internal/sqlexec"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusNonFixable     Status = "NON_FIXABLE"
	StatusRetryExhausted Status = "RETRY_EXHAUSTED"
	StatusFatal          Status = "FATAL"
)

// Outcome classifies one attempt.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeEmpty         Outcome = "empty"
	OutcomeExecError     Outcome = "exec_error"
	OutcomeProviderError Outcome = "provider_error"
)

// Request is one natural-language question.
type Request struct {
	Question string
	Dialect  string
}

// Attempt is one generate-and-execute cycle.
type Attempt struct {
	Index   int     `json:"index"`
	SQL     string  `json:"sql_text"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error"`

	// Raw is the unprocessed model reply the SQL was extracted from.
	Raw string `json:"-"`
}

// Diagnosis is the reasoning agent's verdict on a failed attempt.
type Diagnosis struct {
	AttemptIndex int    `json:"attempt_index"`
	Reasoning    string `json:"reasoning"`
	Fixable      bool   `json:"fixable"`
}

// RunResult is the audit trail of a run. Rows is nil unless Status is SUCCESS.
type RunResult struct {
	RunID     string        `json:"run_id"`
	Question  string        `json:"question"`
	Dialect   string        `json:"dialect"`
	Status    Status        `json:"status"`
	Columns   []string      `json:"columns,omitempty"`
	Rows      []sqlexec.Row `json:"rows"`
	Attempts  []Attempt     `json:"attempts"`
	Diagnoses []Diagnosis   `json:"diagnoses"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// MarshalJSON adds duration_ms.
func (r RunResult) MarshalJSON() ([]byte, error) {
	type plain RunResult
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(r), r.Duration.Milliseconds()})
}

// FinalSQL returns the SQL of the last attempt, or "".
func (r RunResult) FinalSQL() string {
	if len(r.Attempts) == 0 {
		return ""
	}
	return r.Attempts[len(r.Attempts)-1].SQL
}

// LastDiagnosis returns the most recent diagnosis, or nil.
func (r RunResult) LastDiagnosis() *Diagnosis {
	if len(r.Diagnoses) == 0 {
		return nil
	}
	return &r.Diagnoses[len(r.Diagnoses)-1]
}
