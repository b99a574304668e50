// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// runState is the latest known state of one run.
type runState struct {
	attempt int
	stage   Stage
}

// Tracker keeps the progress of a batch of runs.
type Tracker struct {
	mu sync.Mutex
	// expected is the number of runs in the batch
	expected int
	// active maps run IDs to their latest state
	active map[string]runState
	// order preserves the sequence in which runs started
	order     []string
	completed map[string]struct{}
	// failed maps run IDs to their terminal status
	failed map[string]string
	// maxLineLen keeps the status line from shrinking, which would flicker
	maxLineLen int
}

// NewTracker creates a tracker expecting n runs.
func NewTracker(n int) *Tracker {
	return &Tracker{
		expected:  n,
		active:    make(map[string]runState),
		completed: make(map[string]struct{}),
		failed:    make(map[string]string),
	}
}

// Observe folds ev into the tracker. It satisfies Sink via t.Observe.
func (t *Tracker) Observe(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Terminal {
		delete(t.active, ev.RunID)
		if ev.Success {
			t.completed[ev.RunID] = struct{}{}
		} else {
			t.failed[ev.RunID] = string(ev.Stage)
		}
		return
	}
	if _, ok := t.active[ev.RunID]; !ok {
		t.order = append(t.order, ev.RunID)
	}
	t.active[ev.RunID] = runState{attempt: ev.Attempt, stage: ev.Stage}
}

// CompletedCount returns the number of successful runs.
func (t *Tracker) CompletedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.completed)
}

// FailedCount returns the number of runs that ended without rows.
func (t *Tracker) FailedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failed)
}

// Line renders the status line. A single run shows its stage; a batch shows counts.
func (t *Tracker) Line() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var line string
	if t.expected <= 1 {
		line = "Thinking"
		for _, id := range t.order {
			if st, ok := t.active[id]; ok {
				line = describe(st)
			}
		}
	} else {
		done := len(t.completed) + len(t.failed)
		line = fmt.Sprintf("Answering questions: %d/%d done", done, t.expected)
		if n := len(t.failed); n > 0 {
			line += fmt.Sprintf(", %d unanswered", n)
		}
		if n := t.retrying(); n > 0 {
			line += fmt.Sprintf(", %d correcting", n)
		}
	}
	return t.pad(line)
}

// retrying counts active runs past their first attempt.
func (t *Tracker) retrying() int {
	n := 0
	for _, st := range t.active {
		if st.attempt > 0 {
			n++
		}
	}
	return n
}

func (t *Tracker) pad(line string) string {
	n := utf8.RuneCountInString(line)
	if n > t.maxLineLen {
		t.maxLineLen = n
	}
	return line + strings.Repeat(" ", t.maxLineLen-n)
}

func describe(st runState) string {
	var verb string
	switch st.stage {
	case StageGenerate:
		verb = "Writing SQL"
	case StageExecute, StageExecuted:
		verb = "Running query"
	case StageDiagnose:
		verb = "Diagnosing failure"
	case StageRegenerate:
		verb = "Correcting query"
	default:
		verb = "Thinking"
	}
	if st.attempt == 0 {
		return verb
	}
	return fmt.Sprintf("%s (attempt %d)", verb, st.attempt+1)
}
