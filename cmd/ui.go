// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"sqlpilot/cli/internal/terminal"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a status line in a pterm area until stopped.
type spinner struct {
	mu   sync.Mutex
	text string
	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// startSpinner shows text with an animated frame. On non-interactive output
// it does nothing, so piped output stays clean.
func startSpinner(text string) *spinner {
	s := &spinner{text: text, stop: make(chan struct{})}
	if !terminal.IsInteractive() {
		return s
	}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return s
	}
	s.area = area
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				s.mu.Lock()
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], s.text))
				s.mu.Unlock()
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

// Update replaces the status text.
func (s *spinner) Update(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Stop removes the spinner and restores the cursor. Safe to call twice.
func (s *spinner) Stop() {
	if s.area == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	_ = s.area.Stop()
	s.area = nil
	cursor.Show()
}
