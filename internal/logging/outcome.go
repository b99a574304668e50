// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// OutcomeType represents how a finished run should be explained to the user.
type OutcomeType int

const (
	OutcomeAnswered OutcomeType = iota
	// OutcomeUnanswerable covers runs that ended normally without an answer.
	OutcomeUnanswerable
	// OutcomeExhausted covers runs that used the whole retry budget.
	OutcomeExhausted
	// OutcomeBroken covers runs that hit an internal failure.
	OutcomeBroken
)

// ParseOutcome maps a run status string to its presentation category.
func ParseOutcome(status string) OutcomeType {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS":
		return OutcomeAnswered
	case "NON_FIXABLE":
		return OutcomeUnanswerable
	case "RETRY_EXHAUSTED":
		return OutcomeExhausted
	default:
		return OutcomeBroken
	}
}

// FormatOutcome renders a failed run for the terminal.
// Unanswerable and exhausted runs get an explanation built from the last
// diagnosis; broken runs get a generic message plus masked technical details.
func FormatOutcome(status, reasoning, detail string, attempts int) string {
	var builder strings.Builder

	switch ParseOutcome(status) {
	case OutcomeAnswered:
		builder.WriteString(pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("Answered"))
		builder.WriteString("\n")
		return builder.String()

	case OutcomeUnanswerable:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("Not a data question"))
		builder.WriteString("\n\n")
		builder.WriteString("This question could not be answered with a SQL query against your database.\n")
		builder.WriteString("Try asking about the tables shown by 'sqlpilot schema'.\n")

	case OutcomeExhausted:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("No working query found"))
		builder.WriteString("\n\n")
		builder.WriteString(fmt.Sprintf("Tried %d queries and none returned rows for this question.\n", attempts))
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • The data you asked about is not in the database\n")
		builder.WriteString("  • The question needs more specific table or column names\n")
		builder.WriteString("  • A larger --max-retry would let it keep correcting\n")

	default:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Something went wrong"))
		builder.WriteString("\n\n")
		builder.WriteString("sqlpilot hit an internal error while answering this question.\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please try again; run with --log-level debug for details"))
		builder.WriteString("\n")
		if strings.TrimSpace(detail) != "" {
			builder.WriteString("\n")
			builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(detail)))
			builder.WriteString("\n")
		}
		return builder.String()
	}

	if strings.TrimSpace(reasoning) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Last diagnosis: " + Mask(strings.TrimSpace(reasoning))))
		builder.WriteString("\n")
	}
	return builder.String()
}

// PresentOutcome displays a formatted run outcome.
func PresentOutcome(status, reasoning, detail string, attempts int) {
	fmt.Println()
	fmt.Println(FormatOutcome(status, reasoning, detail, attempts))
}
