// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"sqlpilot/cli/internal/pipeline"
)

// exitCodeError ends the process with code after the command has already
// reported the problem to the user.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCodeFor(status pipeline.Status) int {
	switch status {
	case pipeline.StatusSuccess:
		return 0
	case pipeline.StatusNonFixable:
		return 2
	case pipeline.StatusRetryExhausted:
		return 3
	default:
		return 1
	}
}
