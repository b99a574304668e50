// Package main is the entry point for the sqlpilot CLI.
package main

import (
	"sqlpilot/cli/cmd"
)

func main() {
	cmd.Execute()
}
