// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	execJSON   bool
	execFormat string
)

// execCmd runs a SQL statement directly, without the LLM.
var execCmd = &cobra.Command{
	Use:   "exec [sql]",
	Short: "Run a SQL statement directly",
	Long: `The exec command runs one SQL statement against the configured database and
prints the rows with the same normalization as ask. Write statements are rejected
unless --allow-writes is set; allowed writes run in their own transaction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exec, _, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer exec.Close()

		res, err := exec.Execute(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if execJSON {
			return renderJSON(os.Stdout, res)
		}
		if len(res.Rows) == 0 && res.RowsAffected > 0 {
			pterm.Success.Printf("%d rows affected\n", res.RowsAffected)
			return nil
		}
		return renderRows(os.Stdout, res.Columns, res.Rows, execFormat)
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().Bool("allow-writes", false, "allow INSERT/UPDATE/DELETE/DDL statements")
	execCmd.Flags().BoolVar(&execJSON, "json", false, "print rows as JSON")
	execCmd.Flags().StringVar(&execFormat, "format", formatTable, "row format: table, csv or md")
}
