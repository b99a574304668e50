// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/sqlexec"
)

var schemaTablesOnly bool

// schemaCmd prints the schema context handed to the model.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the schema context the model sees",
	Long: `The schema command prints the table and column description sent with every
prompt. It comes from schema_file when configured, otherwise from the database
catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if schemaTablesOnly {
			tables, err := sqlexec.NewSchemaInspector(s.exec).Tables(ctx)
			if err != nil {
				return err
			}
			for _, name := range sqlexec.TableNames(tables) {
				fmt.Println(name)
			}
			return nil
		}

		text, err := s.schema.Load(ctx)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaTablesOnly, "tables", false, "list table names only")
}
