// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/insights"
)

var suggestJSON bool

// suggestCmd proposes business questions for the connected schema.
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest business questions about your data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()

		sp := startSpinner("Reading schema")
		text, err := s.schema.Load(ctx)
		if err != nil {
			sp.Stop()
			return err
		}
		sp.Update("Thinking of questions")
		questions, err := insights.NewSuggester(s.llm, s.agents, logger).Suggest(ctx, text.String())
		sp.Stop()
		if err != nil {
			return describeLLMError(err, "suggesting questions")
		}

		if suggestJSON {
			return renderJSON(os.Stdout, map[string][]string{"questions": questions})
		}
		if len(questions) == 0 {
			pterm.Warning.Println("The model did not return any questions. Try again.")
			return nil
		}
		items := make([]pterm.BulletListItem, 0, len(questions))
		for _, q := range questions {
			items = append(items, pterm.BulletListItem{Level: 0, Text: q})
		}
		if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
			return err
		}
		pterm.Println()
		pterm.Println(`Ask one with: sqlpilot ask "<question>"`)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "print questions as JSON")
	suggestCmd.Flags().String("provider", "", "LLM provider: groq, openai or anthropic")
	suggestCmd.Flags().String("model", "", "LLM model name")
}
