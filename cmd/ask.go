// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sqlpilot/cli/internal/insights"
	"sqlpilot/cli/internal/logging"
	"sqlpilot/cli/internal/pipeline"
	"sqlpilot/cli/internal/progress"
)

var (
	askJSON     bool
	askFormat   string
	askDescribe bool
	askTrail    bool
	askFile     string
)

// askCmd answers natural-language questions through the self-correcting pipeline.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question about your data",
	Long: `The ask command turns a question into SQL, runs it and prints the rows.
When the query fails or returns nothing, the error is diagnosed and a corrected
query is tried, up to --max-retry times.

Examples:
  sqlpilot ask "total sales by region"
  sqlpilot ask "top 5 customers by revenue" --format md --trail
  sqlpilot ask --file questions.txt --json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askFile == "" && len(args) == 0 {
			return fmt.Errorf("a question or --file is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		questions := []string{strings.Join(args, " ")}
		if askFile != "" {
			qs, err := readQuestions(askFile)
			if err != nil {
				return err
			}
			questions = qs
		}

		s, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()

		sp := startSpinner("Loading schema")
		tracker := progress.NewTracker(len(questions))
		ctrl, err := s.controller(ctx, appCfg.MaxRetry, func(ev progress.Event) {
			tracker.Observe(ev)
			sp.Update(tracker.Line())
		})
		if err != nil {
			sp.Stop()
			return err
		}

		sp.Update(tracker.Line())
		results := runQuestions(ctx, ctrl, questions, s.dialect, appCfg.Concurrency)
		sp.Stop()

		if askJSON {
			if len(results) == 1 {
				return renderJSON(os.Stdout, results[0])
			}
			return renderJSON(os.Stdout, results)
		}

		code := 0
		for i, res := range results {
			if len(results) > 1 {
				if i > 0 {
					pterm.Println()
				}
				pterm.DefaultSection.Println(res.Question)
			}
			if c := presentRun(ctx, s, res); c > code {
				code = c
			}
		}
		if len(results) > 1 {
			pterm.Println()
			pterm.Info.Printf("%d of %d questions answered\n", tracker.CompletedCount(), len(results))
			if n := tracker.FailedCount(); n > 0 {
				pterm.Warning.Printf("%d questions could not be answered\n", n)
			}
		}
		if code != 0 {
			return exitCodeError{code: code}
		}
		return nil
	},
}

// runQuestions answers questions concurrently, at most limit at a time.
// Results keep the order of questions.
func runQuestions(ctx context.Context, ctrl *pipeline.Controller, questions []string, dialect string, limit int) []pipeline.RunResult {
	results := make([]pipeline.RunResult, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, q := range questions {
		g.Go(func() error {
			results[i] = ctrl.Run(gctx, pipeline.Request{Question: q, Dialect: dialect})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// presentRun prints one result and returns its exit code.
func presentRun(ctx context.Context, s *session, res pipeline.RunResult) int {
	if askTrail || (res.Status != pipeline.StatusSuccess && len(res.Attempts) > 1) {
		renderTrail(os.Stdout, res)
	}

	if res.Status != pipeline.StatusSuccess {
		reasoning := ""
		if d := res.LastDiagnosis(); d != nil {
			reasoning = d.Reasoning
		}
		logging.PresentOutcome(string(res.Status), reasoning, res.Error, len(res.Attempts))
		return exitCodeFor(res.Status)
	}

	pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint(res.FinalSQL()))
	pterm.Println()
	if err := renderRows(os.Stdout, res.Columns, res.Rows, askFormat); err != nil {
		pterm.Error.Println(err)
		return 1
	}

	if askDescribe {
		sp := startSpinner("Describing results")
		desc, err := insights.NewDescriber(s.llm, s.agents).Describe(ctx, res.Question, res.Rows)
		sp.Stop()
		if err != nil {
			pterm.Warning.Println(logging.PresentError("could not describe results", err))
			return 0
		}
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Insights")).
			WithPadding(1).
			Println(desc)
	}
	return 0
}

// readQuestions reads one question per line, skipping blanks and # comments.
func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no questions found in %s", path)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	f := askCmd.Flags()
	f.Int("max-retry", 3, "maximum number of corrected queries to try")
	f.String("dialect", "", "SQL dialect handed to the model (default: derived from the DSN)")
	f.Bool("allow-writes", false, "allow INSERT/UPDATE/DELETE/DDL statements")
	f.String("provider", "", "LLM provider: groq, openai or anthropic")
	f.String("model", "", "LLM model name")
	f.BoolVar(&askJSON, "json", false, "print the full run result as JSON")
	f.StringVar(&askFormat, "format", formatTable, "row format: table, csv or md")
	f.BoolVar(&askDescribe, "describe", false, "explain the result in plain language")
	f.BoolVar(&askTrail, "trail", false, "show every attempt and diagnosis")
	f.StringVar(&askFile, "file", "", "answer every question in this file (one per line)")
}
