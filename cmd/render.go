// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sqlpilot/cli/internal/logging"
	"sqlpilot/cli/internal/pipeline"
	"sqlpilot/cli/internal/sqlexec"
)

// Output formats for result sets.
const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "md"
)

// renderRows writes rows in the given format.
func renderRows(w io.Writer, cols []string, rows []sqlexec.Row, format string) error {
	if len(rows) == 0 && format != formatCSV {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// keep column names as the database spells them
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	switch format {
	case formatCSV:
		t.RenderCSV()
	case formatMarkdown, "markdown":
		t.RenderMarkdown()
	case formatTable, "":
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	default:
		return fmt.Errorf("unknown format %q (want table, csv or md)", format)
	}
	return nil
}

// renderJSON writes v as indented JSON.
func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderTrail writes the attempt history of a run.
func renderTrail(w io.Writer, res pipeline.RunResult) {
	diagnoses := make(map[int]pipeline.Diagnosis, len(res.Diagnoses))
	for _, d := range res.Diagnoses {
		diagnoses[d.AttemptIndex] = d
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "outcome", "sql", "error", "diagnosis"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, WidthMax: 40},
		{Number: 5, WidthMax: 50},
	})
	for _, a := range res.Attempts {
		diag := ""
		if d, ok := diagnoses[a.Index]; ok {
			diag = d.Reasoning
		}
		t.AppendRow(table.Row{a.Index + 1, a.Outcome, a.SQL, logging.Mask(a.Error), logging.Mask(diag)})
	}
	t.Render()
}
