// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"fmt"
	"strings"
)

// NonFixableSentinel marks a diagnosis of a question that cannot be answered
// with SQL. The match is exact and case-sensitive.
const NonFixableSentinel = "NOT ASKING FOR SQL"

func generatePrompt(question, schema, dialect string) string {
	return fmt.Sprintf(`You are an expert %[1]s developer. Write one %[1]s query that answers the user's question using only the tables and columns below.

%[2]s

Question: %[3]s

Rules:
- Return exactly one statement inside a fenced code block marked sql.
- Use only tables and columns that exist in the schema.
- Do not add explanations.`, dialect, schema, question)
}

func diagnosePrompt(errorMessage, sql, schema string) string {
	return fmt.Sprintf(`You are a SQL reviewer. A generated query failed.

Schema:
%s

Query:
%s

Error:
%s

Explain in a few sentences why the query failed and what must change to fix it, referring to concrete tables and columns.
If the original request is not a question about this data (small talk, weather, general knowledge), reply with exactly %q and nothing else.`,
		schema, sql, errorMessage, NonFixableSentinel)
}

// FixInstruction is everything the fixer needs to produce a corrected query.
type FixInstruction struct {
	Reasoning string
	Question  string
	Dialect   string
	Schema    string
	SQL       string
	Error     string
}

// String renders the instruction as the fixer's task text.
func (f FixInstruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnosis:\n%s\n\n", strings.TrimSpace(f.Reasoning))
	fmt.Fprintf(&b, "Question: %s\nDialect: %s\n\n", f.Question, f.Dialect)
	fmt.Fprintf(&b, "Schema:\n%s\n\n", f.Schema)
	if f.SQL != "" {
		fmt.Fprintf(&b, "Previous query:\n%s\n\n", f.SQL)
	}
	if f.Error != "" {
		fmt.Fprintf(&b, "Previous error:\n%s\n", f.Error)
	}
	return b.String()
}

func fixPrompt(instruction string) string {
	return fmt.Sprintf(`You fix SQL queries. Follow the diagnosis below.

%s
Think step by step about what the diagnosis requires, then give the corrected query.
End your answer with the final statement in a fenced code block marked sql.`, instruction)
}
