// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package insights produces prose around the data: business questions worth
// asking about a schema, and a plain-language reading of a result set.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/agent"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/sqlexec"
)

// maxDescribedRows caps how many rows are sent to the model for description.
const maxDescribedRows = 50

var numberedBold = regexp.MustCompile(`^\d+\.\s\*\*(.*?)\*\*$`)

// Suggester proposes business questions for a schema.
type Suggester struct {
	llm llm.Completer
	cfg agent.Config
	log *zap.Logger
}

// NewSuggester creates a Suggester.
func NewSuggester(c llm.Completer, cfg agent.Config, log *zap.Logger) *Suggester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suggester{llm: c, cfg: cfg, log: log.Named("insights")}
}

// Suggest asks the model for business questions about schema.
func (s *Suggester) Suggest(ctx context.Context, schema string) ([]string, error) {
	prompt := fmt.Sprintf(`You are an expert data scientist. Generate business questions from these tables:

%s

Answer as a numbered list, one question per line, each written as "1. **question**".`, schema)

	out, err := s.llm.Complete(ctx, llm.UserPrompt(s.cfg.Model, prompt, s.cfg.Temperature, maxTokens(s.cfg, 512)))
	if err != nil {
		return nil, err
	}
	s.log.Debug("suggest raw response", zap.String("raw", out))

	questions, err := ParseQuestions(out)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// ParseQuestions reads a model reply. A JSON object with a "questions" key
// (string or list) is accepted; otherwise numbered "N. **question**" lines
// are extracted from the text.
func ParseQuestions(raw string) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err == nil {
		field, ok := doc["questions"]
		if !ok {
			return nil, fmt.Errorf("unexpected response format: missing 'questions' key")
		}
		var list []string
		if err := json.Unmarshal(field, &list); err == nil {
			return cleanList(list), nil
		}
		var text string
		if err := json.Unmarshal(field, &text); err != nil {
			return nil, fmt.Errorf("unexpected 'questions' value: %w", err)
		}
		return extractNumbered(text), nil
	}
	return extractNumbered(raw), nil
}

func extractNumbered(text string) []string {
	questions := []string{}
	for _, line := range strings.Split(text, "\n") {
		if m := numberedBold.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			questions = append(questions, m[1])
		}
	}
	return questions
}

func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, q := range list {
		q = strings.TrimSpace(q)
		if m := numberedBold.FindStringSubmatch(q); m != nil {
			q = m[1]
		}
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Describer explains a result set in plain language.
type Describer struct {
	llm llm.Completer
	cfg agent.Config
}

// NewDescriber creates a Describer.
func NewDescriber(c llm.Completer, cfg agent.Config) *Describer {
	return &Describer{llm: c, cfg: cfg}
}

// Describe analyses rows as the answer to question.
func (d *Describer) Describe(ctx context.Context, question string, rows []sqlexec.Row) (string, error) {
	if len(rows) > maxDescribedRows {
		rows = rows[:maxDescribedRows]
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	prompt := fmt.Sprintf(`You are an expert data scientist. Analyse this data: %s
It answers this question from the user: %s
Please explain as a data scientist in detail.`, data, question)

	out, err := d.llm.Complete(ctx, llm.UserPrompt(d.cfg.Model, prompt, d.cfg.Temperature, maxTokens(d.cfg, 1024)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// maxTokens raises the configured limit to floor for long-form answers.
func maxTokens(cfg agent.Config, floor int) int {
	if cfg.MaxTokens > floor {
		return cfg.MaxTokens
	}
	return floor
}
