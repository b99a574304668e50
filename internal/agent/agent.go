// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package agent holds the three LLM roles of the pipeline: the generator
// writes the first query, the reasoner diagnoses a failure, and the fixer
// rewrites the query from that diagnosis. Each role is a single completion
// call through an injected llm.Completer.
package agent

import (
	"context"
	"strings"

	"sqlpilot/cli/internal/llm"
)

// Config holds the completion parameters shared by all roles.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns temperature 0.1 and 256 max tokens.
func DefaultConfig() Config {
	return Config{Temperature: 0.1, MaxTokens: 256}
}

func (c Config) request(prompt string) llm.Request {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultConfig().MaxTokens
	}
	return llm.UserPrompt(c.Model, prompt, c.Temperature, maxTokens)
}

// Response is the raw text of a model reply; run it through ExtractSQL.
type Response struct {
	Raw string
}

// Generator writes the initial query for a question.
type Generator struct {
	llm llm.Completer
	cfg Config
}

// NewGenerator creates a Generator.
func NewGenerator(c llm.Completer, cfg Config) *Generator {
	return &Generator{llm: c, cfg: cfg}
}

// Generate asks the model for a query answering question.
func (g *Generator) Generate(ctx context.Context, question, schema, dialect string) (Response, error) {
	out, err := g.llm.Complete(ctx, g.cfg.request(generatePrompt(question, schema, dialect)))
	if err != nil {
		return Response{}, err
	}
	return Response{Raw: out}, nil
}

// Reasoning is a diagnosis of a failed attempt.
type Reasoning string

// NonFixable reports whether the diagnosis carries NonFixableSentinel.
func (r Reasoning) NonFixable() bool {
	return strings.Contains(string(r), NonFixableSentinel)
}

// Reasoner diagnoses why an attempt failed.
type Reasoner struct {
	llm llm.Completer
	cfg Config
}

// NewReasoner creates a Reasoner.
func NewReasoner(c llm.Completer, cfg Config) *Reasoner {
	return &Reasoner{llm: c, cfg: cfg}
}

// Diagnose explains errorMessage for offendingSQL against schema.
func (r *Reasoner) Diagnose(ctx context.Context, errorMessage, offendingSQL, schema string) (Reasoning, error) {
	out, err := r.llm.Complete(ctx, r.cfg.request(diagnosePrompt(errorMessage, offendingSQL, schema)))
	if err != nil {
		return "", err
	}
	return Reasoning(strings.TrimSpace(out)), nil
}

// Fixer rewrites a query from a diagnosis. The model reasons step by step
// before the final fenced statement; callers only see the raw reply.
type Fixer struct {
	llm llm.Completer
	cfg Config
}

// NewFixer creates a Fixer.
func NewFixer(c llm.Completer, cfg Config) *Fixer {
	return &Fixer{llm: c, cfg: cfg}
}

// Fix produces a corrected query following instruction.
func (f *Fixer) Fix(ctx context.Context, instruction string) (Response, error) {
	out, err := f.llm.Complete(ctx, f.cfg.request(fixPrompt(instruction)))
	if err != nil {
		return Response{}, err
	}
	return Response{Raw: out}, nil
}
