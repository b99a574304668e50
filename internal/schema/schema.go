// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema supplies the dataset schema context handed to every agent
// prompt. The context is loaded once per process and then shared read-only
// by all pipeline runs.
package schema

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Context is a text description of the tables and columns the model may query.
type Context string

// String returns the raw text.
func (c Context) String() string { return string(c) }

// Provider returns the schema context.
type Provider interface {
	Load(ctx context.Context) (Context, error)
}

// Describer is satisfied by sqlexec.SchemaInspector.
type Describer interface {
	Describe(ctx context.Context) (string, error)
}

// Static serves a fixed context.
type Static Context

// Load implements Provider.
func (s Static) Load(context.Context) (Context, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", fmt.Errorf("schema context is empty")
	}
	return Context(s), nil
}

// File reads the context from a text file, e.g. a hand-written table summary.
type File string

// Load implements Provider.
func (f File) Load(context.Context) (Context, error) {
	b, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read schema file: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("schema file %s is empty", string(f))
	}
	return Context(text), nil
}

// Introspect reads the context from the connected database's catalog.
func Introspect(d Describer) Provider { return introspect{d} }

type introspect struct{ d Describer }

func (i introspect) Load(ctx context.Context) (Context, error) {
	text, err := i.d.Describe(ctx)
	if err != nil {
		return "", fmt.Errorf("introspect schema: %w", err)
	}
	return Context(text), nil
}

// Once wraps a provider so the underlying load runs at most once. Later
// calls return the first result, including its error.
type Once struct {
	p    Provider
	once sync.Once
	ctx  Context
	err  error
}

// NewOnce wraps p.
func NewOnce(p Provider) *Once { return &Once{p: p} }

// Load implements Provider.
func (o *Once) Load(ctx context.Context) (Context, error) {
	o.once.Do(func() {
		o.ctx, o.err = o.p.Load(ctx)
	})
	return o.ctx, o.err
}
