// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/agent"
	"sqlpilot/cli/internal/dsn"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/httperrors"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/pipeline"
	"sqlpilot/cli/internal/progress"
	"sqlpilot/cli/internal/schema"
	"sqlpilot/cli/internal/sqlexec"
	"sqlpilot/cli/internal/workpool"
)

// session wires the components one command needs. Close releases them.
type session struct {
	exec    sqlexec.Executor
	dialect string
	pool    *workpool.Pool
	schema  schema.Provider
	llm     llm.Completer
	agents  agent.Config
	log     *zap.Logger
}

// openDatabase resolves the DSN and connects.
func openDatabase(ctx context.Context) (sqlexec.Executor, *dsn.Target, error) {
	sec, err := resolveDSN()
	if err != nil {
		return nil, nil, err
	}
	target, err := dsn.Resolve(sec.Value)
	if err != nil {
		return nil, nil, errors.Wrap(errors.DSNInvalid, "invalid DSN from "+sec.Source, err)
	}
	logger.Debug("database target", zap.String("type", string(target.Type)), zap.String("source", sec.Source))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exec, err := sqlexec.Open(pingCtx, target, sqlexec.Options{
		AllowWrites: appCfg.AllowWrites,
		MaxConns:    appCfg.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, httperrors.Describe(err, "the database", "connecting")
	}
	return exec, target, nil
}

// newSession connects to the database and, when withLLM is set, builds the
// rate-limited provider client.
func newSession(ctx context.Context, withLLM bool) (*session, error) {
	exec, _, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{
		exec:    exec,
		dialect: exec.Dialect(),
		pool:    workpool.New(appCfg.Concurrency),
		log:     logger,
		agents: agent.Config{
			Model:       appCfg.LLM.Model,
			Temperature: appCfg.LLM.Temperature,
			MaxTokens:   appCfg.LLM.MaxTokens,
		},
	}
	if appCfg.Dialect != "" {
		s.dialect = appCfg.Dialect
	}

	var src schema.Provider
	if appCfg.SchemaFile != "" {
		src = schema.File(appCfg.SchemaFile)
	} else {
		src = schema.Introspect(sqlexec.NewSchemaInspector(exec))
	}
	s.schema = schema.NewOnce(src)

	if withLLM {
		key, err := resolveLLMKey(appCfg.LLM.Provider)
		if err != nil {
			exec.Close()
			return nil, err
		}
		client, err := llm.NewCompleter(appCfg.LLM, key.Value)
		if err != nil {
			exec.Close()
			return nil, errors.Wrap(errors.ConfigInvalid, "llm provider", err)
		}
		s.llm = llm.NewInvoker(client,
			llm.WithPool(s.pool),
			llm.WithUnit(appCfg.Backoff.Unit),
			llm.WithMaxDelay(appCfg.Backoff.MaxDelay),
			llm.WithLogger(logger),
		)
	}
	return s, nil
}

// controller builds a pipeline controller over the loaded schema. events may be nil.
func (s *session) controller(ctx context.Context, maxRetry int, events progress.Sink) (*pipeline.Controller, error) {
	text, err := s.schema.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewController(pipeline.Deps{
		Generator: agent.NewGenerator(s.llm, s.agents),
		Reasoner:  agent.NewReasoner(s.llm, s.agents),
		Fixer:     agent.NewFixer(s.llm, s.agents),
		Executor:  s.exec,
		Schema:    text,
		Pool:      s.pool,
		Logger:    s.log,
		Events:    events,
	}, maxRetry), nil
}

func (s *session) Close() {
	if s.exec != nil {
		s.exec.Close()
	}
}

// describeLLMError adds troubleshooting hints for provider network failures.
func describeLLMError(err error, context string) error {
	host := httperrors.ExtractHostFromURL(llm.Endpoint(appCfg.LLM))
	return httperrors.Describe(err, "the LLM provider ("+host+")", context)
}
