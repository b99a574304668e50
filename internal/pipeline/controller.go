// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pipeline drives one question through generation, execution and
// self-correction. A run ends on the first successful attempt, on a
// non-fixable diagnosis, or once MaxRetry corrections have been spent.
//
// State machine:
//
//	GENERATE -> EXECUTE -> SUCCESS
//	                    -> EMPTY | EXEC_ERROR | PROVIDER_ERROR -> DIAGNOSE
//	DIAGNOSE -> NON_FIXABLE
//	         -> RETRY_EXHAUSTED (budget spent)
//	         -> REGENERATE -> EXECUTE
//
// Anything else (cancellation, a failed diagnosis, a panic) ends the run as
// FATAL with the attempts recorded so far. Run never returns an error.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/agent"
	"sqlpilot/cli/internal/progress"
	"sqlpilot/cli/internal/schema"
	"sqlpilot/cli/internal/sqlexec"
	"sqlpilot/cli/internal/workpool"
)

// Generator writes the first query.
type Generator interface {
	Generate(ctx context.Context, question, schemaContext, dialect string) (agent.Response, error)
}

// Reasoner diagnoses a failed attempt.
type Reasoner interface {
	Diagnose(ctx context.Context, errorMessage, offendingSQL, schemaContext string) (agent.Reasoning, error)
}

// Fixer rewrites a query from a diagnosis.
type Fixer interface {
	Fix(ctx context.Context, instruction string) (agent.Response, error)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Generator Generator
	Reasoner  Reasoner
	Fixer     Fixer
	Executor  sqlexec.Executor
	Schema    schema.Context
	// Pool bounds concurrent statement execution; nil runs inline.
	Pool   *workpool.Pool
	Logger *zap.Logger
	// Events, when set, receives every state transition.
	Events progress.Sink
}

// Controller runs questions. It holds no per-run state and is safe for
// concurrent use.
type Controller struct {
	deps     Deps
	maxRetry int
	log      *zap.Logger
}

// NewController creates a controller allowing maxRetry corrections per run,
// that is at most maxRetry+1 attempts.
func NewController(deps Deps, maxRetry int) *Controller {
	if maxRetry < 0 {
		maxRetry = 0
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{deps: deps, maxRetry: maxRetry, log: log.Named("pipeline")}
}

// MaxRetry returns the correction budget.
func (c *Controller) MaxRetry() int { return c.maxRetry }

// run holds the state of a single Run call.
type run struct {
	c      *Controller
	req    Request
	res    *RunResult
	log    *zap.Logger
	schema string
}

// Run answers req. It always returns a finalized result.
func (c *Controller) Run(ctx context.Context, req Request) (res RunResult) {
	start := time.Now()
	res = RunResult{
		RunID:     uuid.NewString(),
		Question:  req.Question,
		Dialect:   req.Dialect,
		Attempts:  []Attempt{},
		Diagnoses: []Diagnosis{},
	}
	r := &run{
		c:      c,
		req:    req,
		res:    &res,
		log:    c.log.With(zap.String("run_id", res.RunID)),
		schema: c.deps.Schema.String(),
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("run panicked", zap.Any("panic", p), zap.Stack("stack"))
			r.finish(StatusFatal, fmt.Sprintf("internal error: %v", p))
		}
		res.Duration = time.Since(start)
		r.log.Info("run finished",
			zap.String("status", string(res.Status)),
			zap.Int("attempts", len(res.Attempts)),
			zap.Duration("duration", res.Duration))
	}()

	r.loop(ctx)
	return res
}

func (r *run) loop(ctx context.Context) {
	r.transition(0, progress.StageGenerate, "")
	resp, err := r.c.deps.Generator.Generate(ctx, r.req.Question, r.schema, r.req.Dialect)

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			r.finish(StatusFatal, "canceled: "+ctx.Err().Error())
			return
		}

		att := Attempt{Index: i}
		if err != nil {
			att.Outcome = OutcomeProviderError
			att.Error = err.Error()
			r.log.Warn("provider call failed", zap.Int("attempt", i), zap.Error(err))
		} else {
			att.Raw = resp.Raw
			att.SQL = agent.ExtractSQL(resp.Raw)
			r.transition(i, progress.StageExecute, "")

			result, execErr := r.execute(ctx, att.SQL)
			switch {
			case execErr != nil && ctx.Err() != nil:
				r.finish(StatusFatal, "canceled: "+ctx.Err().Error())
				return
			case execErr != nil:
				att.Outcome = OutcomeExecError
				att.Error = execErr.Error()
			case result.Empty():
				att.Outcome = OutcomeEmpty
				att.Error = "query returned an empty result set"
			default:
				att.Outcome = OutcomeSuccess
				r.appendAttempt(att)
				r.res.Columns = result.Columns
				r.res.Rows = result.Rows
				if r.res.Rows == nil {
					r.res.Rows = []sqlexec.Row{}
				}
				r.finish(StatusSuccess, "")
				return
			}
		}
		r.appendAttempt(att)

		r.transition(i, progress.StageDiagnose, att.Outcome)
		reasoning, derr := r.c.deps.Reasoner.Diagnose(ctx, att.Error, att.SQL, r.schema)
		if derr != nil {
			r.log.Error("diagnosis failed", zap.Int("attempt", i), zap.Error(derr))
			r.finish(StatusFatal, "diagnosis failed: "+derr.Error())
			return
		}
		d := Diagnosis{AttemptIndex: i, Reasoning: string(reasoning), Fixable: !reasoning.NonFixable()}
		r.res.Diagnoses = append(r.res.Diagnoses, d)

		if !d.Fixable {
			r.finish(StatusNonFixable, "")
			return
		}
		if i >= r.c.maxRetry {
			r.finish(StatusRetryExhausted, "")
			return
		}

		r.transition(i+1, progress.StageRegenerate, "")
		instruction := agent.FixInstruction{
			Reasoning: d.Reasoning,
			Question:  r.req.Question,
			Dialect:   r.req.Dialect,
			Schema:    r.schema,
			SQL:       att.SQL,
			Error:     att.Error,
		}
		resp, err = r.c.deps.Fixer.Fix(ctx, instruction.String())
	}
}

// execute runs sql on the pool so concurrent runs share its bound.
func (r *run) execute(ctx context.Context, sql string) (*sqlexec.Result, error) {
	exec := r.c.deps.Executor
	if r.c.deps.Pool == nil {
		return exec.Execute(ctx, sql)
	}
	return workpool.Submit(r.c.deps.Pool, ctx, func(ctx context.Context) (*sqlexec.Result, error) {
		return exec.Execute(ctx, sql)
	}).Await(ctx)
}

func (r *run) appendAttempt(att Attempt) {
	r.res.Attempts = append(r.res.Attempts, att)
	r.transition(att.Index, progress.StageExecuted, att.Outcome)
}

func (r *run) transition(attempt int, stage progress.Stage, outcome Outcome) {
	fields := []zap.Field{zap.Int("attempt", attempt), zap.String("state", string(stage))}
	if outcome != "" {
		fields = append(fields, zap.String("outcome", string(outcome)))
	}
	r.log.Debug("transition", fields...)
	r.emit(progress.Event{Attempt: attempt, Stage: stage, Outcome: string(outcome)})
}

func (r *run) emit(ev progress.Event) {
	ev.RunID = r.res.RunID
	ev.Question = r.req.Question
	r.c.deps.Events.Emit(ev)
}

// finish sets the terminal status. Only the first call has effect.
func (r *run) finish(status Status, detail string) {
	if r.res.Status != "" {
		return
	}
	r.res.Status = status
	r.res.Error = detail
	if status != StatusSuccess {
		r.res.Rows = nil
		r.res.Columns = nil
	}
	attempt := max(len(r.res.Attempts)-1, 0)
	r.log.Debug("transition", zap.Int("attempt", attempt), zap.String("state", string(status)))
	r.emit(progress.Event{
		Attempt:  attempt,
		Stage:    progress.Stage(status),
		Terminal: true,
		Success:  status == StatusSuccess,
	})
}
