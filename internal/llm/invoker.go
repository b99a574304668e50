// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/workpool"
)

// DefaultMaxDelay is the backoff cap in units. Delays run 1, 2, 4, ... 32 and
// the call is abandoned once the next delay would reach 64.
const DefaultMaxDelay = 60

// Waiter pauses for d or until ctx ends.
type Waiter func(ctx context.Context, d time.Duration) error

// Invoker wraps a Completer with exponential backoff on rate-limit errors.
// Other errors are returned unchanged on first occurrence.
type Invoker struct {
	next     Completer
	pool     *workpool.Pool
	unit     time.Duration
	maxDelay int
	wait     Waiter
	log      *zap.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithUnit sets the length of one backoff step (default one second).
func WithUnit(d time.Duration) InvokerOption { return func(i *Invoker) { i.unit = d } }

// WithMaxDelay sets the cap, in units, beyond which the Invoker gives up.
func WithMaxDelay(n int) InvokerOption { return func(i *Invoker) { i.maxDelay = n } }

// WithWaiter replaces the timer-based wait.
func WithWaiter(w Waiter) InvokerOption { return func(i *Invoker) { i.wait = w } }

// WithPool runs each provider call on the pool.
func WithPool(p *workpool.Pool) InvokerOption { return func(i *Invoker) { i.pool = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) InvokerOption { return func(i *Invoker) { i.log = l } }

// NewInvoker wraps next.
func NewInvoker(next Completer, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		next:     next,
		unit:     time.Second,
		maxDelay: DefaultMaxDelay,
		wait:     sleep,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.log = inv.log.Named("invoker")
	return inv
}

// Complete implements Completer. The pool slot is held only while the
// provider call runs, never while waiting out a backoff.
func (inv *Invoker) Complete(ctx context.Context, req Request) (string, error) {
	delay := 1
	for {
		out, err := inv.call(ctx, req)
		if err == nil {
			return out, nil
		}
		if !IsRateLimited(err) || ctx.Err() != nil {
			return "", err
		}
		if delay > inv.maxDelay {
			inv.log.Error("retry exhausted",
				zap.Int("delay_units", delay),
				zap.Int("max_delay_units", inv.maxDelay),
				zap.Error(err))
			return "", errors.Wrap(errors.ProviderRateLimited, "rate limit backoff exhausted", err)
		}
		d := time.Duration(delay) * inv.unit
		inv.log.Warn("rate limited, backing off", zap.Duration("backoff", d), zap.Error(err))
		if err := inv.wait(ctx, d); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func (inv *Invoker) call(ctx context.Context, req Request) (string, error) {
	if inv.pool == nil {
		return inv.next.Complete(ctx, req)
	}
	return workpool.Submit(inv.pool, ctx, func(ctx context.Context) (string, error) {
		return inv.next.Complete(ctx, req)
	}).Await(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Completer = (*Invoker)(nil)
