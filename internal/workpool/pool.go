// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package workpool bounds how many blocking calls (LLM requests, database
// statements) run at once across all pipeline runs in the process.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool admits at most Size concurrent tasks.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool with size slots. Sizes below 1 are treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	val   T
	err   error
	panic any
}

// Submit schedules fn on the pool and returns immediately. The task waits for
// a free slot, holds it while fn runs and releases it when fn returns.
// If ctx ends before a slot frees up, fn never runs and the future resolves
// with ctx's error.
func Submit[T any](p *Pool, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				f.panic = r
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the task finishes or ctx ends. A panic inside the task
// is re-raised in the awaiting goroutine so the caller's recovery sees it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		if f.panic != nil {
			panic(fmt.Sprintf("workpool task panicked: %v", f.panic))
		}
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the task has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }
