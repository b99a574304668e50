// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
)

// PoolExecutor executes SQL statements using a pgx connection pool.
type PoolExecutor struct {
	// Pool is the PostgreSQL connection pool
	Pool *pgxpool.Pool
	opts Options
	log  *zap.Logger
}

// NewPoolExecutor creates an Executor from an existing pgx pool.
func NewPoolExecutor(pool *pgxpool.Pool, opts Options) *PoolExecutor {
	return &PoolExecutor{Pool: pool, opts: opts, log: opts.logger().Named("sqlexec")}
}

// Dialect implements Executor.
func (e *PoolExecutor) Dialect() string { return "PostgreSQL" }

// Ping implements Executor.
func (e *PoolExecutor) Ping(ctx context.Context) error { return e.Pool.Ping(ctx) }

// Close implements Executor.
func (e *PoolExecutor) Close() { e.Pool.Close() }

// Execute runs a statement on a connection acquired for this call only.
// Read queries return columns and rows; allowed writes run in a transaction
// and report rows affected.
func (e *PoolExecutor) Execute(ctx context.Context, sql string) (*Result, error) {
	isWrite, err := checkStatement(sql, e.opts.AllowWrites)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement rejected", err)
	}

	conn, err := e.Pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "acquire connection", err)
	}
	defer conn.Release()

	if e.opts.SearchPath != "" {
		if _, err := conn.Exec(ctx, "SET search_path TO "+e.opts.SearchPath); err != nil {
			e.log.Debug("set search_path failed", zap.String("search_path", e.opts.SearchPath), zap.Error(err))
		}
	}

	e.log.Debug("execute", zap.Bool("write", isWrite), zap.String("sql", preview(sql)))

	if isWrite {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "begin transaction", err)
		}
		defer tx.Rollback(ctx) // Rollback if commit doesn't happen

		ct, err := tx.Exec(ctx, sql)
		if err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "commit failed", err)
		}
		return &Result{Columns: []string{}, Rows: []Row{}, RowsAffected: ct.RowsAffected()}, nil
	}

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	res := &Result{Columns: cols, Rows: []Row{}}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "decode row", err)
		}
		res.Rows = append(res.Rows, normalizeRow(cols, nil, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
	}

	e.log.Debug("execute done", zap.Int("rows", len(res.Rows)))
	return res, nil
}
