// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
)

// DBExecutor executes SQL statements over database/sql. It serves MySQL
// (go-sql-driver/mysql) and SQLite (modernc.org/sqlite).
type DBExecutor struct {
	db      *sql.DB
	dialect string
	opts    Options
	log     *zap.Logger
}

// NewDBExecutor wraps an open *sql.DB.
func NewDBExecutor(db *sql.DB, dialect string, opts Options) *DBExecutor {
	return &DBExecutor{db: db, dialect: dialect, opts: opts, log: opts.logger().Named("sqlexec")}
}

// Dialect implements Executor.
func (e *DBExecutor) Dialect() string { return e.dialect }

// Ping implements Executor.
func (e *DBExecutor) Ping(ctx context.Context) error { return e.db.PingContext(ctx) }

// Close implements Executor.
func (e *DBExecutor) Close() { _ = e.db.Close() }

// Execute runs a statement on a dedicated connection taken from the pool for
// this call and returned to it before Execute returns.
func (e *DBExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	isWrite, err := checkStatement(query, e.opts.AllowWrites)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement rejected", err)
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "acquire connection", err)
	}
	defer conn.Close()

	e.log.Debug("execute", zap.Bool("write", isWrite), zap.String("sql", preview(query)))

	if isWrite {
		return e.execWrite(ctx, conn, query)
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "read columns", err)
	}
	types := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			types[i] = ct.DatabaseTypeName()
		}
	}

	res := &Result{Columns: cols, Rows: []Row{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "decode row", err)
		}
		res.Rows = append(res.Rows, normalizeRow(cols, types, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
	}

	e.log.Debug("execute done", zap.Int("rows", len(res.Rows)))
	return res, nil
}

func (e *DBExecutor) execWrite(ctx context.Context, conn *sql.Conn, query string) (*Result, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "begin transaction", err)
	}
	defer tx.Rollback() // no-op after commit

	r, err := tx.ExecContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "statement failed", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.SQLExecution, "commit failed", err)
	}
	affected, _ := r.RowsAffected()
	return &Result{Columns: []string{}, Rows: []Row{}, RowsAffected: affected}, nil
}
