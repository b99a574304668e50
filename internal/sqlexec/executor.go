// Package sqlexec runs generated SQL against a relational store.
// Every call acquires a scoped connection and releases it on every exit path,
// so no connection outlives a single attempt. Rows come back as ordered
// column-name to value mappings with fixed-point numbers converted to float64.
//
// Key features include:
//   - PostgreSQL over a pgx connection pool (PoolExecutor)
//   - MySQL and SQLite over database/sql (DBExecutor)
//   - A statement guard that rejects writes unless explicitly allowed
//   - Transaction management for allowed write operations
//   - Schema introspection to build the schema context for prompts
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/dsn"
	"sqlpilot/cli/internal/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         []Row    `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// Empty reports whether the statement produced nothing: no rows and no affected rows.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Rows) == 0 && r.RowsAffected == 0)
}

// Executor runs one SQL statement per call inside a scoped connection.
type Executor interface {
	Execute(ctx context.Context, sql string) (*Result, error)
	// Dialect is the SQL dialect name handed to the generation prompt.
	Dialect() string
	Ping(ctx context.Context) error
	Close()
}

// Options configures executors.
type Options struct {
	// AllowWrites lets INSERT/UPDATE/DELETE/DDL through, each in its own transaction.
	AllowWrites bool
	// MaxConns bounds the underlying pool; zero keeps the driver default.
	MaxConns int
	// SearchPath is applied per connection on PostgreSQL when set.
	SearchPath string
	Logger     *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Open connects to the store described by target and verifies it with a ping.
func Open(ctx context.Context, target *dsn.Target, opts Options) (Executor, error) {
	var exec Executor
	switch target.Type {
	case dsn.DBTypePostgreSQL:
		cfg, err := pgxpool.ParseConfig(target.DriverDSN)
		if err != nil {
			return nil, errors.Wrap(errors.DSNInvalid, "parse postgres DSN", err)
		}
		if opts.MaxConns > 0 {
			cfg.MaxConns = int32(opts.MaxConns)
		}
		cfg.MaxConnIdleTime = 5 * time.Minute
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(errors.SQLExecution, "create postgres pool", err)
		}
		exec = NewPoolExecutor(pool, opts)
	case dsn.DBTypeMySQL, dsn.DBTypeSQLite:
		driver := "mysql"
		if target.Type == dsn.DBTypeSQLite {
			driver = "sqlite"
		}
		db, err := sql.Open(driver, target.DriverDSN)
		if err != nil {
			return nil, errors.Wrap(errors.DSNInvalid, "open "+driver, err)
		}
		if opts.MaxConns > 0 {
			db.SetMaxOpenConns(opts.MaxConns)
		}
		exec = NewDBExecutor(db, target.Dialect, opts)
	default:
		return nil, errors.New(errors.DSNInvalid, fmt.Sprintf("unsupported database type %q", target.Type))
	}

	if err := exec.Ping(ctx); err != nil {
		exec.Close()
		return nil, errors.Wrap(errors.SQLExecution, "database unreachable", err)
	}
	return exec, nil
}

// preview shortens a statement for debug logs.
func preview(sql string) string {
	if len(sql) <= 200 {
		return sql
	}
	return sql[:200] + "..."
}
