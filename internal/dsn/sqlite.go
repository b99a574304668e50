// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// SQLiteResolver handles file-backed SQLite databases opened through modernc.org/sqlite.
// Accepted forms: sqlite:///abs/path.db, sqlite://rel/path.db, sqlite:path.db,
// file:path.db?mode=ro, a bare *.db path, or :memory:.
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Parse extracts the database path and query parameters.
func (r *SQLiteResolver) Parse(dsn string) (*DSNInfo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a path like sqlite:///data/app.db")
	}

	rest := dsn
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		rest = dsn[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		rest = dsn[len("sqlite:"):]
	case strings.HasPrefix(lower, "file:"):
		rest = dsn[len("file:"):]
	}

	path, paramStr, _ := strings.Cut(rest, "?")
	info := &DSNInfo{
		Type:     DBTypeSQLite,
		Database: path,
		Params:   make(map[string]string),
		Original: dsn,
	}
	for _, param := range strings.Split(paramStr, "&") {
		if k, v, ok := strings.Cut(param, "="); ok {
			info.Params[k] = v
		}
	}
	if strings.TrimSpace(info.Database) == "" {
		return nil, NewParseError(dsn, "missing database path", "provide a path like sqlite:///data/app.db")
	}
	return info, nil
}

// Normalize renders the file: URI the modernc driver understands.
func (r *SQLiteResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil DSN info", "")
	}
	if info.Database == ":memory:" {
		return ":memory:", nil
	}
	out := "file:" + info.Database
	if params := encodeParams(info.Params); params != "" {
		out += "?" + params
	}
	return out, nil
}

// Validate checks that a path is present
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}
