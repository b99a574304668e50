// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "fmt"

// DBType represents the type of database
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeMySQL      DBType = "mysql"
	DBTypeSQLite     DBType = "sqlite"
	DBTypeUnknown    DBType = "unknown"
)

// Dialect returns the SQL dialect name handed to the generation prompt.
func (t DBType) Dialect() string {
	switch t {
	case DBTypePostgreSQL:
		return "PostgreSQL"
	case DBTypeMySQL:
		return "MySQL"
	case DBTypeSQLite:
		return "SQLite"
	default:
		return "SQL"
	}
}

// DSNInfo contains parsed information from a DSN string
type DSNInfo struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	// Database is the database name, or the file path for SQLite.
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN as the user supplied it
func (d *DSNInfo) String() string {
	return d.Original
}

// Target is a fully resolved connection: which driver to open and with what string.
type Target struct {
	Type DBType
	// DriverDSN is the string passed to the driver (pgxpool.New or sql.Open).
	DriverDSN string
	Dialect   string
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*DSNInfo, error)

	// Normalize converts DSN info to the connection string its driver expects
	Normalize(info *DSNInfo) (string, error)

	// Validate checks if the DSN is valid for the database type
	Validate(dsn string) error
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
