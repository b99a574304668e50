// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reLineComment  = regexp.MustCompile(`--[^\n]*`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reStringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)
	reFirstWord    = regexp.MustCompile(`^\s*\(*\s*([A-Za-z]+)`)
	reWriteWord    = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|UPSERT|REPLACE|CREATE|ALTER|DROP|TRUNCATE|GRANT|REVOKE)\b`)
)

// readVerbs start statements that never modify data.
var readVerbs = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "DESCRIBE": true, "DESC": true,
	"EXPLAIN": true, "VALUES": true, "TABLE": true, "PRAGMA": true,
}

// stripNoise removes comments and string literals so keywords inside them
// do not affect classification.
func stripNoise(sql string) string {
	out := reBlockComment.ReplaceAllString(sql, " ")
	out = reLineComment.ReplaceAllString(out, " ")
	out = reStringLit.ReplaceAllString(out, "''")
	return strings.TrimSpace(out)
}

// isWriteStatement reports whether sql modifies data or schema.
// A WITH query counts as a write when any of its parts does.
func isWriteStatement(sql string) bool {
	clean := stripNoise(sql)
	m := reFirstWord.FindStringSubmatch(clean)
	if m == nil {
		return false
	}
	verb := strings.ToUpper(m[1])
	if !readVerbs[verb] {
		return true
	}
	if verb == "WITH" || verb == "EXPLAIN" {
		return reWriteWord.MatchString(clean)
	}
	return false
}

// checkStatement validates a statement before it reaches the store.
// It returns whether the statement writes, or an error when it must not run.
func checkStatement(sql string, allowWrites bool) (bool, error) {
	clean := stripNoise(sql)
	if clean == "" || clean == ";" {
		return false, fmt.Errorf("empty SQL statement")
	}
	body := strings.TrimRight(clean, "; \t\r\n")
	if strings.Contains(body, ";") {
		return false, fmt.Errorf("multiple SQL statements are not allowed; send a single statement")
	}
	write := isWriteStatement(sql)
	if write && !allowWrites {
		return true, fmt.Errorf("statement modifies data or schema and writes are disabled; generate a read-only SELECT")
	}
	return write, nil
}
