// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeValue converts driver values into plain JSON-friendly Go values.
// dbType is the column's database type name when the driver reports one
// (e.g. "DECIMAL" from go-sql-driver/mysql); it may be empty.
func normalizeValue(val any, dbType string) any {
	switch v := val.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		return numericToFloat(v)
	case *pgtype.Numeric:
		if v == nil {
			return nil
		}
		return numericToFloat(*v)
	case *big.Float:
		f, _ := v.Float64()
		return f
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		return bytesValue(v, dbType)
	default:
		return v
	}
}

func numericToFloat(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

// bytesValue decodes text-protocol bytes according to the column type.
// Fixed-point and floating columns become float64, integer columns int64,
// 16-byte binary columns UUID strings, everything else a string.
func bytesValue(b []byte, dbType string) any {
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "YEAR":
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case "UNSIGNED INT", "UNSIGNED BIGINT", "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT":
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
	case "BINARY", "VARBINARY", "BLOB", "BYTEA":
		if len(b) == 16 {
			return uuid.UUID(b).String()
		}
		return fmt.Sprintf("\\x%x", b)
	}
	return s
}

// normalizeRow builds a Row from positional values.
func normalizeRow(cols []string, types []string, vals []any) Row {
	row := make(Row, len(cols))
	for i, col := range cols {
		dbType := ""
		if i < len(types) {
			dbType = types[i]
		}
		row[col] = normalizeValue(vals[i], dbType)
	}
	return row
}
