// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ColumnInfo describes one column as shown to the generation prompt.
type ColumnInfo struct {
	Name       string
	Type       string
	PrimaryKey bool
	// EnumValues lists allowed values extracted from check constraints or ENUM types.
	EnumValues []string
}

// TableInfo holds the columns of one table in catalog order.
type TableInfo struct {
	Schema  string
	Name    string
	Columns []ColumnInfo
}

// QualifiedName returns schema.table unless the schema is the default one.
func (t *TableInfo) QualifiedName() string {
	if t.Schema == "" || t.Schema == "public" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// SchemaInspector builds the schema context by querying the store's catalog.
// It caches the result; the catalog is read once and then shared read-only.
type SchemaInspector struct {
	exec Executor
	// cache stores table metadata keyed by qualified name
	cache map[string]*TableInfo
	order []string
	mu    sync.RWMutex
}

// NewSchemaInspector creates a new SchemaInspector over the given executor.
func NewSchemaInspector(exec Executor) *SchemaInspector {
	return &SchemaInspector{exec: exec, cache: make(map[string]*TableInfo)}
}

const pgColumnsQuery = `
SELECT c.table_schema AS table_schema, c.table_name AS table_name, c.column_name AS column_name,
       c.data_type AS data_type, (pk.column_name IS NOT NULL) AS is_pk
FROM information_schema.columns c
LEFT JOIN (
    SELECT kc.table_schema, kc.table_name, kc.column_name
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kc
      ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
    WHERE tc.constraint_type = 'PRIMARY KEY'
) pk ON pk.table_schema = c.table_schema AND pk.table_name = c.table_name AND pk.column_name = c.column_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

const pgChecksQuery = `
SELECT ccu.table_schema AS table_schema, ccu.table_name AS table_name,
       ccu.column_name AS column_name, cc.check_clause AS check_clause
FROM information_schema.check_constraints cc
JOIN information_schema.constraint_column_usage ccu
  ON cc.constraint_name = ccu.constraint_name AND cc.constraint_schema = ccu.constraint_schema
WHERE ccu.table_schema NOT IN ('pg_catalog', 'information_schema')`

const mysqlColumnsQuery = `
SELECT table_schema AS table_schema, table_name AS table_name, column_name AS column_name,
       column_type AS data_type, (column_key = 'PRI') AS is_pk
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position`

const sqliteColumnsQuery = `
SELECT '' AS table_schema, m.name AS table_name, p.name AS column_name,
       p.type AS data_type, p.pk AS is_pk
FROM sqlite_master m JOIN pragma_table_info(m.name) p
WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid`

var (
	reInList  = regexp.MustCompile(`(?i)IN\s*\(\s*([^)]+)\)`)
	reAnyList = regexp.MustCompile(`(?i)=\s*ANY\s*\(\s*\(?\s*ARRAY\s*\[([^\]]+)\]`)
	reEnum    = regexp.MustCompile(`(?i)^enum\((.*)\)$`)
)

// Tables returns table metadata, querying the catalog on first use.
func (si *SchemaInspector) Tables(ctx context.Context) ([]*TableInfo, error) {
	si.mu.RLock()
	if len(si.order) > 0 {
		out := si.snapshot()
		si.mu.RUnlock()
		return out, nil
	}
	si.mu.RUnlock()

	var columnsQuery string
	switch si.exec.Dialect() {
	case "PostgreSQL":
		columnsQuery = pgColumnsQuery
	case "MySQL":
		columnsQuery = mysqlColumnsQuery
	case "SQLite":
		columnsQuery = sqliteColumnsQuery
	default:
		return nil, fmt.Errorf("schema introspection not supported for %s", si.exec.Dialect())
	}

	res, err := si.exec.Execute(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}

	cache := make(map[string]*TableInfo)
	var order []string
	for _, row := range res.Rows {
		t := &TableInfo{Schema: str(row["table_schema"]), Name: str(row["table_name"])}
		key := t.QualifiedName()
		if existing, ok := cache[key]; ok {
			t = existing
		} else {
			cache[key] = t
			order = append(order, key)
		}
		col := ColumnInfo{
			Name:       str(row["column_name"]),
			Type:       str(row["data_type"]),
			PrimaryKey: truthy(row["is_pk"]),
		}
		if m := reEnum.FindStringSubmatch(col.Type); m != nil {
			col.EnumValues = parseEnumValueList(m[1])
			col.Type = "enum"
		}
		t.Columns = append(t.Columns, col)
	}

	if si.exec.Dialect() == "PostgreSQL" {
		// Non-fatal: continue without check constraints
		if checks, err := si.exec.Execute(ctx, pgChecksQuery); err == nil {
			applyCheckConstraints(cache, checks.Rows)
		}
	}

	si.mu.Lock()
	si.cache = cache
	si.order = order
	out := si.snapshot()
	si.mu.Unlock()
	return out, nil
}

// Describe renders the schema context text handed to every agent prompt.
func (si *SchemaInspector) Describe(ctx context.Context) (string, error) {
	tables, err := si.Tables(ctx)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables found in the connected %s database", si.exec.Dialect())
	}
	return RenderSchema(si.exec.Dialect(), tables), nil
}

// snapshot must be called with si.mu held.
func (si *SchemaInspector) snapshot() []*TableInfo {
	out := make([]*TableInfo, 0, len(si.order))
	for _, k := range si.order {
		out = append(out, si.cache[k])
	}
	return out
}

// RenderSchema formats tables as the plain-text schema context.
func RenderSchema(dialect string, tables []*TableInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database dialect: %s\n", dialect)
	for _, t := range tables {
		fmt.Fprintf(&b, "\nTable %s:\n", t.QualifiedName())
		for _, c := range t.Columns {
			var notes []string
			if c.Type != "" {
				notes = append(notes, c.Type)
			}
			if c.PrimaryKey {
				notes = append(notes, "primary key")
			}
			if len(c.EnumValues) > 0 {
				notes = append(notes, "one of: "+strings.Join(c.EnumValues, ", "))
			}
			fmt.Fprintf(&b, "  - %s (%s)\n", c.Name, strings.Join(notes, ", "))
		}
	}
	return b.String()
}

func applyCheckConstraints(cache map[string]*TableInfo, rows []Row) {
	for _, row := range rows {
		t := &TableInfo{Schema: str(row["table_schema"]), Name: str(row["table_name"])}
		info, ok := cache[t.QualifiedName()]
		if !ok {
			continue
		}
		values := extractEnumValues(str(row["check_clause"]))
		if len(values) == 0 {
			continue
		}
		col := str(row["column_name"])
		for i := range info.Columns {
			if info.Columns[i].Name == col {
				info.Columns[i].EnumValues = values
			}
		}
	}
}

// extractEnumValues extracts enum values from a check constraint clause.
// It supports patterns like:
//   - "status IN ('queued','running','done','failed')"
//   - "status = ANY (ARRAY['queued'::text, 'running'::text, ...])"
func extractEnumValues(checkClause string) []string {
	if match := reInList.FindStringSubmatch(checkClause); len(match) > 1 {
		return parseEnumValueList(match[1])
	}
	if match := reAnyList.FindStringSubmatch(checkClause); len(match) > 1 {
		return parseEnumValueList(match[1])
	}
	return nil
}

// parseEnumValueList parses a comma-separated list of enum values.
// It handles both single and double quotes, type casts and whitespace.
func parseEnumValueList(valueList string) []string {
	var result []string
	for _, val := range strings.Split(valueList, ",") {
		val = strings.TrimSpace(val)
		if idx := strings.Index(val, "::"); idx >= 0 {
			val = val[:idx]
		}
		val = strings.Trim(strings.TrimSpace(val), "'\"")
		if val != "" {
			result = append(result, val)
		}
	}
	return result
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case uint64:
		return b != 0
	case float64:
		return b != 0
	case string:
		n, err := strconv.ParseBool(b)
		if err == nil {
			return n
		}
		i, err := strconv.Atoi(b)
		return err == nil && i != 0
	default:
		return false
	}
}

// TableNames lists qualified names sorted alphabetically.
func TableNames(tables []*TableInfo) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.QualifiedName())
	}
	sort.Strings(names)
	return names
}
