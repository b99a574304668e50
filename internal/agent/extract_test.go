package agent

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"fenced with hint", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"fenced with uppercase hint", "```SQL\nSELECT 1;\n```", "SELECT 1;"},
		{"prose around fence", "Here you go:\n```sql\nSELECT region FROM sales\n```\nHope it helps", "SELECT region FROM sales"},
		{"unfenced", "  SELECT * FROM t  ", "SELECT * FROM t"},
		{"unfenced hint", "sql SELECT 1", "SELECT 1"},
		{"identifier kept", "```\nSELECT * FROM mysql_users\n```", "SELECT * FROM mysql_users"},
		{"column named sqlite_id", "sqlite_id", "sqlite_id"},
		{"repeated hint", "sql\nsql SELECT 1", "SELECT 1"},
		{"only hint", "```sql```", ""},
		{"empty", "", ""},
		{"unterminated fence", "```sql\nSELECT 2", "SELECT 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSQL(tt.raw))
		})
	}
}

func TestExtractSQL_Idempotent(t *testing.T) {
	f := func(s string) bool {
		once := ExtractSQL(s)
		return ExtractSQL(once) == once
	}
	assert.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))

	for _, s := range []string{"```sql\n```sql\n```", "sql", " sql\t", "```a```b```", "sqlsql SELECT"} {
		once := ExtractSQL(s)
		assert.Equal(t, once, ExtractSQL(once), "input %q", s)
	}
}

func TestExtractSQL_SelectOneRoundTrip(t *testing.T) {
	assert.Equal(t, "SELECT 1", ExtractSQL("```sql\nSELECT 1\n```"))
}
