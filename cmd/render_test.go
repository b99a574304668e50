package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpilot/cli/internal/sqlexec"
)

func TestRenderRows(t *testing.T) {
	cols := []string{"region", "total"}
	rows := []sqlexec.Row{
		{"region": "EMEA", "total": 150.5},
		{"region": "APAC", "total": nil},
	}

	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, cols, rows, formatTable))
	out := buf.String()
	assert.Contains(t, out, "EMEA")
	assert.Contains(t, out, "150.5")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")

	buf.Reset()
	require.NoError(t, renderRows(&buf, cols, rows, formatCSV))
	assert.Contains(t, buf.String(), "region,total")
	assert.Contains(t, buf.String(), "EMEA,150.5")

	buf.Reset()
	require.NoError(t, renderRows(&buf, cols, rows, formatMarkdown))
	assert.Contains(t, buf.String(), "| EMEA | 150.5 |")

	assert.Error(t, renderRows(&buf, cols, rows, "xml"))
}

func TestRenderRows_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, []string{"n"}, nil, formatTable))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "2025-01-02T03:04:05Z", formatValue(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}
