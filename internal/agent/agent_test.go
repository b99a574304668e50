package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/llm"
)

type captured struct {
	reqs  []llm.Request
	reply string
	err   error
}

func (c *captured) Complete(_ context.Context, req llm.Request) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

const salesSchema = "Table sales:\n  - region (text)\n  - amount (numeric)"

func TestGenerator_Generate(t *testing.T) {
	c := &captured{reply: "```sql\nSELECT region, SUM(amount) FROM sales GROUP BY region\n```"}
	g := NewGenerator(c, Config{Model: "llama3-8b-8192", Temperature: 0.1, MaxTokens: 256})

	resp, err := g.Generate(context.Background(), "total sales by region", salesSchema, "PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, c.reply, resp.Raw)

	require.Len(t, c.reqs, 1)
	req := c.reqs[0]
	assert.Equal(t, "llama3-8b-8192", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "total sales by region")
	assert.Contains(t, req.Messages[0].Content, "PostgreSQL")
	assert.Contains(t, req.Messages[0].Content, "Table sales:")
}

func TestGenerator_PropagatesProviderError(t *testing.T) {
	c := &captured{err: errors.New(errors.ProviderBadRequest, "bad")}
	_, err := NewGenerator(c, DefaultConfig()).Generate(context.Background(), "q", salesSchema, "MySQL")
	assert.True(t, errors.Is(err, errors.ProviderBadRequest))
}

func TestReasoner_Diagnose(t *testing.T) {
	c := &captured{reply: "  The column regoin does not exist; use region.  "}
	r := NewReasoner(c, DefaultConfig())

	got, err := r.Diagnose(context.Background(), `column "regoin" does not exist`, "SELECT regoin FROM sales", salesSchema)
	require.NoError(t, err)
	assert.Equal(t, Reasoning("The column regoin does not exist; use region."), got)
	assert.False(t, got.NonFixable())

	prompt := c.reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "SELECT regoin FROM sales")
	assert.Contains(t, prompt, NonFixableSentinel)
}

func TestReasoning_NonFixable(t *testing.T) {
	assert.True(t, Reasoning("NOT ASKING FOR SQL").NonFixable())
	assert.True(t, Reasoning("This is about weather. NOT ASKING FOR SQL.").NonFixable())
	assert.False(t, Reasoning("not asking for sql").NonFixable())
	assert.False(t, Reasoning("NOT ASKING FOR").NonFixable())
}

func TestFixer_Fix(t *testing.T) {
	c := &captured{reply: "The column is misspelled.\n```sql\nSELECT region FROM sales\n```"}
	f := NewFixer(c, DefaultConfig())

	instr := FixInstruction{
		Reasoning: "Use region instead of regoin.",
		Question:  "list regions",
		Dialect:   "PostgreSQL",
		Schema:    salesSchema,
		SQL:       "SELECT regoin FROM sales",
		Error:     `column "regoin" does not exist`,
	}.String()

	resp, err := f.Fix(context.Background(), instr)
	require.NoError(t, err)
	assert.Equal(t, "SELECT region FROM sales", ExtractSQL(resp.Raw))

	prompt := c.reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "Use region instead of regoin.")
	assert.Contains(t, prompt, "step by step")
	assert.Contains(t, prompt, "Previous error:")
}

func TestConfig_DefaultsMaxTokens(t *testing.T) {
	req := Config{Model: "m"}.request("p")
	assert.Equal(t, 256, req.MaxTokens)
}
