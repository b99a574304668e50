package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sqlpilot/cli/internal/agent"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/progress"
	"sqlpilot/cli/internal/schema"
	"sqlpilot/cli/internal/sqlexec"
	"sqlpilot/cli/internal/workpool"

	_ "modernc.org/sqlite"
)

// scripted replies in order, repeating the last entry when exhausted.
type scripted struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	inputs  []string
}

func (s *scripted) next(input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if len(s.replies) == 0 {
		return "", err
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], err
}

func (s *scripted) Generate(_ context.Context, question, _, _ string) (agent.Response, error) {
	raw, err := s.next(question)
	return agent.Response{Raw: raw}, err
}

func (s *scripted) Fix(_ context.Context, instruction string) (agent.Response, error) {
	raw, err := s.next(instruction)
	return agent.Response{Raw: raw}, err
}

func (s *scripted) Diagnose(_ context.Context, errorMessage, _, _ string) (agent.Reasoning, error) {
	raw, err := s.next(errorMessage)
	return agent.Reasoning(raw), err
}

// fakeExec answers by exact SQL text.
type fakeExec struct {
	mu      sync.Mutex
	results map[string]*sqlexec.Result
	panicOn string
	calls   int
}

func (f *fakeExec) Execute(_ context.Context, q string) (*sqlexec.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panicOn != "" && q == f.panicOn {
		panic("driver bug")
	}
	if res, ok := f.results[q]; ok {
		return res, nil
	}
	return nil, errors.New(errors.SQLExecution, fmt.Sprintf("relation in %q does not exist", q))
}
func (f *fakeExec) Dialect() string            { return "PostgreSQL" }
func (f *fakeExec) Ping(context.Context) error { return nil }
func (f *fakeExec) Close()                     {}

func fenced(sql string) string { return "```sql\n" + sql + "\n```" }

func newController(t *testing.T, gen, reason, fix *scripted, exec sqlexec.Executor, maxRetry int) *Controller {
	t.Helper()
	return NewController(Deps{
		Generator: gen,
		Reasoner:  reason,
		Fixer:     fix,
		Executor:  exec,
		Schema:    "Table sales:\n  - region (text)\n  - amount (numeric)",
		Pool:      workpool.New(2),
		Logger:    zaptest.NewLogger(t),
	}, maxRetry)
}

func TestRun_SuccessFirstAttempt(t *testing.T) {
	exec := &fakeExec{results: map[string]*sqlexec.Result{
		"SELECT 1": {Columns: []string{"?column?"}, Rows: []sqlexec.Row{{"?column?": int64(1)}}},
	}}
	c := newController(t, &scripted{replies: []string{fenced("SELECT 1")}}, &scripted{}, &scripted{}, exec, 3)

	res := c.Run(context.Background(), Request{Question: "one", Dialect: "PostgreSQL"})

	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, OutcomeSuccess, res.Attempts[0].Outcome)
	assert.Equal(t, "SELECT 1", res.Attempts[0].SQL)
	assert.Empty(t, res.Diagnoses)
	assert.Len(t, res.Rows, 1)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_AttemptCountWithinBudget(t *testing.T) {
	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("max_retry=%d", n), func(t *testing.T) {
			gen := &scripted{replies: []string{fenced("SELECT nope")}}
			fix := &scripted{replies: []string{fenced("SELECT still_nope")}}
			reason := &scripted{replies: []string{"the column does not exist"}}
			exec := &fakeExec{results: map[string]*sqlexec.Result{}}

			res := newController(t, gen, reason, fix, exec, n).Run(context.Background(), Request{Question: "q", Dialect: "PostgreSQL"})

			assert.Equal(t, StatusRetryExhausted, res.Status)
			assert.GreaterOrEqual(t, len(res.Attempts), 1)
			assert.LessOrEqual(t, len(res.Attempts), n+1)
			assert.Len(t, res.Attempts, n+1)
			assert.Len(t, res.Diagnoses, n+1, "the last failed attempt is diagnosed too")
			assert.Equal(t, n, fix.calls)
			assert.Nil(t, res.Rows)
			for i, a := range res.Attempts {
				assert.Equal(t, i, a.Index)
				assert.Equal(t, OutcomeExecError, a.Outcome)
				assert.Equal(t, i, res.Diagnoses[i].AttemptIndex)
			}
		})
	}
}

func TestRun_SentinelStopsDespiteBudget(t *testing.T) {
	gen := &scripted{replies: []string{"I can only help with questions about your data."}}
	reason := &scripted{replies: []string{"The user asks about the weather. NOT ASKING FOR SQL"}}
	fix := &scripted{}
	exec := &fakeExec{results: map[string]*sqlexec.Result{}}

	res := newController(t, gen, reason, fix, exec, 10).Run(context.Background(), Request{Question: "what's the weather", Dialect: "PostgreSQL"})

	assert.Equal(t, StatusNonFixable, res.Status)
	assert.Len(t, res.Attempts, 1)
	require.Len(t, res.Diagnoses, 1)
	assert.False(t, res.Diagnoses[0].Fixable)
	assert.Equal(t, 0, fix.calls)
	assert.Nil(t, res.Rows)
}

func TestRun_EmptyResultFollowsExecErrorPath(t *testing.T) {
	trail := func(first *sqlexec.Result) RunResult {
		results := map[string]*sqlexec.Result{
			"SELECT fixed": {Columns: []string{"n"}, Rows: []sqlexec.Row{{"n": 1}}},
		}
		if first != nil {
			results["SELECT first"] = first
		}
		gen := &scripted{replies: []string{fenced("SELECT first")}}
		reason := &scripted{replies: []string{"try again"}}
		fix := &scripted{replies: []string{fenced("SELECT fixed")}}
		return newController(t, gen, reason, fix, &fakeExec{results: results}, 3).
			Run(context.Background(), Request{Question: "q", Dialect: "PostgreSQL"})
	}

	empty := trail(&sqlexec.Result{Columns: []string{"n"}, Rows: []sqlexec.Row{}})
	failed := trail(nil)

	assert.Equal(t, OutcomeEmpty, empty.Attempts[0].Outcome)
	assert.Equal(t, OutcomeExecError, failed.Attempts[0].Outcome)
	for _, r := range []RunResult{empty, failed} {
		assert.Equal(t, StatusSuccess, r.Status)
		assert.Len(t, r.Attempts, 2)
		assert.Len(t, r.Diagnoses, 1)
		assert.True(t, r.Diagnoses[0].Fixable)
	}
}

func TestRun_ProviderErrorEntersDiagnosis(t *testing.T) {
	gen := &scripted{errs: []error{errors.New(errors.ProviderBadRequest, "max_tokens too large")}}
	reason := &scripted{replies: []string{"the request was rejected; regenerate"}}
	fix := &scripted{replies: []string{fenced("SELECT 1")}}
	exec := &fakeExec{results: map[string]*sqlexec.Result{
		"SELECT 1": {Columns: []string{"n"}, Rows: []sqlexec.Row{{"n": 1}}},
	}}

	res := newController(t, gen, reason, fix, exec, 3).Run(context.Background(), Request{Question: "q", Dialect: "PostgreSQL"})

	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, OutcomeProviderError, res.Attempts[0].Outcome)
	assert.Contains(t, res.Attempts[0].Error, "max_tokens too large")
	assert.Empty(t, res.Attempts[0].SQL)
	assert.Len(t, res.Diagnoses, 1)
}

func TestRun_ReasonerFailureIsFatal(t *testing.T) {
	gen := &scripted{replies: []string{fenced("SELECT bad")}}
	reason := &scripted{errs: []error{errors.New(errors.ProviderFailed, "503")}}

	res := newController(t, gen, reason, &scripted{}, &fakeExec{}, 3).Run(context.Background(), Request{Question: "q"})

	assert.Equal(t, StatusFatal, res.Status)
	assert.Len(t, res.Attempts, 1, "partial trail is kept")
	assert.Empty(t, res.Diagnoses)
	assert.Contains(t, res.Error, "diagnosis failed")
}

func TestRun_PanicIsFatal(t *testing.T) {
	gen := &scripted{replies: []string{fenced("SELECT boom")}}
	exec := &fakeExec{panicOn: "SELECT boom"}

	var res RunResult
	assert.NotPanics(t, func() {
		res = newController(t, gen, &scripted{}, &scripted{}, exec, 3).Run(context.Background(), Request{Question: "q"})
	})
	assert.Equal(t, StatusFatal, res.Status)
	assert.Contains(t, res.Error, "driver bug")
}

func TestRun_CanceledIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scripted{replies: []string{fenced("SELECT 1")}}
	cancel()

	exec := &fakeExec{}
	res := newController(t, gen, &scripted{}, &scripted{}, exec, 3).Run(ctx, Request{Question: "q"})

	assert.Equal(t, StatusFatal, res.Status)
	assert.Empty(t, res.Attempts)
	assert.Equal(t, 0, exec.calls)
}

func TestRunResult_JSON(t *testing.T) {
	exec := &fakeExec{results: map[string]*sqlexec.Result{}}
	gen := &scripted{replies: []string{fenced("SELECT x")}}
	reason := &scripted{replies: []string{"NOT ASKING FOR SQL"}}
	res := newController(t, gen, reason, &scripted{}, exec, 1).Run(context.Background(), Request{Question: "hi", Dialect: "MySQL"})

	b, err := json.Marshal(res)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "NON_FIXABLE", doc["status"])
	assert.Nil(t, doc["rows"])
	assert.Contains(t, doc, "duration_ms")
	attempts := doc["attempts"].([]any)
	first := attempts[0].(map[string]any)
	assert.Equal(t, "SELECT x", first["sql_text"])
	assert.Equal(t, "exec_error", first["outcome"])
	assert.NotContains(t, first, "Raw")
	diag := doc["diagnoses"].([]any)[0].(map[string]any)
	assert.Equal(t, false, diag["fixable"])
	assert.EqualValues(t, 0, diag["attempt_index"])
}

func TestRun_TotalSalesByRegion(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE sales (id INTEGER PRIMARY KEY, region TEXT, amount DECIMAL(10,2));
		INSERT INTO sales (region, amount) VALUES
			('EMEA', 100.5), ('EMEA', 50), ('APAC', 75.25), ('AMER', 10);`)
	require.NoError(t, err)

	exec := sqlexec.NewDBExecutor(db, "SQLite", sqlexec.Options{})
	text, err := schema.NewOnce(schema.Introspect(sqlexec.NewSchemaInspector(exec))).Load(context.Background())
	require.NoError(t, err)

	gen := &scripted{replies: []string{fenced("SELECT regoin, SUM(amount) AS total FROM sales GROUP BY regoin")}}
	reason := &scripted{replies: []string{"Column regoin does not exist; the table has region."}}
	fix := &scripted{replies: []string{"Replace regoin with region.\n" + fenced("SELECT region, SUM(amount) AS total FROM sales GROUP BY region ORDER BY region")}}

	c := NewController(Deps{
		Generator: gen, Reasoner: reason, Fixer: fix,
		Executor: exec, Schema: text, Pool: workpool.New(4), Logger: zaptest.NewLogger(t),
	}, 3)
	res := c.Run(context.Background(), Request{Question: "total sales by region", Dialect: exec.Dialect()})

	require.Equal(t, StatusSuccess, res.Status, "error: %s", res.Error)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, OutcomeExecError, res.Attempts[0].Outcome)
	assert.Contains(t, strings.ToLower(res.Attempts[0].Error), "regoin")
	assert.Equal(t, []string{"region", "total"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "EMEA", res.Rows[2]["region"])
	assert.InDelta(t, 150.5, res.Rows[2]["total"], 1e-9)

	require.Len(t, fix.inputs, 1)
	assert.Contains(t, fix.inputs[0], "regoin")
	assert.Contains(t, fix.inputs[0], "Table sales:")
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	exec := &fakeExec{results: map[string]*sqlexec.Result{
		"SELECT 1": {Columns: []string{"n"}, Rows: []sqlexec.Row{{"n": 1}}},
	}}
	c := newController(t, &scripted{replies: []string{fenced("SELECT 1")}}, &scripted{}, &scripted{}, exec, 2)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := c.Run(context.Background(), Request{Question: "q"})
			assert.Equal(t, StatusSuccess, res.Status)
			ids[i] = res.RunID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRun_EmitsTransitions(t *testing.T) {
	exec := &fakeExec{results: map[string]*sqlexec.Result{
		"SELECT 1": {Columns: []string{"n"}, Rows: []sqlexec.Row{{"n": int64(1)}}},
	}}
	var (
		mu     sync.Mutex
		stages []progress.Stage
		last   progress.Event
	)
	c := NewController(Deps{
		Generator: &scripted{replies: []string{fenced("SELECT nope")}},
		Reasoner:  &scripted{replies: []string{"the column does not exist"}},
		Fixer:     &scripted{replies: []string{fenced("SELECT 1")}},
		Executor:  exec,
		Logger:    zaptest.NewLogger(t),
		Events: func(ev progress.Event) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, ev.Stage)
			last = ev
		},
	}, 3)

	res := c.Run(context.Background(), Request{Question: "one", Dialect: "SQLite"})
	require.Equal(t, StatusSuccess, res.Status)

	assert.Equal(t, []progress.Stage{
		progress.StageGenerate,
		progress.StageExecute,
		progress.StageExecuted,
		progress.StageDiagnose,
		progress.StageRegenerate,
		progress.StageExecute,
		progress.StageExecuted,
		progress.Stage(StatusSuccess),
	}, stages)
	assert.True(t, last.Terminal)
	assert.True(t, last.Success)
	assert.Equal(t, res.RunID, last.RunID)
	assert.Equal(t, 1, last.Attempt)
}
