package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/assertions"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *runner.RunResult {
	passing := &suite.FileResult{
		File:   "/t/a.yaml",
		Tests:  []suite.TestResult{{Title: "users lists", State: suite.TestPassed, Duration: 12 * time.Millisecond}},
		Passes: 1,
	}
	failing := &suite.FileResult{
		File: "/t/b.yaml",
		Tests: []suite.TestResult{
			{Title: "orders creates", State: suite.TestFailed, Err: &suite.ExpectationError{Failures: []*assertions.Result{{
				Subject: "status", Operator: assertions.OpEquals, Expected: 201, Actual: 500, Message: "expected 201, got 500",
			}}}},
			{Title: "orders later", State: suite.TestPending},
		},
		Failures: 1,
		Pending:  1,
	}
	return &runner.RunResult{
		Files: []runner.FileSummary{
			{Path: "/t/a.yaml", State: scheduler.StatePassed, Attempts: 1, Durations: []time.Duration{20 * time.Millisecond}, Result: passing},
			{Path: "/t/b.yaml", State: scheduler.StateFailed, Attempts: 2, Durations: []time.Duration{5 * time.Millisecond, 6 * time.Millisecond}, Result: failing},
			{Path: "/t/c.yaml", State: scheduler.StateErrored, Attempts: 1, Err: errors.New("failed to load /t/c.yaml: boom")},
		},
		Passed:   1,
		Failed:   1,
		Errored:  1,
		Retries:  1,
		Duration: 40 * time.Millisecond,
		Stats:    runner.StatsSnapshot{Count: 4, Min: 5 * time.Millisecond, P50: 6 * time.Millisecond, P90: 20 * time.Millisecond, P99: 20 * time.Millisecond, Max: 20 * time.Millisecond},
	}
}

func replay(r runner.Reporter, res *runner.RunResult) {
	r.Start(runner.ReporterInfo{ReporterName: "test", TestsLength: len(res.Files)})
	for _, f := range res.Files {
		for i, d := range f.Durations {
			last := i == len(f.Durations)-1
			state := scheduler.StatePending
			if last {
				state = f.State
			}
			r.Attempt(runner.Attempt{Path: f.Path, Number: i + 1, State: state, Retrying: !last, Duration: d, Result: f.Result, Err: f.Err})
		}
		if len(f.Durations) == 0 {
			r.Attempt(runner.Attempt{Path: f.Path, Number: 1, State: f.State, Err: f.Err})
		}
	}
	r.End(res)
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"json", "junit", "spec", "tap"}, Names())

	for _, name := range Names() {
		r, err := New(name, Settings{Writer: &bytes.Buffer{}})
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}

	_, err := New("dots", Settings{})
	require.Error(t, err)
	assert.True(t, paraerrors.Is(err, paraerrors.KindConfiguration))
	assert.Contains(t, err.Error(), `unknown reporter "dots"`)
}

func TestSpecReporter(t *testing.T) {
	var buf bytes.Buffer
	replay(NewSpecReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true)), sampleRun())
	out := buf.String()

	assert.Contains(t, out, "Running 3 test files")
	assert.Contains(t, out, "↻ /t/b.yaml (attempt 1 failed, retrying)")
	assert.Contains(t, out, "✓ users lists (12ms)")
	assert.Contains(t, out, "✗ orders creates")
	assert.Contains(t, out, "→ status equals: expected 201, got 500")
	assert.Contains(t, out, "- orders later")
	assert.Contains(t, out, "x failed to load /t/c.yaml: boom")
	assert.Contains(t, out, "Files: 1 passed, 1 failed, 1 errored, 3 total")
	assert.Contains(t, out, "Tests: 1 passed, 1 failed, 1 pending, 3 total")
	assert.Contains(t, out, "Retries: 1")
	assert.Contains(t, out, "p50 6ms")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	replay(NewJSONReporter(JSONWithWriter(&buf), JSONWithRunID("run-1")), sampleRun())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, JSONSummary{Files: 3, Passed: 1, Failed: 1, Errored: 1, Retries: 1, Tests: 3, Passes: 1, Fails: 1, Pending: 1}, out.Summary)
	require.Len(t, out.Files, 3)

	b := out.Files[1]
	assert.Equal(t, "failed", b.State)
	require.Len(t, b.Attempts, 2)
	assert.True(t, b.Attempts[0].Retrying)
	assert.Equal(t, 5.0, b.Attempts[0].Duration)
	require.Len(t, b.Tests, 2)
	assert.Equal(t, []string{"status equals: expected 201, got 500"}, b.Tests[0].Failures)

	assert.Contains(t, out.Files[2].Error, "boom")
	assert.Equal(t, 6.0, out.Latency.P50)
}

func TestJSONReporter_GeneratesRunID(t *testing.T) {
	assert.NotEqual(t, NewJSONReporter().runID, NewJSONReporter().runID)
}

func TestTAPReporter(t *testing.T) {
	var buf bytes.Buffer
	replay(NewTAPReporter(TAPWithWriter(&buf)), sampleRun())
	out := buf.String()

	assert.Contains(t, out, "TAP version 13\n1..4\n")
	assert.Contains(t, out, "ok 1 - /t/a.yaml > users lists\n")
	assert.Contains(t, out, "not ok 2 - /t/b.yaml > orders creates\n")
	assert.Contains(t, out, `    - "status equals: expected 201, got 500"`)
	assert.Contains(t, out, "ok 3 - /t/b.yaml > orders later # SKIP pending\n")
	assert.Contains(t, out, "not ok 4 - /t/c.yaml\n")
	assert.Contains(t, out, "severity: error")
	assert.Contains(t, out, "# retries 1")
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	replay(NewJUnitReporter(JUnitWithWriter(&buf), JUnitWithSuiteName("api")), sampleRun())

	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "api", out.Name)
	assert.Equal(t, 4, out.Tests)
	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.TestSuites, 3)

	b := out.TestSuites[1]
	assert.Equal(t, 1, b.Retries)
	require.Len(t, b.TestCases, 2)
	require.NotNil(t, b.TestCases[0].Failure)
	assert.Contains(t, b.TestCases[0].Failure.Content, "expected 201, got 500")
	assert.NotNil(t, b.TestCases[1].Skipped)

	c := out.TestSuites[2]
	require.Len(t, c.TestCases, 1)
	require.NotNil(t, c.TestCases[0].Error)
	assert.Contains(t, c.TestCases[0].Error.Message, "boom")
}

func TestFailureLines_PlainError(t *testing.T) {
	assert.Equal(t, []string{"timeout of 5ms exceeded"}, failureLines(errors.New("timeout of 5ms exceeded")))
	assert.Nil(t, failureLines(nil))
}
