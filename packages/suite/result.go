package suite

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/assertions"
)

// TestState is the outcome of one test.
type TestState string

const (
	TestPassed  TestState = "passed"
	TestFailed  TestState = "failed"
	TestPending TestState = "pending"
)

// TestResult is the outcome of one test or of a failed hook.
type TestResult struct {
	Title    string
	State    TestState
	Duration time.Duration
	Err      error
	Hook     HookKind // set when a hook failure decided the outcome
}

// FileResult is what running one suite file produced. It is the result the
// scheduler sees for an attempt.
type FileResult struct {
	File     string
	Tests    []TestResult
	Passes   int
	Failures int
	Pending  int
	Duration time.Duration
}

// Passed reports whether no test failed. A nil result has not passed.
func (r *FileResult) Passed() bool {
	return r != nil && r.Failures == 0
}

func (r *FileResult) add(tr TestResult) {
	switch tr.State {
	case TestPassed:
		r.Passes++
	case TestFailed:
		r.Failures++
	case TestPending:
		r.Pending++
	}
	r.Tests = append(r.Tests, tr)
}

// ExpectationError lists the expectations a step did not meet.
type ExpectationError struct {
	Failures []*assertions.Result
}

func (e *ExpectationError) Error() string {
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = f.String()
	}
	if len(lines) == 1 {
		return "expectation failed: " + lines[0]
	}
	return fmt.Sprintf("%d expectations failed:\n  %s", len(lines), strings.Join(lines, "\n  "))
}
