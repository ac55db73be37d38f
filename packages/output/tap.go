package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
)

// TAPReporter writes Test Anything Protocol output once the run ends.
// Every test of every file is one TAP test point.
type TAPReporter struct {
	writer io.Writer
}

type tapResult struct {
	name     string
	passed   bool
	pending  bool
	error    string
	failures []string
}

type TAPOption func(*TAPReporter)

func NewTAPReporter(opts ...TAPOption) *TAPReporter {
	f := &TAPReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPReporter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *TAPReporter) Start(runner.ReporterInfo) {}

func (f *TAPReporter) Attempt(runner.Attempt) {}

func (f *TAPReporter) End(result *runner.RunResult) {
	var results []tapResult
	for _, file := range result.Files {
		if file.State == scheduler.StateErrored {
			tr := tapResult{name: file.Path}
			if file.Err != nil {
				tr.error = file.Err.Error()
			}
			results = append(results, tr)
			continue
		}
		fr := fileResult(file.Result)
		if fr == nil {
			continue
		}
		for _, t := range fr.Tests {
			tr := tapResult{
				name:    file.Path + " > " + t.Title,
				passed:  t.State == suite.TestPassed,
				pending: t.State == suite.TestPending,
			}
			if t.State == suite.TestFailed {
				tr.failures = failureLines(t.Err)
			}
			results = append(results, tr)
		}
	}

	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(results))

	for i, r := range results {
		n := i + 1
		switch {
		case r.pending:
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP pending\n", n, r.name)
		case r.error != "":
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
			fmt.Fprintf(f.writer, "  severity: error\n")
			fmt.Fprintf(f.writer, "  ...\n")
		case r.passed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, r.name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, r.name)
			if len(r.failures) > 0 {
				fmt.Fprintf(f.writer, "  ---\n")
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, line := range r.failures {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(line))
				}
				fmt.Fprintf(f.writer, "  ...\n")
			}
		}
	}

	if result.Retries > 0 {
		fmt.Fprintf(f.writer, "# retries %d\n", result.Retries)
	}
	fmt.Fprintln(f.writer)
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", `\n`)
		return "\"" + s + "\""
	}
	return s
}
