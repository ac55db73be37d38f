package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
	"github.com/fatih/color"
)

// SpecReporter prints every file as its attempt completes, followed by a
// summary of the run.
type SpecReporter struct {
	mu      sync.Mutex
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*SpecReporter)

func NewSpecReporter(opts ...ConsoleOption) *SpecReporter {
	f := &SpecReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *SpecReporter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *SpecReporter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *SpecReporter) {
		f.noColor = nc
	}
}

func (f *SpecReporter) Start(info runner.ReporterInfo) {
	bold := color.New(color.Bold).SprintFunc()

	f.mu.Lock()
	defer f.mu.Unlock()
	noun := "files"
	if info.TestsLength == 1 {
		noun = "file"
	}
	fmt.Fprintf(f.writer, "%s\n", bold(fmt.Sprintf("Running %d test %s", info.TestsLength, noun)))
}

func (f *SpecReporter) Attempt(a runner.Attempt) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	f.mu.Lock()
	defer f.mu.Unlock()

	if a.Retrying {
		reason := "failed"
		if a.Err != nil {
			reason = a.Err.Error()
		}
		fmt.Fprintf(f.writer, "\n%s %s %s\n", yellow("↻"), a.Path,
			yellow(fmt.Sprintf("(attempt %d %s, retrying)", a.Number, reason)))
		return
	}

	fmt.Fprintf(f.writer, "\n%s %s\n", bold(a.Path), cyan(fmt.Sprintf("(%dms)", a.Duration.Milliseconds())))
	if a.State == scheduler.StateErrored {
		fmt.Fprintf(f.writer, "  %s %s\n", red("x"), red(fmt.Sprintf("%v", a.Err)))
		return
	}

	fr := fileResult(a.Result)
	if fr == nil {
		return
	}
	if len(fr.Tests) == 0 {
		fmt.Fprintf(f.writer, "  %s\n", yellow("no tests"))
	}
	for _, t := range fr.Tests {
		switch t.State {
		case suite.TestPending:
			fmt.Fprintf(f.writer, "  %s %s\n", yellow("-"), t.Title)
		case suite.TestPassed:
			fmt.Fprintf(f.writer, "  %s %s", green("✓"), t.Title)
			if f.verbose {
				fmt.Fprintf(f.writer, " %s", cyan(fmt.Sprintf("(%dms)", t.Duration.Milliseconds())))
			}
			fmt.Fprintf(f.writer, "\n")
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), t.Title, cyan(fmt.Sprintf("(%dms)", t.Duration.Milliseconds())))
			for _, line := range failureLines(t.Err) {
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), line)
			}
		}
	}
}

func (f *SpecReporter) End(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	f.mu.Lock()
	defer f.mu.Unlock()

	var passes, failures, pending int
	for _, file := range result.Files {
		if fr := fileResult(file.Result); fr != nil {
			passes += fr.Passes
			failures += fr.Failures
			pending += fr.Pending
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Files: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errored", result.Errored)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total())

	fmt.Fprintf(f.writer, "Tests: ")
	if passes > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passes)))
	}
	if failures > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failures)))
	}
	if pending > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d pending", pending)))
	}
	fmt.Fprintf(f.writer, "%d total\n", passes+failures+pending)

	if result.Retries > 0 {
		fmt.Fprintf(f.writer, "Retries: %d\n", result.Retries)
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	if f.verbose && result.Stats.Count > 0 {
		s := result.Stats
		fmt.Fprintf(f.writer, "Attempts: %d (min %dms, p50 %dms, p90 %dms, p99 %dms, max %dms)\n",
			s.Count, s.Min.Milliseconds(), s.P50.Milliseconds(), s.P90.Milliseconds(),
			s.P99.Milliseconds(), s.Max.Milliseconds())
	}
}
