package runner

import (
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
)

// FileSummary is the terminal record of one test file.
type FileSummary struct {
	Path      string
	State     scheduler.State
	Attempts  int
	Durations []time.Duration
	Err       error
	Result    scheduler.Result // outcome of the last attempt, nil when it errored
}

// RunResult aggregates every file's terminal state.
type RunResult struct {
	Files    []FileSummary
	Passed   int
	Failed   int
	Errored  int
	Retries  int
	Duration time.Duration
	Stats    StatsSnapshot
}

// Success reports whether every file passed.
func (r *RunResult) Success() bool {
	return r.Failed == 0 && r.Errored == 0
}

// Total is the number of files in the run.
func (r *RunResult) Total() int {
	return len(r.Files)
}

func newRunResult(summary scheduler.Summary, stats StatsSnapshot, last map[string]scheduler.Result) *RunResult {
	res := &RunResult{
		Files:    make([]FileSummary, 0, len(summary.Descriptors)),
		Duration: summary.Duration,
		Stats:    stats,
	}
	for _, d := range summary.Descriptors {
		res.Files = append(res.Files, FileSummary{
			Path:      d.Path,
			State:     d.State,
			Attempts:  d.Attempts,
			Durations: d.Durations,
			Err:       d.Err,
			Result:    last[d.Path],
		})
		if d.Attempts > 1 {
			res.Retries += d.Attempts - 1
		}
		switch d.State {
		case scheduler.StatePassed:
			res.Passed++
		case scheduler.StateErrored:
			res.Errored++
		default:
			res.Failed++
		}
	}
	return res
}
