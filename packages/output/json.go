package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/google/uuid"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID    string      `json:"runId"`
	Summary  JSONSummary `json:"summary"`
	Files    []JSONFile  `json:"files"`
	Latency  JSONLatency `json:"latency"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary counts files by terminal state and tests by outcome.
type JSONSummary struct {
	Files   int `json:"files"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Retries int `json:"retries"`
	Tests   int `json:"tests"`
	Passes  int `json:"passes"`
	Fails   int `json:"failures"`
	Pending int `json:"pending"`
}

// JSONLatency holds attempt duration percentiles in milliseconds.
type JSONLatency struct {
	Min  float64 `json:"min"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// JSONFile is the terminal record of one test file.
type JSONFile struct {
	Path     string        `json:"path"`
	State    string        `json:"state"`
	Attempts []JSONAttempt `json:"attempts"`
	Tests    []JSONTest    `json:"tests,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// JSONAttempt is one execution of a file.
type JSONAttempt struct {
	Number   int     `json:"number"`
	State    string  `json:"state"`
	Retrying bool    `json:"retrying,omitempty"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// JSONTest represents a single test result of the final attempt
type JSONTest struct {
	Title    string   `json:"title"`
	State    string   `json:"state"`
	Duration float64  `json:"duration"`
	Hook     string   `json:"hook,omitempty"`
	Error    string   `json:"error,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// JSONReporter collects attempts and writes one document when the run ends.
type JSONReporter struct {
	mu       sync.Mutex
	writer   io.Writer
	runID    string
	attempts map[string][]JSONAttempt
}

type JSONOption func(*JSONReporter)

func NewJSONReporter(opts ...JSONOption) *JSONReporter {
	f := &JSONReporter{
		writer:   os.Stdout,
		runID:    uuid.NewString(),
		attempts: make(map[string][]JSONAttempt),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONReporter) {
		if w != nil {
			f.writer = w
		}
	}
}

// JSONWithRunID overrides the generated run identifier.
func JSONWithRunID(id string) JSONOption {
	return func(f *JSONReporter) {
		f.runID = id
	}
}

func (f *JSONReporter) Start(runner.ReporterInfo) {}

func (f *JSONReporter) Attempt(a runner.Attempt) {
	ja := JSONAttempt{
		Number:   a.Number,
		State:    string(a.State),
		Retrying: a.Retrying,
		Duration: millis(a.Duration),
	}
	if a.Err != nil {
		ja.Error = a.Err.Error()
	}
	f.mu.Lock()
	f.attempts[a.Path] = append(f.attempts[a.Path], ja)
	f.mu.Unlock()
}

func (f *JSONReporter) End(result *runner.RunResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := JSONOutput{
		RunID: f.runID,
		Summary: JSONSummary{
			Files:   result.Total(),
			Passed:  result.Passed,
			Failed:  result.Failed,
			Errored: result.Errored,
			Retries: result.Retries,
		},
		Files: make([]JSONFile, 0, len(result.Files)),
		Latency: JSONLatency{
			Min:  millis(result.Stats.Min),
			P50:  millis(result.Stats.P50),
			P90:  millis(result.Stats.P90),
			P99:  millis(result.Stats.P99),
			Max:  millis(result.Stats.Max),
			Mean: millis(result.Stats.Mean),
		},
		Duration: millis(result.Duration),
		Time:     time.Now().Format(time.RFC3339),
	}

	for _, file := range result.Files {
		jf := JSONFile{
			Path:     file.Path,
			State:    string(file.State),
			Attempts: f.attempts[file.Path],
		}
		if file.Err != nil {
			jf.Error = file.Err.Error()
		}
		if fr := fileResult(file.Result); fr != nil {
			out.Summary.Passes += fr.Passes
			out.Summary.Fails += fr.Failures
			out.Summary.Pending += fr.Pending
			for _, t := range fr.Tests {
				jt := JSONTest{
					Title:    t.Title,
					State:    string(t.State),
					Duration: millis(t.Duration),
					Hook:     string(t.Hook),
				}
				if t.Err != nil {
					jt.Error = t.Err.Error()
					jt.Failures = failureLines(t.Err)
				}
				jf.Tests = append(jf.Tests, jt)
			}
		}
		out.Files = append(out.Files, jf)
	}
	out.Summary.Tests = out.Summary.Passes + out.Summary.Fails + out.Summary.Pending

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
