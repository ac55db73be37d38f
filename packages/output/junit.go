package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/core/scheduler"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one test file.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Retries   int             `xml:"retries,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitReporter writes JUnit XML once the run ends.
type JUnitReporter struct {
	writer    io.Writer
	suiteName string
}

type JUnitOption func(*JUnitReporter)

func NewJUnitReporter(opts ...JUnitOption) *JUnitReporter {
	f := &JUnitReporter{
		writer:    os.Stdout,
		suiteName: "paraspec",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitReporter) {
		if w != nil {
			f.writer = w
		}
	}
}

// JUnitWithSuiteName sets the name of the testsuites element.
func JUnitWithSuiteName(name string) JUnitOption {
	return func(f *JUnitReporter) {
		f.suiteName = name
	}
}

func (f *JUnitReporter) Start(runner.ReporterInfo) {}

func (f *JUnitReporter) Attempt(runner.Attempt) {}

func (f *JUnitReporter) End(result *runner.RunResult) {
	suites := JUnitTestSuites{
		Name:       f.suiteName,
		Time:       result.Duration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: make([]JUnitTestSuite, 0, len(result.Files)),
	}

	for _, file := range result.Files {
		ts := f.fileSuite(file)
		suites.Tests += ts.Tests
		suites.Failures += ts.Failures
		suites.Errors += ts.Errors
		suites.Skipped += ts.Skipped
		suites.TestSuites = append(suites.TestSuites, ts)
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	_ = encoder.Encode(suites)
	fmt.Fprintln(f.writer)
}

func (f *JUnitReporter) fileSuite(file runner.FileSummary) JUnitTestSuite {
	var total time.Duration
	for _, d := range file.Durations {
		total += d
	}
	ts := JUnitTestSuite{
		Name:    file.Path,
		Time:    total.Seconds(),
		Retries: max(file.Attempts-1, 0),
	}

	if file.State == scheduler.StateErrored {
		msg := "file could not be executed"
		if file.Err != nil {
			msg = file.Err.Error()
		}
		ts.Tests, ts.Errors = 1, 1
		ts.TestCases = append(ts.TestCases, JUnitTestCase{
			Name:      "load",
			ClassName: file.Path,
			Error:     &JUnitError{Message: msg, Type: "Error"},
		})
		return ts
	}

	fr := fileResult(file.Result)
	if fr == nil {
		return ts
	}
	for _, r := range fr.Tests {
		tc := JUnitTestCase{
			Name:      r.Title,
			ClassName: file.Path,
			Time:      r.Duration.Seconds(),
		}
		ts.Tests++
		switch r.State {
		case suite.TestPending:
			ts.Skipped++
			tc.Skipped = &JUnitSkipped{Message: "pending"}
		case suite.TestFailed:
			ts.Failures++
			msg := "Assertion failed"
			if r.Hook != "" {
				msg = fmt.Sprintf("%q hook failed", r.Hook)
			}
			tc.Failure = &JUnitFailure{
				Message: msg,
				Type:    "AssertionError",
				Content: strings.Join(failureLines(r.Err), "\n"),
			}
		}
		ts.TestCases = append(ts.TestCases, tc)
	}
	return ts
}
