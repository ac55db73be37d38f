package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/runner"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
)

// Settings configures the reporter New builds.
type Settings struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	Options map[string]any // reporter specific, e.g. suiteName for junit
}

var constructors = map[string]func(Settings) runner.Reporter{
	"spec": func(s Settings) runner.Reporter {
		return NewSpecReporter(WithWriter(s.Writer), WithVerbose(s.Verbose), WithNoColor(s.NoColor))
	},
	"json": func(s Settings) runner.Reporter {
		return NewJSONReporter(JSONWithWriter(s.Writer))
	},
	"tap": func(s Settings) runner.Reporter {
		return NewTAPReporter(TAPWithWriter(s.Writer))
	},
	"junit": func(s Settings) runner.Reporter {
		opts := []JUnitOption{JUnitWithWriter(s.Writer)}
		if name, ok := s.Options["suiteName"].(string); ok && name != "" {
			opts = append(opts, JUnitWithSuiteName(name))
		}
		return NewJUnitReporter(opts...)
	},
}

// Names lists the available reporters.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the reporter called name.
func New(name string, s Settings) (runner.Reporter, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, paraerrors.Configf("unknown reporter %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if s.Writer == nil {
		s.Writer = os.Stdout
	}
	return ctor(s), nil
}

// fileResult returns the suite outcome carried by a scheduler result.
func fileResult(res any) *suite.FileResult {
	fr, _ := res.(*suite.FileResult)
	return fr
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// failureLines renders why a test failed, one line per unmet expectation.
func failureLines(err error) []string {
	if err == nil {
		return nil
	}
	var expErr *suite.ExpectationError
	if !errors.As(err, &expErr) {
		return strings.Split(err.Error(), "\n")
	}
	lines := make([]string, 0, len(expErr.Failures))
	for _, f := range expErr.Failures {
		lines = append(lines, fmt.Sprintf("%s %s: expected %s, got %s", f.Subject, f.Operator,
			formatValue(f.Expected, 100), formatValue(f.Actual, 100)))
	}
	return lines
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
