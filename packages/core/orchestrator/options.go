package orchestrator

import (
	"io"
	"time"

	"github.com/abdul-hamid-achik/paraspec/packages/core/config"
)

// Options describe one invocation.
type Options struct {
	// Compilers are ext:module pairs registering extra suite file formats.
	Compilers []string
	// Timeouts turns per-test timeouts on or off. Nil keeps the framework default.
	Timeouts *bool
	// Timeout replaces the default per-test timeout when positive.
	Timeout time.Duration
	// Recursive makes directory patterns descend into subdirectories.
	Recursive bool

	MaxParallel  int
	Retry        int
	DispatchRate float64

	// Require lists modules loaded before discovery. Files named .env are
	// exported to the process environment; anything else is loaded as a
	// library suite module.
	Require []string

	Reporter        string
	ReporterOptions map[string]any
	// Patterns are resolved against the working directory. Empty means
	// config.DefaultPatterns.
	Patterns []string

	NoColor bool
	Verbose bool
	// Output receives the reporter's output. Nil means stdout.
	Output io.Writer
}

func (o Options) patterns() []string {
	if len(o.Patterns) == 0 {
		return config.DefaultPatterns
	}
	return o.Patterns
}
