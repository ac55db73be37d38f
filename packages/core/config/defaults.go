package config

import "runtime"

const (
	// DefaultReporter is used when no reporter is configured.
	DefaultReporter = "spec"
	// DefaultTimeout is the per-test timeout in milliseconds.
	DefaultTimeout = 2000
)

// DefaultPatterns are searched when no pattern is given.
var DefaultPatterns = []string{"test"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		MaxParallel: runtime.NumCPU(),
		Retry:       IntPtr(0),
		Reporter:    DefaultReporter,
		Recursive:   BoolPtr(false),
		Timeouts:    BoolPtr(true),
		Timeout:     DefaultTimeout,
		NoColor:     BoolPtr(false),
		Verbose:     BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.MaxParallel == defaults.MaxParallel &&
		c.GetRetry() == defaults.GetRetry() &&
		c.Reporter == defaults.Reporter &&
		len(c.ReporterOptions) == 0 &&
		len(c.Compilers) == 0 &&
		len(c.Require) == 0 &&
		c.GetRecursive() == defaults.GetRecursive() &&
		c.GetTimeouts() == defaults.GetTimeouts() &&
		c.Timeout == defaults.Timeout &&
		c.DispatchRate == defaults.DispatchRate &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		len(c.Spec) == 0
}
