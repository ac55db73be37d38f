// Package errors provides the typed error taxonomy of the paraspec pipeline.
//
// Discovery warnings are absorbed by the orchestrator. Every other kind is
// fatal to the pipeline and returned to the caller, except test execution
// failures, which are data carried by the run result and never returned.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the type of error.
type Kind int

const (
	// KindDiscoveryWarning marks a pattern that matched nothing.
	KindDiscoveryWarning Kind = iota
	// KindDiscoveryFatal marks a discovery pass that produced zero files.
	KindDiscoveryFatal
	// KindLoad marks a file that failed during the validation load.
	KindLoad
	// KindTestExecution marks a scheduled file whose run failed.
	KindTestExecution
	// KindConfiguration marks invalid options.
	KindConfiguration
	// KindState marks protocol misuse by a caller.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindDiscoveryWarning:
		return "discovery warning"
	case KindDiscoveryFatal:
		return "discovery error"
	case KindLoad:
		return "load error"
	case KindTestExecution:
		return "test execution failure"
	case KindConfiguration:
		return "configuration error"
	case KindState:
		return "state error"
	default:
		return "unknown error"
	}
}

// Error is the base error type for the pipeline.
type Error struct {
	Kind    Kind
	Message string
	Path    string // file or pattern the error refers to, if any
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// DiscoveryWarning reports a pattern that resolved to no files.
func DiscoveryWarning(pattern string, cause error) *Error {
	return &Error{
		Kind:    KindDiscoveryWarning,
		Message: "could not find any test files matching pattern",
		Path:    pattern,
		Cause:   cause,
	}
}

// NoTestFiles reports that discovery produced zero files across all patterns.
func NoTestFiles() *Error {
	return &Error{
		Kind:    KindDiscoveryFatal,
		Message: "No test files found",
	}
}

// Load wraps a failure raised while loading a file for validation.
func Load(path string, cause error) *Error {
	return &Error{
		Kind:    KindLoad,
		Message: "failed to load",
		Path:    path,
		Cause:   cause,
	}
}

// Loadf creates a load error with formatting.
func Loadf(path, format string, args ...any) *Error {
	return &Error{
		Kind:    KindLoad,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// TestExecution wraps the failure of a scheduled file run.
func TestExecution(path string, cause error) *Error {
	return &Error{
		Kind:    KindTestExecution,
		Message: "test run failed",
		Path:    path,
		Cause:   cause,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...any) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// Statef creates a new state error with formatting.
func Statef(format string, args ...any) *Error {
	return &Error{
		Kind:    KindState,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if stderrors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
