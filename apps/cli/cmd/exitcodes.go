package cmd

import (
	"errors"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
)

// Exit codes for paraspec CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more test files failed
	ExitTestFailure = 1

	// ExitLoadError indicates a test file could not be loaded
	ExitLoadError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNoTestFiles indicates that no pattern matched a test file
	ExitNoTestFiles = 4

	// ExitUsageError indicates invalid CLI usage or a misuse of the pipeline
	ExitUsageError = 64
)

var errTestsFailed = errors.New("tests failed")

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, errTestsFailed) {
		return ExitTestFailure
	}
	kind, ok := paraerrors.KindOf(err)
	if !ok {
		return ExitUsageError
	}
	switch kind {
	case paraerrors.KindLoad:
		return ExitLoadError
	case paraerrors.KindConfiguration:
		return ExitConfigError
	case paraerrors.KindDiscoveryFatal:
		return ExitNoTestFiles
	case paraerrors.KindState:
		return ExitUsageError
	default:
		return ExitTestFailure
	}
}
