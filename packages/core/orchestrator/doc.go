// Package orchestrator is the entry point of a paraspec run.
//
// Run resolves patterns to suite files, loads each file once with the
// declaration hooks patched to a probe, registers the files with a
// scheduler, restores the hooks, evicts the modules the load pass cached and
// then starts parallel execution. The returned runner is the run's
// completion future.
//
// Zero discovered files is an error raised before anything is patched; a
// pattern that matches nothing only prints a warning.
package orchestrator
