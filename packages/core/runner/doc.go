// Package runner coordinates a paraspec run.
//
// A Runner does not execute test code. It observes the scheduler, forwards
// every attempt to the bound Reporter and emits events to subscribers:
//   - start when the run is announced
//   - dispatch when a file is handed to a worker
//   - retry, pass or fail when an attempt completes
//   - end exactly once, when every file reached a terminal state
//
// The end event resolves the runner; Done and Wait expose it as a
// single-resolution future. Cancelling a run in flight is not supported.
package runner
