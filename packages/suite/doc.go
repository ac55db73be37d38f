// Package suite is the test framework paraspec schedules: suite documents,
// their compilers, the loader with its module cache and the runtime that
// executes a declared describe/it tree.
//
// Loading a file evaluates its declarations through the Declarer currently
// installed on the Host's hook controller. Normally that is the Registry,
// which keeps one suite tree per file for the Framework to take and run.
// During validation the orchestrator installs a Probe instead, so files can
// be loaded without registering tests.
package suite
