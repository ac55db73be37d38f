// Package output provides the reporters that present a paraspec run.
//
// Supported reporters:
//   - spec: human-readable colored terminal output
//   - json: machine-readable JSON output
//   - junit: JUnit XML format for CI integration
//   - tap: Test Anything Protocol format
//
// Every reporter implements runner.Reporter. The spec reporter writes as
// attempts complete; the others accumulate and write once the run ends.
package output
