// Package cmd implements the paraspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute suite files in parallel
//   - validate: Check that suite files load without executing them
//   - list: Display all tests declared by suite files
//   - init: Create a new paraspec project with an example suite
//   - version: Show paraspec version information
//   - completion: Generate shell completion scripts
//
// Settings resolve from built-in defaults, then the config file, then
// PARASPEC_* environment variables, then flags given on the command line.
// Errors map to the exit codes in exitcodes.go.
package cmd
