// Package env handles variables for paraspec suites.
//
// It provides:
//   - {{variable}} interpolation with captures, $ENV lookups and builtin calls
//   - .env file loading for --require'd dotenv files
//   - variable merging for imported library modules
package env
