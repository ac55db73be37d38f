// Package config handles configuration loading and management for paraspec.
//
// It provides functionality for:
//   - Loading configuration from .paraspec.json, paraspec.config.json,
//     .paraspecrc, .paraspec.yaml or .paraspec.yml
//   - Default configuration values
//   - Merging explicit overrides on top of a loaded file
package config
