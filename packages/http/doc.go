// Package http is the HTTP client behind the http step of a suite.
//
// It wraps the standard library's http package with:
//   - context-bound requests with a default timeout
//   - redirect handling
//   - query, JSON body and auth helpers on Request
//   - fully read responses with case-insensitive header lookup
package http
