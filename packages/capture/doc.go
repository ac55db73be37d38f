// Package capture stores values from a step's outcome into variables.
//
// A capture maps a variable name to a subject expression, resolved the same
// way assertion subjects are:
//
//	capture:
//	  userID: body.data.id
//	  etag: header ETag
//
// Captured values are visible to every later test of the same file.
package capture
