// Package assertions evaluates the expectations of suite steps.
//
// An expectation value is either compared for equality or, when it is a map
// of operator names, checked with each operator:
//
//	status: 200
//	json:
//	  users.0.id: {gt: 0}
//	  users: {length: 3, each: {type: object}}
//
// Subjects are resolved through a Source: ResponseSource for HTTP responses
// (status, duration, header <Name>, body, body.<path>) and Values for exec and
// sql outcomes. JSON paths use gjson syntax; bracket indexes are accepted.
package assertions
