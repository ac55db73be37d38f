// Package builtin provides the functions available inside {{...}} templates
// of suite files.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(), date(layout): current UTC time
//   - timestamp(), timestampMs(): Unix time
//   - random(min, max), randomString(length)
//   - base64(value), base64Decode(value), sha256(value), urlEncode(value)
//   - env(name, default): environment variable with an optional fallback
package builtin
