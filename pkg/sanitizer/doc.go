// Package sanitizer normalizes free-text input before validation and
// storage.
//
// All functions are idempotent - applying them multiple times produces the
// same result. Invalid input is handled gracefully, typically by returning
// an empty string rather than an error.
//
// Normalization includes:
//   - Control characters: stripped entirely
//   - Whitespace: runs collapsed to a single space, ends trimmed
package sanitizer
