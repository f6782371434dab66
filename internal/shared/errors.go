// Package shared holds the error categories and logging setup used across packages.
package shared

import "errors"

// Error categories. Package-level sentinels wrap one of these so callers can
// classify a failure with errors.Is without knowing where it came from.
var (
	// Authentication errors: missing, undecodable, or unrefreshable tokens.
	ErrAuth = errors.New("not authorized")

	// A remote service failed or answered with something unusable.
	ErrUpstream = errors.New("upstream request failed")

	// The requested record or resource does not exist.
	ErrNotFound = errors.New("not found")

	// Persistence layer failures.
	ErrStorage = errors.New("storage failure")

	// Caller supplied a value outside the accepted domain.
	ErrInvalidInput = errors.New("invalid input")
)
