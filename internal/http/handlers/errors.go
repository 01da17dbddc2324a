// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail() helper
// and give clients a stable, machine-readable taxonomy supplementing the
// human-readable message. Codes are lowercase snake_case; generic ones mirror
// common HTTP status semantics, domain-specific ones cover failures a status
// alone cannot convey.
package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeUpstream    = "upstream_error"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeNoneResolved     = "none_resolved"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
