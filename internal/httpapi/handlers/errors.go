// Stable error codes returned in the ErrorResponse envelope. Codes are
// lowercase snake_case; generic ones mirror HTTP status semantics, and
// create_failed marks a business failure status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
