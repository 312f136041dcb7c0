// Package handlers defines the HTTP-layer error codes used across the API.
//
// Codes are lowercase snake_case. Generic codes mirror common HTTP status
// semantics; domain-specific codes cover failures a status alone cannot
// convey (a failed docx conversion, an unreachable formatting upstream).
// Handlers pick the most specific code and pass it to fail() together with
// the status and message.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeConversionFailed = "conversion_failed"
	ErrCodeUploadFailed     = "upload_failed"
	ErrCodeFormatFailed     = "format_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
