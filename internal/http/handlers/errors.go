// Package handlers implements the HTTP endpoints: the webhook ingress plus
// uniform JSON error envelopes. Error codes are stable, lowercase snake_case
// strings that clients and alerting can branch on.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
)
