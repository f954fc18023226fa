// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case strings that give clients a stable,
// machine-readable taxonomy alongside human-readable messages. Generic codes
// mirror common HTTP status semantics; domain-specific codes cover failures
// that a status alone cannot convey (e.g. the provider rejecting an outbound
// message). Handlers pick the most specific matching code and pass it to
// fail() together with the HTTP status.
package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeForbidden   = "forbidden"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeWebhookFailed    = "webhook_failed"
	ErrCodeSendFailed       = "send_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
