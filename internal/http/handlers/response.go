// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: a structured error envelope with stable machine-readable codes,
// and small helpers for writing success responses. Every failure path goes
// through fail() so 5xx responses are logged with request context and the
// envelope shape stays uniform.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "too_many_requests",
//	  "message": "rate limit exceeded"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurawell/go-coach-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// RequestID echoes the X-Request-ID header so client errors can be
// correlated with server logs. Code is one of the constants in errors.go.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the request with a structured error envelope.
//
// Server errors (>=500) are additionally logged through the request-scoped
// logger installed by the logging middleware.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), used by router-level fallbacks
// (NoRoute, NoMethod, rate limiting) to keep error envelopes consistent.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response with the given status and body.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
