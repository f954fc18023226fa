// Package services defines the business logic of the coaching backend: the
// webhook message pipeline and the components it is built from (inbound
// extraction, the conversation log, the audio bridge, and the LLM responder).
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrVoiceNotConfigured is returned when speech synthesis is requested
	// without an OpenAI credential.
	ErrVoiceNotConfigured = errors.New("voice synthesis not configured")
)
