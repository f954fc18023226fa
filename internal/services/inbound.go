// Inbound webhook extraction.
//
// The Graph API wraps each message event in several layers of entry/change
// arrays. ExtractInbound flattens the first message of the first change of
// the first entry into a domain.InboundMessage, defaulting missing fields
// defensively. A payload with nothing to process is a nil result, not an
// error: the webhook must acknowledge unusable deliveries rather than make
// the provider retry them.
package services

import (
	"encoding/json"

	"github.com/aurawell/go-coach-backend/internal/domain"
)

// unknownSender is the display-name fallback when the contact profile is
// absent from the delivery.
const unknownSender = "Unknown"

// ExtractInbound parses a raw webhook body into a normalized inbound message.
// It returns nil for malformed or empty payloads and never returns an error.
// Text is populated only for "text" messages and AudioID only for "audio"
// messages; every other type yields a record with neither, which the pipeline
// treats as "no valid input".
func ExtractInbound(body []byte) *domain.InboundMessage {
	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return nil
	}

	value := payload.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return nil
	}
	msg := value.Messages[0]

	name := unknownSender
	if len(value.Contacts) > 0 && value.Contacts[0].Profile.Name != "" {
		name = value.Contacts[0].Profile.Name
	}

	out := &domain.InboundMessage{
		MessageID:  msg.ID,
		SenderID:   msg.From,
		SenderName: name,
		Timestamp:  msg.Timestamp,
		Type:       msg.Type,
	}
	if raw, err := json.Marshal(msg); err == nil {
		out.Raw = raw
	}

	switch msg.Type {
	case domain.MessageTypeText:
		if msg.Text != nil {
			out.Text = msg.Text.Body
		}
	case domain.MessageTypeAudio:
		if msg.Audio != nil {
			out.AudioID = msg.Audio.ID
		}
	}
	return out
}
