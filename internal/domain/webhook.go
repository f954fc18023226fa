// WhatsApp Cloud API webhook payload types and the normalized inbound record
// the pipeline works with. The wire types mirror the Graph API message-event
// JSON; only the fields the pipeline reads are declared.
package domain

import "encoding/json"

// WebhookPayload is the top-level webhook delivery from the Graph API.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one business-account entry.
type WebhookEntry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps a single change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the message data of a change.
type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         PhoneMetadata    `json:"metadata"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []WebhookMessage `json:"messages,omitempty"`
}

// PhoneMetadata describes the receiving phone number.
type PhoneMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is a WhatsApp contact attached to a delivery.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile carries the sender display name.
type ContactProfile struct {
	Name string `json:"name"`
}

// WebhookMessage is one incoming message inside a delivery.
type WebhookMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *TextContent  `json:"text,omitempty"`
	Audio     *AudioContent `json:"audio,omitempty"`
}

// TextContent holds a text message body.
type TextContent struct {
	Body string `json:"body"`
}

// AudioContent holds a voice-note media reference.
type AudioContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Voice    bool   `json:"voice"`
}

// Message type discriminants used by the pipeline.
const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
)

// InboundMessage is the normalized view of one webhook delivery. It lives for
// the duration of a single request and is never persisted as-is; Raw retains
// the provider message for forward compatibility.
type InboundMessage struct {
	MessageID  string          `json:"message_id,omitempty"`
	SenderID   string          `json:"sender_wa_id"`
	SenderName string          `json:"sender_name"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Type       string          `json:"type,omitempty"`
	Text       string          `json:"text,omitempty"`
	AudioID    string          `json:"audio_id,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// IsText reports whether the message carries a usable text body.
func (m *InboundMessage) IsText() bool { return m != nil && m.Text != "" }

// IsAudio reports whether the message carries a voice-note media reference.
func (m *InboundMessage) IsAudio() bool { return m != nil && m.AudioID != "" }
