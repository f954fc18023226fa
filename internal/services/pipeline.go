// Package services – Pipeline
//
// This file implements the webhook message pipeline, the orchestrated
// sequence behind each POST delivery:
//
//	extract → dedup → audio-or-text resolution → log user turn →
//	generate reply → classify intent → log assistant turn → send text →
//	optional voice reply → scratch cleanup
//
// Short-circuits (missing message ID, duplicate delivery, unsupported type)
// return a neutral status, never an error. Conversation-log writes are
// degrade-and-continue. Send failures and inbound media failures propagate so
// the handler can answer 500 and the provider can redeliver. Scratch files
// are removed on every exit path.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/observability"
	"github.com/aurawell/go-coach-backend/internal/repo"
	"github.com/aurawell/go-coach-backend/internal/whatsapp"
)

// Pipeline statuses returned to the webhook handler and echoed to the
// provider.
const (
	StatusReceived         = "received"
	StatusNoMessageID      = "ignored (no message id)"
	StatusDuplicateMessage = "ignored (duplicate message)"
	StatusNoValidInput     = "ignored (no valid input)"
)

// Messenger is the outbound WhatsApp surface of the pipeline.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (whatsapp.SendResponse, error)
	SendAudio(ctx context.Context, to, mediaID string) (whatsapp.SendResponse, error)
}

// Pipeline drives one webhook delivery end to end.
type Pipeline struct {
	DB            *gorm.DB
	Conversations *ConversationService
	Replies       *ReplyService
	Audio         *AudioService
	Sender        Messenger

	// DedupTTL is how long a processed message ID blocks redeliveries.
	DedupTTL time.Duration
}

// Process handles one raw webhook body and returns the status string to
// acknowledge with. An error return means the delivery genuinely failed and
// the handler should answer 500.
func (p *Pipeline) Process(ctx context.Context, body []byte) (status string, err error) {
	tr := otel.Tracer("services/Pipeline")
	ctx, span := tr.Start(ctx, "Process")
	defer span.End()
	defer func() {
		if status != "" {
			span.SetAttributes(attribute.String("pipeline.status", status))
		}
		observability.MessagesProcessed.WithLabelValues(statusLabel(status, err)).Inc()
	}()

	msg := ExtractInbound(body)
	if msg == nil || msg.MessageID == "" {
		return StatusNoMessageID, nil
	}

	if _, err := repo.MarkProcessed(ctx, p.DB, msg.MessageID, p.DedupTTL); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			log.Info().Str("message_id", msg.MessageID).Msg("duplicate message ignored")
			return StatusDuplicateMessage, nil
		}
		// The dedup store is a best-effort guard; a write failure must not
		// drop the message.
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("dedup store write failed, continuing")
	}

	// Resolve the user's text: transcribe voice notes, take text bodies
	// as-is, drop everything else. The inbound scratch file is cleaned up on
	// every exit path from here on.
	var userText string
	var audioPath string
	defer func() { p.Audio.Cleanup(audioPath) }()

	switch {
	case msg.IsAudio():
		audioPath, err = p.Audio.Download(ctx, msg.AudioID)
		if err != nil {
			return "", err
		}
		t := p.Audio.Transcribe(ctx, audioPath)
		if t.Status != TranscriptionOK {
			log.Warn().
				Str("message_id", msg.MessageID).
				Str("status", string(t.Status)).
				Msg("transcription degraded, continuing with placeholder")
		}
		userText = t.Text
	case msg.IsText():
		userText = msg.Text
	default:
		return StatusNoValidInput, nil
	}

	// Log the user turn. A store failure is logged and the pipeline
	// continues: replying matters more than the record.
	if _, err := p.Conversations.Append(ctx, msg.SenderID, msg.SenderName, domain.RoleUser, userText); err != nil {
		log.Error().Err(err).Str("sender", msg.SenderID).Msg("failed to log user turn")
	}

	reply, history := p.Replies.GenerateReply(ctx, msg.SenderID)

	if intent := p.Replies.ClassifyIntent(ctx, RoleTranscript(history)); !intent.None() {
		// Detected intents are logged only; task persistence is a reserved
		// extension point.
		log.Info().
			Str("sender", msg.SenderID).
			Str("type", intent.Type).
			Str("content", intent.Content).
			Msg("intent detected, not yet persisted")
		observability.IntentsDetected.WithLabelValues(intent.Type).Inc()
	}

	if _, err := p.Conversations.Append(ctx, msg.SenderID, AssistantName, domain.RoleAssistant, reply); err != nil {
		log.Error().Err(err).Str("sender", msg.SenderID).Msg("failed to log assistant turn")
	}

	if _, err := p.Sender.SendText(ctx, msg.SenderID, reply); err != nil {
		return "", err
	}

	// Voice reply: only when the inbound message was itself audio and a
	// speech credential exists. Failures here are logged, never fatal.
	if msg.IsAudio() && p.Audio.VoiceConfigured() {
		p.sendVoiceReply(ctx, msg.SenderID, reply)
	}

	log.Info().Str("sender", msg.SenderID).Str("message_id", msg.MessageID).Msg("reply sent")
	return StatusReceived, nil
}

// sendVoiceReply synthesizes the reply, uploads it, and sends it as an audio
// message. The scratch voice file is removed regardless of outcome.
func (p *Pipeline) sendVoiceReply(ctx context.Context, to, reply string) {
	voicePath, err := p.Audio.Synthesize(ctx, reply)
	if err != nil {
		log.Error().Err(err).Str("sender", to).Msg("voice synthesis failed")
		return
	}
	defer p.Audio.Cleanup(voicePath)

	mediaID, err := p.Audio.Upload(ctx, voicePath)
	if err != nil {
		log.Error().Err(err).Str("sender", to).Msg("voice upload failed")
		return
	}
	if _, err := p.Sender.SendAudio(ctx, to, mediaID); err != nil {
		log.Error().Err(err).Str("sender", to).Msg("voice send failed")
		return
	}
	log.Info().Str("sender", to).Msg("voice reply sent")
}

// statusLabel maps pipeline outcomes onto bounded metric label values.
func statusLabel(status string, err error) string {
	if err != nil {
		return "error"
	}
	switch status {
	case StatusReceived:
		return "received"
	case StatusDuplicateMessage:
		return "duplicate"
	case StatusNoMessageID:
		return "no_message_id"
	case StatusNoValidInput:
		return "no_valid_input"
	default:
		return "other"
	}
}
