// Package services – ReplyService
//
// This file implements the LLM responder. GenerateReply builds a role-tagged
// transcript from the sender's recent history and asks the chat model for the
// next coaching message; ClassifyIntent runs a second, independent completion
// that looks for an actionable reminder or goal in the same transcript.
//
// Failure policy: the user must always receive a reply, so a failed
// completion is replaced by a canned fallback rather than surfaced. Intent
// classification likewise never blocks the reply path; any failure is an
// empty intent.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the sender identifier and the outcome.
package services

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/observability"
	"github.com/aurawell/go-coach-backend/internal/openai"
	"github.com/aurawell/go-coach-backend/internal/repo"
)

// AssistantName is the persona the coach speaks as; assistant turns are
// logged under this name.
const AssistantName = "Aura"

// personaPrompt is the fixed system prompt for reply generation. It pins the
// coaching persona, forbids medical advice, and stops the model from
// prefixing its own name to replies.
const personaPrompt = "You are Aura, a personalized, empathetic, WhatsApp-based wellness coach. " +
	"Your mission is to guide users toward sustainable health habits through tailored micro-actions, " +
	"delivered as concise, engaging WhatsApp messages. Your tone is warm, supportive, and never clinical, " +
	"adapting to the user's personality archetype. You celebrate small wins, offer gentle support for " +
	"setbacks, and NEVER provide medical advice. Your goal is to foster positive, achievable micro-habits " +
	"that align with the user's health goals. Also, don't add words like 'Aura:' in the beginning of your responses."

// intentPrompt is the system prompt for the intent classifier. The model must
// emit bare parsable JSON, not markdown.
const intentPrompt = "You have been given a chat history between an agent and a customer. " +
	"You have to determine whether the user wants to create a task (either a reminder or a goal) or not. " +
	"return a parsable json (not markdown, it must be parsable) with this structure " +
	"{'type': <'reminder' / 'goal'>, 'content':<action content of task>} if there's no task, return empty json {}"

// fallbackReplies is the fixed pool drawn from when the completion call
// fails. The user always gets some reply.
var fallbackReplies = []string{
	"Thanks for sharing! How are you feeling today?",
	"That's great to hear! Keep up the good work with your wellness journey.",
	"I understand. Remember, every small step counts towards better health.",
	"How can I help you with your wellness goals today?",
	"That sounds like progress! What would you like to focus on next?",
}

// defaultReply is used when the model answers with empty content.
const defaultReply = "I'm here to help with your wellness journey!"

// taskTools advertises the reminder/goal creation functions to the model.
// Returned tool calls are accepted but not acted on: task persistence is a
// reserved extension point, and a detected intent is only logged.
var taskTools = []openai.Tool{
	{
		Type: "function",
		Function: openai.ToolFunction{
			Name:        "create_reminder",
			Description: "create reminder for user (to be scheduled daily, or multiple times a day)",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"content": {"type": "string", "description": "Reminder content (e.g, 'Take 10k steps')"}
				},
				"additionalProperties": false,
				"required": ["content"]
			}`),
		},
	},
	{
		Type: "function",
		Function: openai.ToolFunction{
			Name:        "create_goal",
			Description: "create goal for user (to be completed)",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"content": {"type": "string", "description": "goal content (e.g, 'run 10k')"}
				},
				"additionalProperties": false,
				"required": ["content"]
			}`),
		},
	},
}

// ChatModel is the completion surface of the LLM provider.
type ChatModel interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
}

// ReplyService generates coaching replies and classifies intents from
// per-sender conversation history.
type ReplyService struct {
	DB  *gorm.DB
	LLM ChatModel

	// HistoryWindow caps how many recent entries feed the model.
	HistoryWindow int

	// pick overrides fallback selection in tests; nil means math/rand.
	pick func(n int) int
}

// GenerateReply returns the assistant's next message for a sender together
// with the history slice it was generated from. The history is the sender's
// most recent HistoryWindow entries in chronological order. Any failure
// (transport, non-2xx, empty choice set) degrades to a canned fallback with
// the same history slice; this method never returns an error.
func (s *ReplyService) GenerateReply(ctx context.Context, senderID string) (string, []domain.Entry) {
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "GenerateReply",
		trace.WithAttributes(attribute.String("sender.id", senderID)),
	)
	defer span.End()

	window := s.HistoryWindow
	if window <= 0 {
		window = 20
	}

	history, err := repo.ListRecentEntries(s.DB.WithContext(ctx), senderID, window)
	if err != nil {
		log.Error().Err(err).Str("sender", senderID).Msg("failed to load history")
		history = nil
	}

	transcript := buildTranscript(history)
	if transcript == "" {
		transcript = "Hello"
	}

	resp, err := s.LLM.ChatCompletion(ctx, openai.ChatRequest{
		Messages: []openai.Message{
			{Role: "system", Content: personaPrompt},
			{Role: "user", Content: transcript},
		},
		Tools:       taskTools,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		log.Error().Err(err).Str("sender", senderID).Msg("chat completion failed, using fallback reply")
		observability.FallbackReplies.Inc()
		span.SetAttributes(attribute.Bool("reply.fallback", true))
		return fallbackReplies[s.pickIndex(len(fallbackReplies))], history
	}

	// Tool calls are advertised but not executed; surface them in the logs
	// so the extension point stays visible.
	if len(resp.Choices) > 0 {
		for _, tc := range resp.Choices[0].Message.ToolCalls {
			log.Info().
				Str("sender", senderID).
				Str("tool", tc.Function.Name).
				Str("arguments", tc.Function.Arguments).
				Msg("model requested task creation, not yet persisted")
		}
	}

	reply := resp.Content()
	if reply == "" {
		reply = defaultReply
	}
	return reply, history
}

// ClassifyIntent runs the intent classifier over a role-tagged transcript and
// returns the detected reminder/goal, or an empty intent. It never returns an
// error: classification must not block the reply path, so any failure or
// unparsable output is treated as "no actionable task".
func (s *ReplyService) ClassifyIntent(ctx context.Context, transcript string) domain.Intent {
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "ClassifyIntent")
	defer span.End()

	resp, err := s.LLM.ChatCompletion(ctx, openai.ChatRequest{
		Messages: []openai.Message{
			{Role: "system", Content: intentPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed")
		return domain.Intent{}
	}

	content := strings.TrimSpace(stripCodeFence(resp.Content()))
	if content == "" {
		return domain.Intent{}
	}

	var intent domain.Intent
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		log.Warn().Str("content", content).Msg("intent classifier returned unparsable json")
		return domain.Intent{}
	}
	switch intent.Type {
	case domain.IntentReminder, domain.IntentGoal, "":
	default:
		// Unknown kinds are dropped rather than propagated.
		return domain.Intent{}
	}
	if !intent.None() {
		span.SetAttributes(attribute.String("intent.type", intent.Type))
	}
	return intent
}

func (s *ReplyService) pickIndex(n int) int {
	if s.pick != nil {
		return s.pick(n)
	}
	return rand.Intn(n)
}

// buildTranscript renders history entries as a role-tagged transcript, one
// line per turn, in the order given.
func buildTranscript(entries []domain.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		speaker := AssistantName
		if e.Role == domain.RoleUser {
			speaker = "You"
		}
		lines = append(lines, speaker+": "+e.Content)
	}
	return strings.Join(lines, "\n")
}

// RoleTranscript renders history with raw role tags ("user:", "assistant:"),
// the shape the intent classifier was prompted with.
func RoleTranscript(entries []domain.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Role+": "+e.Content)
	}
	return strings.Join(lines, "\n")
}

// stripCodeFence removes a surrounding markdown code fence if the model
// ignored the "not markdown" instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
