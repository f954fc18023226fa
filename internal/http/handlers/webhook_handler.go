// Webhook HTTP handlers.
//
// This file exposes the WhatsApp Cloud API webhook endpoints:
//   - GET  /webhook   (subscription verification handshake)
//   - POST /webhook   (inbound message delivery)
//
// Handlers are transport-thin: the GET handler implements Meta's hub.*
// challenge exchange, and the POST handler reads the raw payload and
// delegates to the message pipeline. The POST handler always acknowledges
// accepted deliveries with 200 so Meta does not retry messages that were
// processed but produced a non-fatal outcome (duplicates, unsupported
// message types).
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/http/middleware"
	"github.com/aurawell/go-coach-backend/internal/whatsapp"
)

//
// Service contracts (context-aware)
//

// MessagePipeline processes a raw webhook delivery end to end.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessagePipeline interface {
	// Process extracts the inbound message, runs transcription and reply
	// generation, and dispatches the response. It returns a short status
	// string describing the outcome.
	Process(ctx context.Context, body []byte) (string, error)
}

// TemplateSender dispatches pre-approved template messages to a recipient.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to, name, lang string) (whatsapp.SendResponse, error)
}

// HistoryService exposes paginated read access to stored conversations.
type HistoryService interface {
	// HistoryPage returns a page of entries for a sender and the total count.
	HistoryPage(ctx context.Context, senderID string, page, pageSize int) ([]domain.Entry, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for webhooks, onboarding, and history.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	pipeline MessagePipeline
	sender   TemplateSender
	history  HistoryService

	verifyToken  string
	welcomeTmpl  string
	templateLang string
}

// New constructs a Handlers instance bound to the given services.
//
// verifyToken is the shared secret Meta echoes during the GET handshake;
// welcomeTmpl and templateLang configure the onboarding template message.
func New(pipeline MessagePipeline, sender TemplateSender, history HistoryService, verifyToken, welcomeTmpl, templateLang string) *Handlers {
	return &Handlers{
		pipeline:     pipeline,
		sender:       sender,
		history:      history,
		verifyToken:  verifyToken,
		welcomeTmpl:  welcomeTmpl,
		templateLang: templateLang,
	}
}

// maxWebhookBody caps how much of a webhook delivery is read. Cloud API
// payloads are small; anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// VerifyWebhook handles the GET side of the Cloud API webhook handshake.
//
// Meta sends hub.mode=subscribe, hub.verify_token, and hub.challenge as
// query parameters. When the mode is "subscribe" and the token matches, the
// raw challenge string is echoed back with 200 so the subscription
// activates. Any other combination is rejected with 403.
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		middleware.LoggerFrom(c).Info().Msg("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	fail(c, http.StatusForbidden, ErrCodeForbidden, "webhook verification failed")
}

// ReceiveWebhook handles POST deliveries from the Cloud API.
//
// The raw body is handed to the message pipeline; its status string is
// returned in the response so operators can see the outcome in provider
// logs. Pipeline errors (provider send failures, media download failures)
// surface as 500 so Meta retries the delivery.
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unable to read request body")
		return
	}

	status, err := h.pipeline.Process(c.Request.Context(), body)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Str("status", status).Msg("webhook processing failed")
		fail(c, http.StatusInternalServerError, ErrCodeWebhookFailed, "failed to process webhook")
		return
	}

	ok(c, http.StatusOK, gin.H{"status": status})
}
