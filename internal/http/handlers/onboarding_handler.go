// Onboarding HTTP handler.
//
// Exposes POST /onboarding/{to_number}, which dispatches the pre-approved
// welcome template to a phone number. Template messages are the only way to
// open a conversation with a user who has not messaged the business within
// the 24-hour customer service window, so this endpoint is how new users are
// greeted.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/aurawell/go-coach-backend/internal/http/middleware"
)

// OnboardResponse reports the provider's verdict for a template send.
type OnboardResponse struct {
	// Status is the HTTP status code the provider returned.
	Status int `json:"status"`
	// MessageID is the provider-assigned id of the dispatched message, when present.
	MessageID string `json:"message_id,omitempty"`
}

// Onboard sends the welcome template to the phone number in the path.
//
// The provider's own status code is proxied back so callers can distinguish
// rejected numbers (4xx from the Graph API) from transport failures (502).
func (h *Handlers) Onboard(c *gin.Context) {
	to := strings.TrimSpace(c.Param("to_number"))
	if to == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient phone number is required")
		return
	}

	// Optional ?lang= override; must be a well-formed BCP 47 tag the template
	// has been approved for.
	lang := h.templateLang
	if q := strings.TrimSpace(c.Query("lang")); q != "" {
		tag, err := language.Parse(q)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid language tag")
			return
		}
		lang = tag.String()
	}

	resp, err := h.sender.SendTemplate(c.Request.Context(), to, h.welcomeTmpl, lang)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Str("to", to).Msg("onboarding template send failed")
		// A provider rejection carries its own status; proxy it so callers can
		// tell a bad number from a transport failure.
		if resp.StatusCode >= 400 {
			fail(c, resp.StatusCode, ErrCodeSendFailed, "provider rejected welcome message")
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "failed to send welcome message")
		return
	}

	out := OnboardResponse{Status: resp.StatusCode}
	if len(resp.Messages) > 0 {
		out.MessageID = resp.Messages[0].ID
	}
	ok(c, resp.StatusCode, out)
}
