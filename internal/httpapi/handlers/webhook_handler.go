// Webhook intake endpoint.
//
// POST /webhook/ticket receives classified questions from the external
// workflow engine. The engine runs an AI answerer in front of this service:
// when the AI is confident it already replied to the client, the webhook is
// informational only and no ticket is created. Otherwise the question becomes
// a pending ticket and managers are alerted.
//
// The handler is transport-thin: it validates and normalizes the payload,
// delegates to TicketService, and fires the manager fan-out without blocking
// the response.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/httpapi/middleware"
	"github.com/aiflownow/support-bot/internal/services"
)

// TicketIntake is the slice of TicketService the webhook needs.
type TicketIntake interface {
	Submit(ctx context.Context, in services.Intake) (*domain.Ticket, error)
}

// TicketAnnouncer fans a new-ticket alert out to managers.
type TicketAnnouncer interface {
	NotifyNewTicket(ctx context.Context, t *domain.Ticket)
}

// Handlers bundles the webhook endpoints and their dependencies.
type Handlers struct {
	tickets   TicketIntake
	announcer TicketAnnouncer
}

// New constructs the handler set. announcer may be nil when manager alerts
// are disabled.
func New(tickets TicketIntake, announcer TicketAnnouncer) *Handlers {
	return &Handlers{tickets: tickets, announcer: announcer}
}

// FlexInt64 is an int64 that unmarshals from either a JSON number or a
// numeric JSON string. Workflow engines are loose about number typing, so the
// wire contract accepts both 123 and "123".
type FlexInt64 struct {
	Value int64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("not a numeric string: %q", s)
		}
		f.Value, f.Set = v, true
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value, f.Set = v, true
	return nil
}

// WebhookTicketRequest is the JSON payload posted by the workflow engine.
type WebhookTicketRequest struct {
	// ChatID identifies the client chat; number or numeric string.
	ChatID FlexInt64 `json:"chat_id"`
	// Username is the client's handle when known.
	Username string `json:"username"`
	// Question is the client's text, required.
	Question string `json:"question"`
	// AIConfident reports whether the upstream AI already answered; required.
	AIConfident *bool `json:"ai_confident"`
	// ExternalID is the engine's own correlation id for this question.
	ExternalID string `json:"external_id"`
}

// WebhookTicketResponse is the success envelope for the intake endpoint.
type WebhookTicketResponse struct {
	Status   string `json:"status"`
	TicketID int64  `json:"ticket_id,omitempty"`
	Message  string `json:"message"`
}

// CreateWebhookTicket handles POST /webhook/ticket.
//
// Validation reports the first missing required field by name so the engine
// operator can fix the pipeline mapping without guessing. ai_confident=true
// short-circuits with success and no ticket.
func (h *Handlers) CreateWebhookTicket(c *gin.Context) {
	ctx := c.Request.Context()

	var req WebhookTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if !req.ChatID.Set {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id is required")
		return
	}
	if req.Question == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question is required")
		return
	}
	if req.AIConfident == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ai_confident is required")
		return
	}

	if *req.AIConfident {
		middleware.LoggerFrom(c).Info().
			Int64("chat_id", req.ChatID.Value).
			Str("external_id", req.ExternalID).
			Msg("AI handled the question, skipping ticket")
		ok(c, http.StatusOK, WebhookTicketResponse{
			Status:  "success",
			Message: "AI handled the question, no ticket created",
		})
		return
	}

	t, err := h.tickets.Submit(ctx, services.Intake{
		ChatID:      req.ChatID.Value,
		Username:    req.Username,
		Question:    req.Question,
		Source:      domain.SourceWorkflow,
		ExternalID:  req.ExternalID,
		AIProcessed: true,
		AIConfident: false,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestionEmpty):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question must not be blank")
		case errors.Is(err, services.ErrQuestionTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create ticket")
		}
		return
	}

	// Fan-out must not hold the webhook response open; the engine only needs
	// the ticket id. Detached context because the request context dies with
	// the response.
	if h.announcer != nil {
		go h.announcer.NotifyNewTicket(context.WithoutCancel(ctx), t)
	}

	ok(c, http.StatusOK, WebhookTicketResponse{
		Status:   "success",
		TicketID: t.ID,
		Message:  "Ticket created and managers notified",
	})
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
