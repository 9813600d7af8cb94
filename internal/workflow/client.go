// Package workflow implements the outbound integration with the external
// workflow engine (an n8n-style pipeline): when a manager answers a ticket,
// the answer payload is POSTed to the engine, which relays it to the
// originating client. The call is a single best-effort attempt; the caller
// logs and swallows failures, since the answer is already committed.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aiflownow/support-bot/internal/domain"
)

// Client posts answer events to the workflow engine. A nil Client, or one
// with an empty BaseURL, is a no-op — the integration is optional.
type Client struct {
	// BaseURL is the engine's webhook base, without a trailing slash.
	BaseURL string
	// APIKey, when non-empty, is sent as a bearer token.
	APIKey string
	// HTTPClient is the transport; a default with a timeout is used when nil.
	HTTPClient *http.Client
}

// NewClient constructs a Client. An empty baseURL yields a disabled client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// answerPayload is the wire format of the manager-answer callback.
type answerPayload struct {
	Action         string `json:"action"`
	ChatID         int64  `json:"chat_id"`
	Answer         string `json:"answer"`
	TicketID       string `json:"ticket_id"`
	AnsweredAt     string `json:"answered_at"`
	ManagerID      int64  `json:"manager_id"`
	ClientUsername string `json:"client_username"`
}

// NotifyAnswer posts the answered ticket to <base>/manager-answer. The
// ticket id on the wire is the external id when the ticket came from the
// engine, otherwise the numeric id, so the engine can correlate either way.
// Transport errors and non-2xx statuses are returned to the caller.
func (c *Client) NotifyAnswer(ctx context.Context, t *domain.Ticket) error {
	if c == nil || c.BaseURL == "" {
		return nil
	}

	p := answerPayload{
		Action:         "manager_answer",
		ChatID:         t.ClientChatID,
		Answer:         deref(t.Answer),
		TicketID:       strconv.FormatInt(t.ID, 10),
		ManagerID:      derefInt(t.ManagerChatID),
		ClientUsername: t.ClientNickname,
	}
	if t.ExternalID != nil && *t.ExternalID != "" {
		p.TicketID = *t.ExternalID
	}
	if t.AnsweredAt != nil {
		p.AnsweredAt = t.AnsweredAt.Format(time.RFC3339)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal answer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/manager-answer", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("workflow engine returned status %d", resp.StatusCode)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
