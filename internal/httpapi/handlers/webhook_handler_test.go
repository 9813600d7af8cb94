package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/services"
)

// ---- stubs ----

type stubIntake struct {
	submit func(ctx context.Context, in services.Intake) (*domain.Ticket, error)
	gotIn  *services.Intake
}

func (s *stubIntake) Submit(ctx context.Context, in services.Intake) (*domain.Ticket, error) {
	s.gotIn = &in
	if s.submit != nil {
		return s.submit(ctx, in)
	}
	return &domain.Ticket{ID: 7, ClientChatID: in.ChatID, Question: in.Question}, nil
}

type stubAnnouncer struct {
	notified chan int64
}

func (s *stubAnnouncer) NotifyNewTicket(ctx context.Context, t *domain.Ticket) {
	s.notified <- t.ID
}

func newWebhookRouter(intake TicketIntake, announcer TicketAnnouncer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(intake, announcer)
	r.POST("/webhook/ticket", h.CreateWebhookTicket)
	return r
}

func postTicket(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ticket", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestCreateWebhookTicket_CreatesAndNotifies(t *testing.T) {
	intake := &stubIntake{}
	announcer := &stubAnnouncer{notified: make(chan int64, 1)}
	r := newWebhookRouter(intake, announcer)

	w := postTicket(t, r, `{"chat_id": 42, "username": "sam", "question": "price?", "ai_confident": false, "external_id": "ext-1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp WebhookTicketResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "success" || resp.TicketID != 7 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Message != "Ticket created and managers notified" {
		t.Fatalf("message = %q", resp.Message)
	}

	if intake.gotIn == nil {
		t.Fatalf("service not called")
	}
	in := *intake.gotIn
	if in.ChatID != 42 || in.Username != "sam" || in.Question != "price?" {
		t.Fatalf("intake = %+v", in)
	}
	if in.Source != domain.SourceWorkflow || in.ExternalID != "ext-1" {
		t.Fatalf("provenance = %+v", in)
	}
	if !in.AIProcessed || in.AIConfident {
		t.Fatalf("ai flags = %+v", in)
	}

	select {
	case id := <-announcer.notified:
		if id != 7 {
			t.Fatalf("notified ticket id = %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out never fired")
	}
}

func TestCreateWebhookTicket_ChatIDAsString(t *testing.T) {
	intake := &stubIntake{}
	r := newWebhookRouter(intake, nil)

	w := postTicket(t, r, `{"chat_id": "123456", "question": "hi", "ai_confident": false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if intake.gotIn.ChatID != 123456 {
		t.Fatalf("chat id = %d", intake.gotIn.ChatID)
	}
}

func TestCreateWebhookTicket_AIConfidentSkipsTicket(t *testing.T) {
	intake := &stubIntake{submit: func(ctx context.Context, in services.Intake) (*domain.Ticket, error) {
		t.Fatalf("no ticket must be created when the AI is confident")
		return nil, nil
	}}
	r := newWebhookRouter(intake, nil)

	w := postTicket(t, r, `{"chat_id": 42, "question": "hi", "ai_confident": true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp WebhookTicketResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "success" || resp.TicketID != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Message != "AI handled the question, no ticket created" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestCreateWebhookTicket_MissingFieldsNamed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"no chat_id", `{"question": "hi", "ai_confident": false}`, "chat_id is required"},
		{"no question", `{"chat_id": 1, "ai_confident": false}`, "question is required"},
		{"no ai_confident", `{"chat_id": 1, "question": "hi"}`, "ai_confident is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newWebhookRouter(&stubIntake{}, nil)
			w := postTicket(t, r, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != ErrCodeBadRequest || er.Message != tc.wantMsg {
				t.Fatalf("envelope = %+v", er)
			}
		})
	}
}

func TestCreateWebhookTicket_NonNumericChatID(t *testing.T) {
	r := newWebhookRouter(&stubIntake{}, nil)
	w := postTicket(t, r, `{"chat_id": "abc", "question": "hi", "ai_confident": false}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateWebhookTicket_ValidationAndInternalErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"too_long", services.ErrQuestionTooLong, http.StatusBadRequest, ErrCodeBadRequest},
		{"blank", services.ErrQuestionEmpty, http.StatusBadRequest, ErrCodeBadRequest},
		{"internal", errors.New("db down"), http.StatusInternalServerError, ErrCodeCreateFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			intake := &stubIntake{submit: func(ctx context.Context, in services.Intake) (*domain.Ticket, error) {
				return nil, tc.err
			}}
			r := newWebhookRouter(intake, nil)
			w := postTicket(t, r, `{"chat_id": 1, "question": "q", "ai_confident": false}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.wantCode {
				t.Fatalf("code = %q", er.Code)
			}
		})
	}
}

func TestFlexInt64_Unmarshal(t *testing.T) {
	var v struct {
		ID FlexInt64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id": -100500}`), &v); err != nil || v.ID.Value != -100500 || !v.ID.Set {
		t.Fatalf("number: %+v err=%v", v.ID, err)
	}
	v.ID = FlexInt64{}
	if err := json.Unmarshal([]byte(`{"id": "77"}`), &v); err != nil || v.ID.Value != 77 || !v.ID.Set {
		t.Fatalf("string: %+v err=%v", v.ID, err)
	}
	v.ID = FlexInt64{}
	if err := json.Unmarshal([]byte(`{"id": null}`), &v); err != nil || v.ID.Set {
		t.Fatalf("null must stay unset: %+v err=%v", v.ID, err)
	}
	v.ID = FlexInt64{}
	if err := json.Unmarshal([]byte(`{"id": "x1"}`), &v); err == nil {
		t.Fatalf("non-numeric string must error")
	}
}
