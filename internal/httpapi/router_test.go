package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aiflownow/support-bot/internal/config"
	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/services"
)

type stubIntake struct{}

func (stubIntake) Submit(ctx context.Context, in services.Intake) (*domain.Ticket, error) {
	return &domain.Ticket{ID: 1, ClientChatID: in.ChatID, Question: in.Question}, nil
}

func testConfig() config.Config {
	return config.Config{
		RateRPS:   100,
		RateBurst: 100,
		Workflow:  config.WorkflowConfig{APIKey: ""},
	}
}

func newRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, stubIntake{}, nil, cfg)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(testConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	r := newRouter(testConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != "not_found" {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	r := newRouter(testConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/webhook/ticket", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWebhookBearerEnforcedWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.APIKey = "hook-secret"
	r := newRouter(cfg)

	body := `{"chat_id": 5, "question": "hi", "ai_confident": false}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ticket", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook/ticket", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer hook-secret")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRequestIDOnResponses(t *testing.T) {
	r := newRouter(testConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID on every response")
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	r := newRouter(testConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
