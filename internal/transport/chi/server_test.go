package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/domain"
	chatuc "github.com/kailas-cloud/solace/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/solace/internal/usecase/health"
)

func TestChat_OK(t *testing.T) {
	chat := &mockChat{}
	h := newTestServer(chat, Options{})

	rr := postChat(t, h, ChatRequest{
		Message: "  I feel stressed  ",
		ConversationHistory: []HistoryMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "take a slow breath" || resp.SourcesUsed != 2 || resp.SafetyStatus != "pass" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.RequestID == "" || resp.RequestID != rr.Header().Get("X-Request-ID") {
		t.Errorf("request id %q does not match header %q", resp.RequestID, rr.Header().Get("X-Request-ID"))
	}

	got := chat.reqs[0]
	if got.Message != "I feel stressed" {
		t.Errorf("message not trimmed: %q", got.Message)
	}
	if len(got.History) != 2 || got.History[1].Role != domain.RoleAssistant {
		t.Errorf("history = %+v", got.History)
	}
}

func TestChat_KeepsIncomingRequestID(t *testing.T) {
	h := newTestServer(&mockChat{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestChat_Validation(t *testing.T) {
	tooMuchHistory := make([]HistoryMessage, 11)
	for i := range tooMuchHistory {
		tooMuchHistory[i] = HistoryMessage{Role: "user", Content: "x"}
	}

	tests := []struct {
		name string
		body any
		code string
	}{
		{"invalid json", `{"message":`, codeBadRequest},
		{"missing message", map[string]any{}, codeValidationFailed},
		{"blank message", ChatRequest{Message: "   "}, codeValidationFailed},
		{"too long", ChatRequest{Message: strings.Repeat("a", 1001)}, codeValidationFailed},
		{"history too long", ChatRequest{Message: "hi", ConversationHistory: tooMuchHistory}, codeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{}
			rr := postChat(t, newTestServer(chat, Options{}), tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
			if len(chat.reqs) != 0 {
				t.Error("invalid request reached chat service")
			}
		})
	}
}

func TestChat_MaxLengthCountsRunes(t *testing.T) {
	rr := postChat(t, newTestServer(&mockChat{}, Options{}), ChatRequest{Message: strings.Repeat("ü", 1000)})
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"retrieval", fmt.Errorf("x: %w", domain.ErrRetrievalFailed), http.StatusBadGateway, codeRetrievalFailed},
		{"embedding", fmt.Errorf("x: %w: %w", domain.ErrRetrievalFailed, domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, codeEmbeddingProvider},
		{"configuration", fmt.Errorf("x: %w", domain.ErrConfiguration), http.StatusServiceUnavailable, codeConfiguration},
		{"upstream rate limit", fmt.Errorf("x: %w: %w", domain.ErrEmbeddingProviderError, domain.ErrRateLimited),
			http.StatusTooManyRequests, codeRateLimited},
		{"llm", fmt.Errorf("x: %w", domain.ErrLLMFailed), http.StatusBadGateway, codeLLMFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{chatFn: func(context.Context, chatuc.Request) (chatuc.Response, error) {
				return chatuc.Response{}, tt.err
			}}
			rr := postChat(t, newTestServer(chat, Options{}), ChatRequest{Message: "hello"})

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
			if e.RequestID == "" {
				t.Error("error response missing request id")
			}
			if strings.Contains(e.Message, "boom") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestChat_RateLimited(t *testing.T) {
	h := newTestServer(&mockChat{}, Options{RatePerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := postChat(t, h, ChatRequest{Message: "hi"}); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}

	rr := postChat(t, h, ChatRequest{Message: "hi"})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// other endpoints are not limited
	req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
	srr := httptest.NewRecorder()
	h.ServeHTTP(srr, req)
	if srr.Code != http.StatusOK {
		t.Errorf("stats status = %d", srr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			health := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
			}}
			h := NewServer(&mockChat{}, health, &mockStats{},
				Options{Version: "1.2.3", Environment: "staging"}, zap.NewNop()).Routes()

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.status) || resp.Version != "1.2.3" || resp.Environment != "staging" {
				t.Errorf("unexpected body %+v", resp)
			}
			if resp.Checks["database"] != "ok" {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestStats(t *testing.T) {
	stats := &mockStats{snap: chatuc.StatsSnapshot{
		TotalRequests: 7, AvgLatencyMS: 120.5, SafetyBlocks: 1, UptimeSeconds: 60,
	}}
	h := NewServer(&mockChat{}, &mockHealth{}, stats, Options{}, zap.NewNop()).Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))

	var resp StatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := StatsResponse{TotalRequests: 7, AvgLatencyMS: 120.5, SafetyBlocks: 1, UptimeSeconds: 60}
	if resp != want {
		t.Errorf("stats = %+v, want %+v", resp, want)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestServer(&mockChat{}, Options{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != codeNotFound {
		t.Errorf("not found: status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", http.NoBody))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("method not allowed: status %d", rr.Code)
	}
}

func TestAuthProtectsChat(t *testing.T) {
	h := newTestServer(&mockChat{}, Options{APIKeys: []string{"secret"}})

	if rr := postChat(t, h, ChatRequest{Message: "hi"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("health should be exempt, got %d", rr.Code)
	}
}
