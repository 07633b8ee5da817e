package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	chatuc "github.com/kailas-cloud/solace/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/solace/internal/usecase/health"
)

type mockChat struct {
	chatFn func(ctx context.Context, req chatuc.Request) (chatuc.Response, error)
	reqs   []chatuc.Request
}

func (m *mockChat) Chat(ctx context.Context, req chatuc.Request) (chatuc.Response, error) {
	m.reqs = append(m.reqs, req)
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return chatuc.Response{
		Response:     "take a slow breath",
		SafetyStatus: chatuc.StatusPass,
		LatencyMS:    12.5,
		SourcesUsed:  2,
		RequestID:    req.RequestID,
	}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockStats struct {
	snap chatuc.StatsSnapshot
}

func (m *mockStats) Snapshot() chatuc.StatsSnapshot { return m.snap }

func newTestServer(chat *mockChat, opts Options) http.Handler {
	if opts.Version == "" {
		opts.Version = "test"
	}
	health := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckOK},
	}}
	return NewServer(chat, health, &mockStats{}, opts, zap.NewNop()).Routes()
}

func postChat(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/chat", &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}
