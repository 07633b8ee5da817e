package chi

import "github.com/kailas-cloud/solace/internal/domain"

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeUnauthorized      = "unauthorized"
	codeNotFound          = "not_found"
	codeMethodNotAllowed  = "method_not_allowed"
	codeRateLimited       = "rate_limited"
	codeConfiguration     = "configuration_error"
	codeEmbeddingProvider = "embedding_provider_error"
	codeRetrievalFailed   = "retrieval_failed"
	codeLLMFailed         = "llm_failed"
	codeInternal          = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HistoryMessage is one prior conversation entry.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message             string           `json:"message" validate:"required,max=1000"`
	ConversationHistory []HistoryMessage `json:"conversation_history" validate:"max=10"`
}

// ChatResponse is the POST /chat reply.
type ChatResponse struct {
	Response     string  `json:"response"`
	SafetyStatus string  `json:"safety_status"`
	LatencyMS    float64 `json:"latency_ms"`
	SourcesUsed  int     `json:"sources_used"`
	RequestID    string  `json:"request_id"`
}

// HealthResponse is the GET /health reply.
type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// StatsResponse is the GET /stats reply.
type StatsResponse struct {
	TotalRequests int64   `json:"total_requests"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	SafetyBlocks  int64   `json:"safety_blocks"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RootResponse is the GET / reply.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

func historyToTurns(h []HistoryMessage) []domain.Turn {
	if len(h) == 0 {
		return nil
	}
	turns := make([]domain.Turn, len(h))
	for i, m := range h {
		turns[i] = domain.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}
