package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Chat flow metrics.
var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by safety status",
		},
		[]string{"safety_status"}, // pass / warning / blocked
	)

	ChatSafetyBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_safety_blocks_total",
			Help:      "Chat messages flagged with medium or high risk",
		},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat completion attempts",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds, including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)
)

var chatOnce sync.Once

// RegisterChatMetrics registers chat and LLM metrics with the default registry.
func RegisterChatMetrics() {
	chatOnce.Do(func() {
		prometheus.MustRegister(ChatRequestsTotal, ChatSafetyBlocksTotal, LLMRequestsTotal, LLMRequestDuration)
	})
}
