package solace

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder         Embedder
	queryInstruction string

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	keyPrefix        string

	topK                int
	threshold           *float64
	candidateMultiplier int
	topicBoost          float64

	cacheTTL        time.Duration
	cacheMaxEntries int

	chunkSize    int
	chunkOverlap int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryInstruction prefixes every retrieval query before embedding,
// e.g. "query: " for E5-style models. Indexed chunks are not prefixed.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithVectorDimensions sets the index vector dimension. Defaults to 384.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithKeyPrefix namespaces chunk keys and the index name. Defaults to "solace:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTopK sets how many documents Retrieve returns at most. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithThreshold sets the minimum store similarity for candidates, in [0, 1].
// Default: 0.4.
func WithThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = &t
	})
}

// WithCandidateMultiplier sets how many candidates per result are fetched
// before re-ranking. Default: 3.
func WithCandidateMultiplier(m int) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidateMultiplier = m
	})
}

// WithTopicBoost sets the score bonus for candidates matching the query topic.
// Must be in (0, 0.5]. Default: 0.15.
func WithTopicBoost(boost float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.topicBoost = boost
	})
}

// WithQueryCache bounds the retrieval cache. Zero values mean no expiry and
// no size limit (the default).
func WithQueryCache(ttl time.Duration, maxEntries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
		c.cacheMaxEntries = maxEntries
	})
}

// WithChunking sets chunk size and overlap, in approximate tokens, for IndexText.
// Defaults: 500 and 50.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations and
// item counts) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		vectorDimensions: 384,
		keyPrefix:        "solace:",
		chunkSize:        500,
		chunkOverlap:     50,
	}
}
