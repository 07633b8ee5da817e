package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
	"github.com/kailas-cloud/solace/internal/metrics"
)

// Config holds retrieval tuning.
type Config struct {
	TopK                int
	Threshold           float64
	CandidateMultiplier int
	TopicBoost          float64
}

// DefaultConfig returns top 3 documents above 0.4 similarity from 9 candidates.
func DefaultConfig() Config {
	return Config{TopK: 3, Threshold: 0.4, CandidateMultiplier: 3, TopicBoost: DefaultTopicBoost}
}

// Validate reports out-of-range tuning as domain.ErrConfiguration.
func (c Config) Validate() error {
	switch {
	case c.TopK < 1:
		return fmt.Errorf("top_k must be >= 1, got %d: %w", c.TopK, domain.ErrConfiguration)
	case c.CandidateMultiplier < 1:
		return fmt.Errorf("candidate_multiplier must be >= 1, got %d: %w", c.CandidateMultiplier, domain.ErrConfiguration)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("threshold must be in [0, 1], got %g: %w", c.Threshold, domain.ErrConfiguration)
	case c.TopicBoost <= 0 || c.TopicBoost > MaxTopicBoost:
		return fmt.Errorf("topic_boost must be in (0, %g], got %g: %w", MaxTopicBoost, c.TopicBoost, domain.ErrConfiguration)
	}
	return nil
}

// Service retrieves therapy excerpts relevant to a user query.
type Service struct {
	embed    Embedder
	source   SimilaritySource
	cache    *QueryCache
	reranker Reranker
	cfg      Config
	logger   *zap.Logger
}

// New creates a retrieval service. A nil cache disables memoization.
func New(embed Embedder, source SimilaritySource, cache *QueryCache, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embed:    embed,
		source:   source,
		cache:    cache,
		reranker: NewReranker(cfg.TopicBoost),
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve returns up to TopK documents for query, best first.
// An empty result is not an error. Failures are never cached.
func (s *Service) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	key := NormalizeKey(query)
	if s.cache != nil {
		if docs, ok := s.cache.Get(key); ok {
			metrics.RetrievalCacheTotal.WithLabelValues("hit").Inc()
			s.logger.Debug("retrieval_cache_hit", zap.Int("results", len(docs)))
			return docs, nil
		}
		metrics.RetrievalCacheTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	docs, err := s.retrieve(ctx, query)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RetrievalDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		s.logger.Error("retrieval_failed", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, err
	}
	metrics.RetrievalDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	metrics.RetrievalResults.Observe(float64(len(docs)))

	if s.cache != nil {
		s.cache.Put(key, docs)
	}

	s.logger.Info("retrieval_complete",
		zap.Int("results", len(docs)),
		zap.Duration("duration", elapsed),
	)
	return docs, nil
}

func (s *Service) retrieve(ctx context.Context, query string) ([]document.Document, error) {
	t := InferTopic(query)
	metrics.RetrievalTopicTotal.WithLabelValues(t.String()).Inc()
	s.logger.Info("query_topic_inferred", zap.String("topic", t.String()))

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, wrapFailure("embed query", err)
	}

	candidates := s.cfg.TopK * s.cfg.CandidateMultiplier
	rows, err := s.source.Search(ctx, emb.Embedding, candidates, s.cfg.Threshold)
	if err != nil {
		return nil, wrapFailure("similarity search", err)
	}
	s.logger.Info("vector_search_complete",
		zap.Int("candidates", len(rows)),
		zap.Int("requested", candidates),
		zap.Float64("threshold", s.cfg.Threshold),
	)

	docs := make([]document.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, document.Reconstruct(r.Content, r.Metadata, r.ScoreOrZero()))
	}

	if !t.IsNone() {
		docs = s.reranker.Rerank(docs, t)
		s.logger.Debug("topic_boost_applied",
			zap.String("topic", t.String()),
			zap.Float64("boost", s.reranker.boost),
		)
	}

	if len(docs) > s.cfg.TopK {
		docs = docs[:s.cfg.TopK]
	}
	return docs, nil
}

// wrapFailure classifies collaborator errors: misconfiguration stays
// ErrConfiguration, everything else becomes ErrRetrievalFailed.
func wrapFailure(stage string, err error) error {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return fmt.Errorf("%s: %w", stage, err)
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return fmt.Errorf("%s: %w: %w", stage, domain.ErrConfiguration, err)
	case errors.Is(err, domain.ErrRetrievalFailed):
		return fmt.Errorf("%s: %w", stage, err)
	default:
		return fmt.Errorf("%s: %w: %w", stage, domain.ErrRetrievalFailed, err)
	}
}
