// Package bootstrap assembles the chunk store and the embedder chain shared by
// the API server and the indexer.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/config"
	dbRedis "github.com/kailas-cloud/solace/internal/db/redis"
	"github.com/kailas-cloud/solace/internal/domain"
	domchunk "github.com/kailas-cloud/solace/internal/domain/chunk"
	"github.com/kailas-cloud/solace/internal/domain/document"
	"github.com/kailas-cloud/solace/internal/metrics"
	chunkrepo "github.com/kailas-cloud/solace/internal/repository/chunk"
	"github.com/kailas-cloud/solace/internal/repository/embcache"
	"github.com/kailas-cloud/solace/internal/repository/pgchunk"
	openaiTransport "github.com/kailas-cloud/solace/internal/transport/openai"
)

// ChunkStore is what both binaries need from the configured backend.
type ChunkStore interface {
	Insert(ctx context.Context, chunks []domchunk.Chunk) error
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]document.Row, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is an open chunk store plus its key-value side, if any.
type Backend struct {
	Chunks ChunkStore
	DB     Pinger
	// KV backs the embedding cache. Nil for the postgres driver.
	KV      *dbRedis.Store
	closeFn func()
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}

// OpenBackend connects to the configured driver and prepares the chunk index.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		return openRedis(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q: %w", cfg.Database.Driver, domain.ErrConfiguration)
	}
}

func openRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}

	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	repo := chunkrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(chunkrepo.HNSWConfig{M: cfg.Database.HNSWM, EFConstruct: cfg.Database.HNSWEFConstruct})
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure chunk index: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
		zap.String("index", repo.IndexName()),
	)
	return &Backend{Chunks: repo, DB: store, KV: store, closeFn: store.Close}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	gdb, err := pgchunk.Open(cfg.Database.DSN, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by pgchunk
	}
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	repo, err := pgchunk.New(gdb, cfg.Embedding.Dimensions).WithMatchFunc(cfg.Database.MatchFunc)
	if err != nil {
		closeFn()
		return nil, err //nolint:wrapcheck // carries ErrConfiguration
	}
	if err := repo.Migrate(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("migrate chunk table: %w", err)
	}
	return &Backend{Chunks: repo, DB: repo, closeFn: closeFn}, nil
}

// Embedder is an assembled embedding chain.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// NewEmbedder builds provider -> cache -> dimension guard -> instruction.
// The cache layer is skipped when kv is nil. The second return value checks
// provider health and sits below the instruction prefix.
func NewEmbedder(
	cfg *config.Config, kv *dbRedis.Store, instruction string, logger *zap.Logger,
) (Embedder, domain.HealthChecker) {
	emb := cfg.Embedding
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})

	var inner domain.Embedder = base
	if kv != nil {
		inner = embcache.New(base, kv, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Model:      emb.Model,
			TTL:        time.Duration(emb.CacheTTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, logger)
	}

	guard := domain.NewDimensionGuard(inner, emb.Dimensions)
	if instruction == "" {
		return guard, guard
	}
	return domain.NewInstructionEmbedder(guard, instruction), guard
}
