package solace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/solace/internal/db/redis"
	"github.com/kailas-cloud/solace/internal/domain"
	domchunk "github.com/kailas-cloud/solace/internal/domain/chunk"
	"github.com/kailas-cloud/solace/internal/domain/document"
	chunkrepo "github.com/kailas-cloud/solace/internal/repository/chunk"
	healthuc "github.com/kailas-cloud/solace/internal/usecase/health"
	"github.com/kailas-cloud/solace/internal/usecase/ingest"
	"github.com/kailas-cloud/solace/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for fakes in tests.
type chunkStore interface {
	Insert(ctx context.Context, chunks []domchunk.Chunk) error
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]document.Row, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type retriever interface {
	Retrieve(ctx context.Context, query string) ([]document.Document, error)
}

type textIndexer interface {
	IndexDocument(ctx context.Context, name, text string) (ingest.Report, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the solace SDK entry point.
type Client struct {
	db        pinger
	closeFn   func()
	chunks    chunkStore
	retriever retriever
	indexer   textIndexer
	docEmbed  domain.BatchEmbedder // nil without an embedder
	healthSvc healthUseCase
	newID     func() string
	obs       *observer
}

// New creates a Client, connects to the database and ensures the chunk index
// exists. The provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("solace: database address required (use WithValkey or WithRedis)")
	}
	if cfg.driver != "valkey" && cfg.driver != "redis" {
		return nil, fmt.Errorf("solace: unknown driver %q: %w", cfg.driver, ErrConfiguration)
	}

	if err := cfg.retrievalConfig().Validate(); err != nil {
		return nil, fmt.Errorf("solace: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("solace: create %s store: %w", cfg.driver, err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("solace: database not ready: %w", err)
	}

	repo := chunkrepo.New(store, cfg.keyPrefix, cfg.vectorDimensions).
		WithHNSW(chunkrepo.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct})
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("solace: ensure index: %w", err)
	}

	c := wireClient(repo, cfg, obs)
	c.db = store
	c.closeFn = store.Close
	return c, nil
}

// wireClient assembles the retrieval and indexing services over chunks.
func wireClient(chunks chunkStore, cfg *clientConfig, obs *observer) *Client {
	c := &Client{chunks: chunks, newID: uuid.NewString, obs: obs}

	var embed domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		guarded := domain.NewDimensionGuard(&embedderAdapter{inner: cfg.embedder}, cfg.vectorDimensions)
		embed = guarded
		c.docEmbed = guarded
	}

	queryEmbed := embed
	if cfg.queryInstruction != "" {
		queryEmbed = domain.NewInstructionEmbedder(embed, cfg.queryInstruction)
	}

	rcfg := cfg.retrievalConfig()
	cache := retrieval.NewQueryCache(retrieval.CacheOptions{TTL: cfg.cacheTTL, MaxEntries: cfg.cacheMaxEntries})
	c.retriever = retrieval.New(queryEmbed, chunks, cache, rcfg, zap.NewNop())

	if c.docEmbed != nil {
		c.indexer = ingest.New(chunks, c.docEmbed, ingest.NewChunker(cfg.chunkSize, cfg.chunkOverlap),
			ingest.DefaultBatchSize, zap.NewNop())
	}

	var healthOpts []healthuc.Option
	if hc, ok := embed.(domain.HealthChecker); ok && cfg.embedder != nil {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(hc))
	}
	c.healthSvc = healthuc.New(pingFunc(c.ping), healthOpts...)
	return c
}

// retrievalConfig overlays the options on the retrieval defaults. Unset
// (zero) values keep the default; anything else is passed through so
// Validate can reject it.
func (c *clientConfig) retrievalConfig() retrieval.Config {
	rcfg := retrieval.DefaultConfig()
	if c.topK != 0 {
		rcfg.TopK = c.topK
	}
	if c.threshold != nil {
		rcfg.Threshold = *c.threshold
	}
	if c.candidateMultiplier != 0 {
		rcfg.CandidateMultiplier = c.candidateMultiplier
	}
	if c.topicBoost != 0 {
		rcfg.TopicBoost = c.topicBoost
	}
	return rcfg
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, -1, err) }()
	return c.ping(ctx)
}

func (c *Client) ping(ctx context.Context) error {
	if c.db == nil {
		return errors.New("solace: not connected")
	}
	if err := c.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Retrieve returns up to TopK therapy excerpts relevant to query, best first.
// An empty result is not an error.
func (c *Client) Retrieve(ctx context.Context, query string) (docs []Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, len(docs), err) }()

	found, err := c.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	docs = make([]Document, len(found))
	for i := range found {
		docs[i] = Document{
			Content:    found[i].Content(),
			Similarity: found[i].Score(),
			Topic:      found[i].Topic(),
			Metadata:   found[i].Metadata(),
		}
	}
	return docs, nil
}

// IndexChunks embeds and stores pre-split chunks. It returns the number stored.
func (c *Client) IndexChunks(ctx context.Context, chunks []Chunk) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_chunks", start, n, err) }()

	if len(chunks) == 0 {
		return 0, nil
	}
	if c.docEmbed == nil {
		return 0, errNoEmbedder
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	res, err := c.docEmbed.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks: %w",
			len(res.Embeddings), len(chunks), ErrEmbeddingProviderError)
	}

	out := make([]domchunk.Chunk, len(chunks))
	for i, ch := range chunks {
		dc, err := c.toDomain(ch)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		out[i] = dc.WithVector(res.Embeddings[i])
	}
	if err := c.chunks.Insert(ctx, out); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(out), nil
}

// IndexText splits text into overlapping chunks, infers topic and document type
// from name, then embeds and stores them. It returns the number of chunks stored.
func (c *Client) IndexText(ctx context.Context, name, text string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_text", start, n, err) }()

	if c.indexer == nil {
		return 0, errNoEmbedder
	}
	report, err := c.indexer.IndexDocument(ctx, name, text)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", name, err)
	}
	return report.Chunks, nil
}

// Count returns the number of indexed chunks.
func (c *Client) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", start, -1, err) }()

	n, err = c.chunks.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Clear deletes every indexed chunk.
func (c *Client) Clear(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("clear", start, -1, err) }()

	if err = c.chunks.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func (c *Client) toDomain(ch Chunk) (domchunk.Chunk, error) {
	id := ch.ID
	if id == "" {
		id = c.newID()
	}
	page := ch.PageNumber
	if page <= 0 {
		page = 1
	}
	topic := ch.Topic
	if topic == "" {
		topic = ingest.TopicFromFilename(ch.SourceFile)
	}
	docType := ch.DocumentType
	if docType == "" {
		docType = ingest.DocumentTypeFromFilename(ch.SourceFile)
	}
	return domchunk.New(id, ch.Content, domchunk.Metadata{ //nolint:wrapcheck // validation message is final
		SourceFile:   ch.SourceFile,
		ChunkIndex:   ch.ChunkIndex,
		PageNumber:   page,
		Topic:        topic,
		DocumentType: docType,
		ChunkLength:  ingest.ApproxTokens(ch.Content),
	})
}

var errNoEmbedder = fmt.Errorf("solace: embedder not configured (use WithEmbedder): %w", ErrConfiguration)

// pingFunc adapts a function to the health DBPinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// embedderAdapter wraps the public Embedder to satisfy the internal interfaces.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the inner batch endpoint when the embedder has one.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts) //nolint:wrapcheck // fallback already wraps
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it exposes one.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	hc, ok := a.inner.(interface {
		HealthCheck(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedder health: %w", err)
	}
	return nil
}

// noopEmbedder fails every call; used when no embedder is configured.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errNoEmbedder
}
