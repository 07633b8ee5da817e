// Package chunk stores therapy chunks as hashes behind an FT vector index
// and serves them back as similarity rows.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/solace/internal/db"
	"github.com/kailas-cloud/solace/internal/domain"
	domchunk "github.com/kailas-cloud/solace/internal/domain/chunk"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

// Hash field names.
const (
	fieldContent      = "content"
	fieldVector       = "vector"
	fieldTopic        = document.TopicKey
	fieldSourceFile   = "source_file"
	fieldDocumentType = "document_type"
	fieldChunkIndex   = "chunk_index"
	fieldPageNumber   = "page_number"
	fieldChunkLength  = "chunk_length"
)

var returnFields = []string{
	fieldContent, fieldTopic, fieldSourceFile, fieldDocumentType,
	fieldChunkIndex, fieldPageNumber, fieldChunkLength,
}

var numericFields = map[string]bool{
	fieldChunkIndex:  true,
	fieldPageNumber:  true,
	fieldChunkLength: true,
}

// store is the consumer interface for the chunk index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is a SimilaritySource over a Redis/Valkey FT index.
type Repo struct {
	store     store
	keyPrefix string
	dim       int
	hnsw      HNSWConfig
}

// New creates a chunk repository. keyPrefix namespaces keys and the index name.
func New(s store, keyPrefix string, dim int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, dim: dim, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.keyPrefix + "chunks:idx" }

func (r *Repo) keyFor(id string) string { return r.keyPrefix + "chunk:" + id }

// EnsureIndex creates the vector index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.IndexName()).
		Prefix(r.keyPrefix+"chunk:").
		Tag(fieldTopic).
		Tag(fieldSourceFile).
		Tag(fieldDocumentType).
		Numeric(fieldChunkIndex).
		Numeric(fieldPageNumber).
		VectorHNSW(fieldVector, r.dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	// a concurrent indexer may have won the race
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Insert writes embedded chunks in one pipelined round-trip.
func (r *Repo) Insert(ctx context.Context, chunks []domchunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector()) != r.dim {
			return fmt.Errorf("chunk %s: got %d dims, want %d: %w",
				c.ID(), len(c.Vector()), r.dim, domain.ErrVectorDimMismatch)
		}
		items = append(items, db.HashSetItem{Key: r.keyFor(c.ID()), Fields: chunkToHash(c)})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(items), err)
	}
	return nil
}

// Search returns at most topK rows whose similarity is >= threshold, best first.
func (r *Repo) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]document.Row, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("query embedding has %d dims, index has %d: %w",
			len(embedding), r.dim, domain.ErrVectorDimMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.IndexName(),
		VectorField:  fieldVector,
		Vector:       embedding,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w: %w", domain.ErrRetrievalFailed, err)
	}
	if sr == nil {
		return nil, nil
	}

	rows := make([]document.Row, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Score < threshold {
			continue
		}
		rows = append(rows, entryToRow(e))
		if len(rows) == topK {
			break
		}
	}
	return rows, nil
}

// Count returns the number of indexed chunks. A missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.IndexName())
	if errors.Is(err, db.ErrIndexNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Clear drops the index together with every indexed chunk.
func (r *Repo) Clear(ctx context.Context) error {
	err := r.store.DropIndex(ctx, r.IndexName(), true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

func chunkToHash(c *domchunk.Chunk) map[string]string {
	m := c.Metadata()
	return map[string]string{
		fieldContent:      c.Content(),
		fieldVector:       db.EncodeVector(c.Vector()),
		fieldTopic:        m.Topic,
		fieldSourceFile:   m.SourceFile,
		fieldDocumentType: m.DocumentType,
		fieldChunkIndex:   strconv.Itoa(m.ChunkIndex),
		fieldPageNumber:   strconv.Itoa(m.PageNumber),
		fieldChunkLength:  strconv.Itoa(m.ChunkLength),
	}
}

func entryToRow(e db.SearchEntry) document.Row {
	meta := make(map[string]any, len(e.Fields))
	var content string
	for k, v := range e.Fields {
		switch {
		case k == fieldContent:
			content = v
		case k == fieldVector:
		case numericFields[k]:
			if n, err := strconv.Atoi(v); err == nil {
				meta[k] = n
			} else {
				meta[k] = v
			}
		case k == fieldTopic && v == "":
			// untagged chunks carry no topic
		default:
			meta[k] = v
		}
	}
	score := e.Score
	return document.Row{Content: content, Metadata: meta, Score: &score}
}
