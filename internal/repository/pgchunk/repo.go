// Package pgchunk is a SimilaritySource backed by Postgres with pgvector.
package pgchunk

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/solace/internal/db"
	"github.com/kailas-cloud/solace/internal/domain"
	domchunk "github.com/kailas-cloud/solace/internal/domain/chunk"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

const tableName = "therapy_chunks"

var intFields = map[string]bool{"chunk_index": true, "page_number": true, "chunk_length": true}

// Repo stores chunks in therapy_chunks and searches them by cosine similarity.
type Repo struct {
	db        *gorm.DB
	dim       int
	matchFunc string
}

// New creates a pgvector repository for vectors of the given dimension.
func New(gdb *gorm.DB, dim int) *Repo {
	return &Repo{db: gdb, dim: dim}
}

// WithMatchFunc routes Search through a server-side SQL function with the
// signature fn(query_embedding vector, match_threshold float, match_count int)
// returning (content, metadata, similarity).
func (r *Repo) WithMatchFunc(name string) (*Repo, error) {
	if name != "" && !db.IsValidIdentifier(name) {
		return nil, fmt.Errorf("invalid match function name %q: %w", name, domain.ErrConfiguration)
	}
	r.matchFunc = name
	return r, nil
}

// Migrate enables the vector extension and creates the table.
func (r *Repo) Migrate(ctx context.Context) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	if err := tx.AutoMigrate(&chunkModel{}); err != nil {
		return fmt.Errorf("migrate %s: %w", tableName, err)
	}
	return nil
}

// Insert writes embedded chunks in a single batch, replacing rows with the same ID.
func (r *Repo) Insert(ctx context.Context, chunks []domchunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]chunkModel, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector()) != r.dim {
			return fmt.Errorf("chunk %s: got %d dims, want %d: %w",
				c.ID(), len(c.Vector()), r.dim, domain.ErrVectorDimMismatch)
		}
		models = append(models, toModel(c))
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&models).Error
	if err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(models), err)
	}
	return nil
}

// Search returns at most topK rows with similarity >= threshold, best first.
func (r *Repo) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]document.Row, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("query embedding has %d dims, table has %d: %w",
			len(embedding), r.dim, domain.ErrVectorDimMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	var rows []scoredRow
	if err := r.searchQuery(r.db.WithContext(ctx), embedding, topK, threshold).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search chunks: %w: %w", domain.ErrRetrievalFailed, err)
	}

	out := make([]document.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRow(row))
	}
	return out, nil
}

func (r *Repo) searchQuery(tx *gorm.DB, embedding []float32, topK int, threshold float64) *gorm.DB {
	vec := pgvector.NewVector(embedding)
	if r.matchFunc != "" {
		return tx.Raw("SELECT content, metadata, similarity FROM "+r.matchFunc+"(?, ?, ?)", vec, threshold, topK)
	}
	return tx.Table(tableName).
		Select("content, metadata, 1 - (embedding <=> ?) AS similarity", vec).
		Where("1 - (embedding <=> ?) >= ?", vec, threshold).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}}).
		Limit(topK)
}

// Count returns the number of stored chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&chunkModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(n), nil
}

// Clear deletes every stored chunk.
func (r *Repo) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec("TRUNCATE TABLE " + tableName).Error; err != nil {
		return fmt.Errorf("truncate %s: %w", tableName, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func toModel(c *domchunk.Chunk) chunkModel {
	meta := c.Metadata()
	return chunkModel{
		ID:        c.ID(),
		Content:   c.Content(),
		Metadata:  meta.Map(),
		Topic:     meta.Topic,
		Embedding: pgvector.NewVector(c.Vector()),
	}
}

func toRow(row scoredRow) document.Row {
	meta := make(map[string]any, len(row.Metadata))
	for k, v := range row.Metadata {
		// JSON numbers decode as float64; keep positional fields integral
		if f, ok := v.(float64); ok && intFields[k] && f == float64(int(f)) {
			meta[k] = int(f)
			continue
		}
		meta[k] = v
	}
	return document.Row{Content: row.Content, Metadata: meta, Score: row.Similarity}
}
