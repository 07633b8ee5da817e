package ingest

import (
	"context"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/chunk"
)

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	Insert(ctx context.Context, chunks []chunk.Chunk) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// BatchEmbedder vectorizes chunk texts.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
