package retrieval

import (
	"context"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SimilaritySource returns at most topK rows scoring at or above threshold.
type SimilaritySource interface {
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]document.Row, error)
}
