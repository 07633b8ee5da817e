package ingest

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/chunk"
)

type mockStore struct {
	insertFn func(ctx context.Context, chunks []chunk.Chunk) error
	inserted [][]chunk.Chunk
	count    int
	countErr error
	cleared  bool
	clearErr error
}

func (m *mockStore) Insert(ctx context.Context, chunks []chunk.Chunk) error {
	m.inserted = append(m.inserted, chunks)
	if m.insertFn != nil {
		return m.insertFn(ctx, chunks)
	}
	return nil
}

func (m *mockStore) Count(_ context.Context) (int, error) { return m.count, m.countErr }

func (m *mockStore) Clear(_ context.Context) error {
	m.cleared = true
	return m.clearErr
}

func (m *mockStore) all() []chunk.Chunk {
	var out []chunk.Chunk
	for _, b := range m.inserted {
		out = append(out, b...)
	}
	return out
}

type mockBatchEmbedder struct {
	batchFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	calls   [][]string
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls = append(m.calls, texts)
	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, TotalTokens: len(texts)}, nil
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
