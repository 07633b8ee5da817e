package retrieval

import (
	"context"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
	texts   []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

type searchCall struct {
	topK      int
	threshold float64
}

type mockSource struct {
	searchFn func(ctx context.Context, emb []float32, topK int, threshold float64) ([]document.Row, error)
	calls    []searchCall
}

func (m *mockSource) Search(
	ctx context.Context, emb []float32, topK int, threshold float64,
) ([]document.Row, error) {
	m.calls = append(m.calls, searchCall{topK: topK, threshold: threshold})
	if m.searchFn != nil {
		return m.searchFn(ctx, emb, topK, threshold)
	}
	return nil, nil
}

func rowsOf(rows ...document.Row) func(context.Context, []float32, int, float64) ([]document.Row, error) {
	return func(context.Context, []float32, int, float64) ([]document.Row, error) {
		return rows, nil
	}
}

func row(content string, score float64, topicName string) document.Row {
	md := map[string]any{"source_file": content + ".txt"}
	if topicName != "" {
		md[document.TopicKey] = topicName
	}
	return document.Row{Content: content, Metadata: md, Score: &score}
}

func doc(content string, score float64, topicName string) document.Document {
	r := row(content, score, topicName)
	return document.Reconstruct(r.Content, r.Metadata, score)
}

func contents(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].Content()
	}
	return out
}
