package chat

import (
	"context"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, query string) ([]document.Document, error)
	queries    []string
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	m.queries = append(m.queries, query)
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, query)
	}
	return nil, nil
}

type generateCall struct {
	query    string
	contexts []string
	history  []domain.Turn
}

type mockGenerator struct {
	generateFn func(ctx context.Context, query string, contexts []string, history []domain.Turn) (string, error)
	calls      []generateCall
}

func (m *mockGenerator) Generate(
	ctx context.Context, query string, contexts []string, history []domain.Turn,
) (string, error) {
	m.calls = append(m.calls, generateCall{query: query, contexts: contexts, history: history})
	if m.generateFn != nil {
		return m.generateFn(ctx, query, contexts, history)
	}
	return "generated reply", nil
}

func docsOf(contents ...string) func(context.Context, string) ([]document.Document, error) {
	return func(context.Context, string) ([]document.Document, error) {
		docs := make([]document.Document, len(contents))
		for i, c := range contents {
			docs[i] = document.Reconstruct(c, map[string]any{document.TopicKey: "stress"}, 0.8)
		}
		return docs, nil
	}
}
