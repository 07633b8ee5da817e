package chat

import (
	"context"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
	"github.com/kailas-cloud/solace/internal/usecase/safety"
)

// Screener sanitizes and grades user input.
type Screener interface {
	Sanitize(text string) string
	Check(text string) safety.Result
}

// Retriever finds therapy excerpts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]document.Document, error)
}

// Generator produces a grounded reply.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []string, history []domain.Turn) (string, error)
}
