package chunk

import (
	"fmt"

	"github.com/kailas-cloud/solace/internal/domain/document"
)

// Metadata describes where an indexed chunk came from.
type Metadata struct {
	SourceFile   string
	ChunkIndex   int
	PageNumber   int
	Topic        string
	DocumentType string
	ChunkLength  int
}

// Map renders metadata the way retrieval results expose it.
func (m Metadata) Map() map[string]any {
	return map[string]any{
		"source_file":     m.SourceFile,
		"chunk_index":     m.ChunkIndex,
		"page_number":     m.PageNumber,
		document.TopicKey: m.Topic,
		"document_type":   m.DocumentType,
		"chunk_length":    m.ChunkLength,
	}
}

// Chunk is a unit of therapy text ready to be stored in the similarity index.
type Chunk struct {
	id       string
	content  string
	metadata Metadata
	vector   []float32
}

// New validates and creates a Chunk.
func New(id, content string, meta Metadata) (Chunk, error) {
	if id == "" {
		return Chunk{}, fmt.Errorf("chunk ID is required")
	}
	if content == "" {
		return Chunk{}, fmt.Errorf("content is required")
	}
	return Chunk{id: id, content: content, metadata: meta}, nil
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Metadata returns the chunk provenance.
func (c *Chunk) Metadata() Metadata { return c.metadata }

// Vector returns the embedding vector (nil until embedded).
func (c *Chunk) Vector() []float32 { return c.vector }

// WithVector returns a copy with the given vector set.
func (c *Chunk) WithVector(v []float32) Chunk {
	return Chunk{id: c.id, content: c.content, metadata: c.metadata, vector: v}
}
