package document

import "fmt"

// TopicKey is the metadata key the ranking layer reads.
const TopicKey = "topic"

// Document is a retrieved chunk with its similarity score (immutable value object).
type Document struct {
	content  string
	metadata map[string]any
	score    float64
}

// New validates and creates a Document. Content must be non-empty.
func New(content string, metadata map[string]any, score float64) (Document, error) {
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	return Document{content: content, metadata: cloneMetadata(metadata), score: score}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(content string, metadata map[string]any, score float64) Document {
	return Document{content: content, metadata: metadata, score: score}
}

// Content returns the chunk text.
func (d *Document) Content() string { return d.content }

// Metadata returns a copy of the metadata map.
func (d *Document) Metadata() map[string]any { return cloneMetadata(d.metadata) }

// Score returns the similarity score, possibly topic-boosted.
func (d *Document) Score() float64 { return d.score }

// Topic returns metadata["topic"], or "" when absent or not a string.
func (d *Document) Topic() string {
	t, _ := d.metadata[TopicKey].(string)
	return t
}

// Get returns a single metadata value.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// WithScore returns a copy carrying a different score. Metadata is shared, never mutated.
func (d *Document) WithScore(score float64) Document {
	return Document{content: d.content, metadata: d.metadata, score: score}
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
