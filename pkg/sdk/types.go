package solace

// Document is a retrieved therapy excerpt, best first.
type Document struct {
	Content string
	// Similarity is the store's score, possibly raised by the topic boost (max 1).
	Similarity float64
	Topic      string
	Metadata   map[string]any
}

// Chunk is a piece of text to index. An empty ID gets a random UUID.
type Chunk struct {
	ID           string
	Content      string
	SourceFile   string
	Topic        string
	DocumentType string
	ChunkIndex   int
	PageNumber   int
}
