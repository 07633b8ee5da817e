package domain

import "errors"

var (
	// ErrConfiguration signals a misconfigured embedding or storage backend.
	ErrConfiguration = errors.New("configuration error")
	// ErrRetrievalFailed signals an embedding or similarity-store failure during retrieval.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMFailed signals a text generation failure after retries.
	ErrLLMFailed = errors.New("llm generation failed")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidInput signals a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
