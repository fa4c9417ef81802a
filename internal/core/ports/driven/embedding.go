// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService maps text to a deterministic fixed-dimension dense
// vector using a local sentence-embedding model suited for Chinese.
//
// Implementations may include:
//   - A local HTTP inference server speaking the Ollama embeddings API
//   - A deterministic offline hash-embedding used for tests and as a
//     dependency-free default
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text. Calls are
	// pure: the same text and the same ModelID produce the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 512 or 768).
	Dimensions() int

	// ModelID identifies the embedding model and its dimension, recorded
	// alongside the index so incompatible queries are rejected
	// (domain.ErrIndexMismatch).
	ModelID() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
