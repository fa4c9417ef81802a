package driven

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// VectorStore persists {id -> (vector, metadata, content)} with filtered
// nearest-neighbor retrieval. Distance metric is cosine; dimension is fixed
// per collection.
type VectorStore interface {
	// Upsert bulk inserts or replaces chunks.
	Upsert(ctx context.Context, chunks []domain.PolicyChunk) error

	// Delete removes every chunk matching the filter (typically by document_id).
	Delete(ctx context.Context, filters domain.Filters) error

	// Query returns the k nearest neighbours to vector, restricted to chunks
	// matching filters.
	Query(ctx context.Context, vector []float32, k int, filters domain.Filters) ([]VectorHit, error)

	// GetByIDs fetches chunk payloads directly by id, used to hydrate
	// sparse-only candidates that fall outside the dense side's top-k.
	// Missing ids are silently omitted from the result.
	GetByIDs(ctx context.Context, ids []string) ([]domain.PolicyChunk, error)

	// Stats reports index size, dimension, and distance metric.
	Stats(ctx context.Context) (VectorStoreStats, error)

	// Close releases resources.
	Close() error
}

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	Chunk      domain.PolicyChunk
	Similarity float64
}

// VectorStoreStats describes the current state of the vector store.
type VectorStoreStats struct {
	Count          int
	Dimension      int
	DistanceMetric string
}
