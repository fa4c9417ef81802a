package driven

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// SparseIndex provides token-based BM25 retrieval for exact matches
// (clause numbers, specific terms). Tokenization uses a Chinese segmenter; a
// short stop list is applied symmetrically at index and query time.
type SparseIndex interface {
	// Build produces a persistent index from scratch over chunks, replacing
	// any existing index. Dense and sparse rebuilds must be coordinated by
	// the caller so that partial success never leaves mismatched id sets.
	Build(ctx context.Context, chunks []domain.PolicyChunk) error

	// Load restores a previously built index from path.
	Load(ctx context.Context, path string) error

	// Search returns up to k matches ranked by BM25 score.
	Search(ctx context.Context, query string, k int) ([]SparseHit, error)

	// IDs returns every chunk id currently present in the index, used to
	// check the dense/sparse id-set-equality invariant after a rebuild.
	IDs(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// SparseHit is one BM25 match.
type SparseHit struct {
	ChunkID string
	Score   float64
}
