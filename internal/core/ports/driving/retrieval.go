package driving

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// RetrievalService combines dense and sparse results into a single ranked
// list via query-adaptive Reciprocal Rank Fusion (§4.8). It is the sole
// entry point the tool layer uses to touch the indices.
type RetrievalService interface {
	// Search runs a hybrid retrieval for query under opts.Filters, pruning
	// by opts.MinSimilarity (a negative value selects the component
	// default) and returning up to opts.TopK results. An empty result is a
	// valid, successful outcome, not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error)
}
