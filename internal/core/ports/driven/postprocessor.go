package driven

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// DocumentContext carries the fields every PolicyChunk produced from a
// document must inherit (invariant: chunk context equals its document's
// Product fields).
type DocumentContext struct {
	DocumentID  string
	Company     string
	ProductCode string
	ProductName string
	DocType     domain.DocType
}

// PostProcessor processes Markdown content to produce or enrich chunks.
// PostProcessors are chained in a pipeline: the chunker receives chunks=nil
// and creates them from markdown; the enricher receives the chunker's
// output and returns it enriched with category/entity_role/keywords.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes the document's rendered Markdown and the chunks
	// produced so far (nil for the first stage) and returns the next stage's
	// chunks.
	Process(ctx context.Context, dctx DocumentContext, markdown string, chunks []domain.PolicyChunk) ([]domain.PolicyChunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order, returning
	// the final chunks after chunking and enrichment.
	Process(ctx context.Context, dctx DocumentContext, markdown string) ([]domain.PolicyChunk, error)
}
