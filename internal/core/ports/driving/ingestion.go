package driving

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// IngestionService drives offline ingestion: parsing a verified document,
// chunking, enriching, embedding, and upserting into the dense vector store
// and rate-table store. It is the CLI's entry point into the indexing
// pipeline; the online tool/retrieval path never calls it.
type IngestionService interface {
	// IngestDocument parses, chunks, enriches, embeds and upserts doc.
	// Re-ingesting a document id deletes its prior chunks and rate tables
	// first. doc must be VERIFIED (domain.PolicyDocument.CanIngest).
	IngestDocument(ctx context.Context, doc *domain.PolicyDocument) ([]domain.PolicyChunk, error)

	// Reindex rebuilds the sparse index from scratch over chunks, since the
	// sparse index has no incremental-update path.
	Reindex(ctx context.Context, chunks []domain.PolicyChunk) error

	// DeleteDocument removes a document's chunks and rate tables from the
	// dense store without re-ingesting a replacement.
	DeleteDocument(ctx context.Context, documentID string) error
}
