package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/core/ports/driving"
	"github.com/policyrag/policyrag/internal/logger"
)

var _ driving.IngestionService = (*Ingestion)(nil)

// Ingestion turns a VERIFIED PolicyDocument into indexed PolicyChunks. It
// owns the delete-by-document_id-then-insert lifecycle (§5 Lifecycle): chunks
// are immutable, updates happen by full re-ingestion of the owning document.
type Ingestion struct {
	parser      driven.StructuredParser
	pipeline    driven.PostProcessorPipeline
	embedder    driven.EmbeddingService
	vectorStore driven.VectorStore
	sparseIndex driven.SparseIndex
	products    driven.ProductStore
	documents   driven.DocumentStore
	tables      driven.RateTableStore
}

// NewIngestion constructs an Ingestion service. embedder may be nil to skip
// dense embedding (sparse-only corpora, or tests).
func NewIngestion(
	parser driven.StructuredParser,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	vectorStore driven.VectorStore,
	sparseIndex driven.SparseIndex,
	products driven.ProductStore,
	documents driven.DocumentStore,
	tables driven.RateTableStore,
) *Ingestion {
	return &Ingestion{
		parser:      parser,
		pipeline:    pipeline,
		embedder:    embedder,
		vectorStore: vectorStore,
		sparseIndex: sparseIndex,
		products:    products,
		documents:   documents,
		tables:      tables,
	}
}

// IngestDocument parses, chunks, enriches, and indexes a single VERIFIED
// document, first deleting any chunks and rate tables it previously owned.
// A document that is not VERIFIED is rejected outright: the ingestion path
// never runs against an unreviewed PDF (PolicyDocument invariant).
func (s *Ingestion) IngestDocument(ctx context.Context, doc *domain.PolicyDocument) ([]domain.PolicyChunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if !doc.CanIngest() {
		return nil, fmt.Errorf("ingestion: document %s is %s, not VERIFIED: %w", doc.ID, doc.VerificationStatus, domain.ErrInvalidInput)
	}

	product, err := s.products.Get(ctx, doc.ProductID)
	if err != nil {
		return nil, fmt.Errorf("ingestion: load product %s: %w", doc.ProductID, err)
	}

	if err := s.deleteDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("ingestion: clear prior state for %s: %w", doc.ID, err)
	}

	result, err := s.parser.Parse(ctx, doc.LocalPath, doc)
	if err != nil {
		doc.VerificationStatus = domain.StatusPending
		doc.ReviewerNotes = fmt.Sprintf("parse failure: %v", err)
		if saveErr := s.documents.Save(ctx, doc); saveErr != nil {
			logger.Warn("ingestion: failed to record parse failure for %s: %v", doc.ID, saveErr)
		}
		if !errors.Is(err, domain.ErrParseFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
		}
		return nil, fmt.Errorf("ingestion: parse %s: %w", doc.ID, err)
	}

	dctx := driven.DocumentContext{
		DocumentID:  doc.ID,
		Company:     product.Company,
		ProductCode: product.ProductCode,
		ProductName: product.Name,
		DocType:     doc.DocType,
	}

	chunks, err := s.pipeline.Process(ctx, dctx, result.Markdown)
	if err != nil {
		return nil, fmt.Errorf("ingestion: postprocess %s: %w", doc.ID, err)
	}

	for i := range chunks {
		chunks[i].ID = chunkID(doc.ID, chunks[i].ChunkIndex)
	}

	if s.embedder != nil {
		if err := s.embedChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("ingestion: embed %s: %w", doc.ID, err)
		}
	}

	for i := range result.Tables {
		if err := s.tables.Save(ctx, &result.Tables[i]); err != nil {
			return nil, fmt.Errorf("ingestion: save rate table %s: %w", result.Tables[i].UUID, err)
		}
	}

	if len(chunks) > 0 {
		if err := s.vectorStore.Upsert(ctx, chunks); err != nil {
			return nil, fmt.Errorf("ingestion: upsert dense %s: %w", doc.ID, err)
		}
	}

	logger.Info("ingestion: document=%s chunks=%d tables=%d", doc.ID, len(chunks), len(result.Tables))
	return chunks, nil
}

// deleteDocument removes every chunk and rate table owned by documentID,
// the "delete" half of delete-by-document_id-then-insert.
func (s *Ingestion) deleteDocument(ctx context.Context, documentID string) error {
	if err := s.vectorStore.Delete(ctx, domain.Filters{DocumentID: documentID}); err != nil {
		return fmt.Errorf("dense delete: %w", err)
	}
	if err := s.tables.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("rate table delete: %w", err)
	}
	return nil
}

func (s *Ingestion) embedChunks(ctx context.Context, chunks []domain.PolicyChunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks: %w", len(vectors), len(chunks), domain.ErrInternal)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// Reindex rebuilds the sparse index from scratch over the given chunks; the
// two sides' id sets stay equal when chunks is the dense side's full set.
// Callers that need a clean rebuild across the full corpus re-ingest every
// VERIFIED document first (dense side, via IngestDocument) then call Reindex
// to rebuild the sparse side from the resulting dense state in one shot,
// matching the "MVP reindex = full rebuild, no incremental indexing" stance.
func (s *Ingestion) Reindex(ctx context.Context, chunks []domain.PolicyChunk) error {
	if err := s.sparseIndex.Build(ctx, chunks); err != nil {
		return fmt.Errorf("ingestion: rebuild sparse index: %w", err)
	}
	logger.Info("ingestion: sparse index rebuilt chunks=%d", len(chunks))
	return nil
}

// DeleteDocument removes a document's chunks and rate tables without
// re-ingesting it, used when a document is retracted or rejected after
// having previously been indexed.
func (s *Ingestion) DeleteDocument(ctx context.Context, documentID string) error {
	return s.deleteDocument(ctx, documentID)
}

// chunkID derives a stable chunk identifier from its owning document and
// position, so reindexing the same verified corpus twice yields identical
// chunk ids (§8: "chunk_id is a function of document_id and chunk_index").
func chunkID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%04d", documentID, chunkIndex)
}
