package cli

import (
	"context"
	"errors"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

// fakeToolService is a test double for driving.ToolService.
type fakeToolService struct {
	clauses  []driving.ClauseResult
	products []driving.ProductInfo
	err      error

	lastSearchInput driving.SearchPolicyClauseInput
}

func (f *fakeToolService) SearchPolicyClause(_ context.Context, in driving.SearchPolicyClauseInput) ([]driving.ClauseResult, error) {
	f.lastSearchInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.clauses, nil
}

func (f *fakeToolService) CheckExclusionRisk(context.Context, driving.CheckExclusionRiskInput) (*driving.ExclusionRiskResult, error) {
	return &driving.ExclusionRiskResult{}, f.err
}

func (f *fakeToolService) CalculateSurrenderValueLogic(context.Context, driving.SurrenderValueLogicInput) (*driving.SurrenderValueLogicResult, error) {
	return &driving.SurrenderValueLogicResult{}, f.err
}

func (f *fakeToolService) LookupProduct(context.Context, driving.LookupProductInput) ([]driving.ProductInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

// fakeIngestionService is a test double for driving.IngestionService.
type fakeIngestionService struct {
	chunks []domain.PolicyChunk
	err    error

	ingested    []domain.PolicyDocument
	reindexed   []domain.PolicyChunk
	deletedFor  string
}

func (f *fakeIngestionService) IngestDocument(_ context.Context, doc *domain.PolicyDocument) ([]domain.PolicyChunk, error) {
	f.ingested = append(f.ingested, *doc)
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *fakeIngestionService) Reindex(_ context.Context, chunks []domain.PolicyChunk) error {
	f.reindexed = chunks
	return f.err
}

func (f *fakeIngestionService) DeleteDocument(_ context.Context, documentID string) error {
	f.deletedFor = documentID
	return f.err
}

// fakeDocumentStore is a test double for driven.DocumentStore.
type fakeDocumentStore struct {
	byStatus []domain.PolicyDocument
	err      error
}

func (f *fakeDocumentStore) Save(context.Context, *domain.PolicyDocument) error { return f.err }
func (f *fakeDocumentStore) Get(context.Context, string) (*domain.PolicyDocument, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeDocumentStore) ListByProduct(context.Context, string) ([]domain.PolicyDocument, error) {
	return nil, nil
}
func (f *fakeDocumentStore) ListByStatus(context.Context, domain.VerificationStatus) ([]domain.PolicyDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byStatus, nil
}
func (f *fakeDocumentStore) Delete(context.Context, string) error { return f.err }

// setupTestServices wires fakes into the package-level service vars used by
// command RunE functions, returning a cleanup func restoring the prior
// values.
func setupTestServices() func() {
	oldTools, oldIngestion, oldDocs := toolService, ingestionService, documentStore
	toolService = &fakeToolService{}
	ingestionService = &fakeIngestionService{}
	documentStore = &fakeDocumentStore{}
	return func() {
		toolService, ingestionService, documentStore = oldTools, oldIngestion, oldDocs
	}
}

var errFakeService = errors.New("fake service failure")
