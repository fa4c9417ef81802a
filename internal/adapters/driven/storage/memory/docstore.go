package memory

import (
	"context"
	"sync"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore, for
// tests and for a dependency-free dev run without SQLite.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.PolicyDocument
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.PolicyDocument),
	}
}

// Save stores or updates a document.
func (s *DocumentStore) Save(_ context.Context, doc *domain.PolicyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListByProduct returns every document belonging to productID.
func (s *DocumentStore) ListByProduct(_ context.Context, productID string) ([]domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.PolicyDocument
	for id := range s.documents {
		doc := s.documents[id]
		if doc.ProductID == productID {
			result = append(result, doc)
		}
	}
	return result, nil
}

// ListByStatus returns every document at the given verification status.
func (s *DocumentStore) ListByStatus(_ context.Context, status domain.VerificationStatus) ([]domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.PolicyDocument
	for id := range s.documents {
		doc := s.documents[id]
		if doc.VerificationStatus == status {
			result = append(result, doc)
		}
	}
	return result, nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}
