package driven

import (
	"context"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// ProductStore persists Product records. Backed by SQLite.
type ProductStore interface {
	Save(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetByCode(ctx context.Context, company, productCode string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// DocumentStore persists PolicyDocument records. Backed by SQLite.
type DocumentStore interface {
	Save(ctx context.Context, d *domain.PolicyDocument) error
	Get(ctx context.Context, id string) (*domain.PolicyDocument, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.PolicyDocument, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.PolicyDocument, error)
	Delete(ctx context.Context, id string) error
}

// RateTableStore persists RateTable sidecar metadata (not the CSV bytes
// themselves, which live on disk at RateTable.CSVPath).
type RateTableStore interface {
	Save(ctx context.Context, rt *domain.RateTable) error
	Get(ctx context.Context, uuid string) (*domain.RateTable, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.RateTable, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}
