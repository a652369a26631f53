package store

import (
	"context"
	"time"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

// Filter narrows a Find call. Zero fields are ignored.
type Filter struct {
	ID      string
	Status  domain.Status
	Creator string
}

// Backend is the raw document-store boundary. Implementations map the
// operations onto whatever the external store offers; a backend that lacks
// a capability returns errors.ErrUnsupported so the client can degrade to
// the next retrieval strategy.
//
// Get and Find return errors.ErrNotFound (wrapped) when the store answered
// but holds no such record. That is not a fault and must not trigger a
// fallback.
type Backend interface {
	Get(ctx context.Context, id string) (*domain.CVDocument, error)
	Find(ctx context.Context, filter Filter) ([]*domain.CVDocument, error)
	List(ctx context.Context) ([]*domain.CVDocument, error)
	Create(ctx context.Context, doc *domain.CVDocument) (*domain.CVDocument, error)
	Update(ctx context.Context, id string, upd domain.DocumentUpdate, updatedAt time.Time) (*domain.CVDocument, error)
	Delete(ctx context.Context, id string) error
}
