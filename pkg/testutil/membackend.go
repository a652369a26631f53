package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

// MemBackend is an in-memory document store backend for tests. Faults can
// be injected per operation to exercise degraded paths.
type MemBackend struct {
	mu    sync.Mutex
	docs  map[string]*domain.CVDocument
	order []string

	FailGet    error
	FailFind   error
	FailList   error
	FailCreate error
	FailUpdate error
	FailDelete error
}

// NewMemBackend creates an empty in-memory backend
func NewMemBackend() *MemBackend {
	return &MemBackend{docs: make(map[string]*domain.CVDocument)}
}

// Seed inserts documents directly, bypassing Create
func (b *MemBackend) Seed(docs ...domain.CVDocument) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, doc := range docs {
		copied := doc
		b.docs[doc.ID] = &copied
		b.order = append(b.order, doc.ID)
	}
}

// Snapshot returns the stored copy of a document, or nil
func (b *MemBackend) Snapshot(id string) *domain.CVDocument {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		return nil
	}
	copied := *doc
	return &copied
}

func (b *MemBackend) Get(ctx context.Context, id string) (*domain.CVDocument, error) {
	if b.FailGet != nil {
		return nil, b.FailGet
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		return nil, errors.NotFound("CV document")
	}
	copied := *doc
	return &copied, nil
}

func (b *MemBackend) Find(ctx context.Context, filter store.Filter) ([]*domain.CVDocument, error) {
	if b.FailFind != nil {
		return nil, b.FailFind
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*domain.CVDocument
	for _, id := range b.order {
		doc, ok := b.docs[id]
		if !ok {
			continue
		}
		if filter.ID != "" && doc.ID != filter.ID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.Creator != "" && doc.Creator != filter.Creator {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (b *MemBackend) List(ctx context.Context) ([]*domain.CVDocument, error) {
	if b.FailList != nil {
		return nil, b.FailList
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*domain.CVDocument, 0, len(b.order))
	for _, id := range b.order {
		if doc, ok := b.docs[id]; ok {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (b *MemBackend) Create(ctx context.Context, doc *domain.CVDocument) (*domain.CVDocument, error) {
	if b.FailCreate != nil {
		return nil, b.FailCreate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	created := *doc
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	stored := created
	b.docs[created.ID] = &stored
	b.order = append(b.order, created.ID)
	return &created, nil
}

func (b *MemBackend) Update(ctx context.Context, id string, upd domain.DocumentUpdate, updatedAt time.Time) (*domain.CVDocument, error) {
	if b.FailUpdate != nil {
		return nil, b.FailUpdate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		return nil, errors.NotFound("CV document")
	}
	upd.Apply(doc, updatedAt)
	copied := *doc
	return &copied, nil
}

func (b *MemBackend) Delete(ctx context.Context, id string) error {
	if b.FailDelete != nil {
		return b.FailDelete
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[id]; !ok {
		return errors.NotFound("CV document")
	}
	delete(b.docs, id)
	for i, storedID := range b.order {
		if storedID == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}
