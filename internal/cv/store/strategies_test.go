package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
)

// fakeBackend records which operations were called and dispatches to
// optional func fields. Operations without a func behave as unsupported.
type fakeBackend struct {
	calls []string

	getFn    func(id string) (*domain.CVDocument, error)
	findFn   func(filter store.Filter) ([]*domain.CVDocument, error)
	listFn   func() ([]*domain.CVDocument, error)
	createFn func(doc *domain.CVDocument) (*domain.CVDocument, error)
	updateFn func(id string, upd domain.DocumentUpdate, updatedAt time.Time) (*domain.CVDocument, error)
	deleteFn func(id string) error
}

func (b *fakeBackend) Get(ctx context.Context, id string) (*domain.CVDocument, error) {
	b.calls = append(b.calls, "get")
	if b.getFn == nil {
		return nil, fmt.Errorf("get: %w", errors.ErrUnsupported)
	}
	return b.getFn(id)
}

func (b *fakeBackend) Find(ctx context.Context, filter store.Filter) ([]*domain.CVDocument, error) {
	b.calls = append(b.calls, "find")
	if b.findFn == nil {
		return nil, fmt.Errorf("find: %w", errors.ErrUnsupported)
	}
	return b.findFn(filter)
}

func (b *fakeBackend) List(ctx context.Context) ([]*domain.CVDocument, error) {
	b.calls = append(b.calls, "list")
	if b.listFn == nil {
		return nil, fmt.Errorf("list: %w", errors.ErrUnsupported)
	}
	return b.listFn()
}

func (b *fakeBackend) Create(ctx context.Context, doc *domain.CVDocument) (*domain.CVDocument, error) {
	b.calls = append(b.calls, "create")
	if b.createFn == nil {
		return nil, fmt.Errorf("create: %w", errors.ErrUnsupported)
	}
	return b.createFn(doc)
}

func (b *fakeBackend) Update(ctx context.Context, id string, upd domain.DocumentUpdate, updatedAt time.Time) (*domain.CVDocument, error) {
	b.calls = append(b.calls, "update")
	if b.updateFn == nil {
		return nil, fmt.Errorf("update: %w", errors.ErrUnsupported)
	}
	return b.updateFn(id, upd, updatedAt)
}

func (b *fakeBackend) Delete(ctx context.Context, id string) error {
	b.calls = append(b.calls, "delete")
	if b.deleteFn == nil {
		return fmt.Errorf("delete: %w", errors.ErrUnsupported)
	}
	return b.deleteFn(id)
}

func testLogger() *logger.Logger {
	return logger.New("test", "test")
}

func sampleDoc(id string) *domain.CVDocument {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.CVDocument{
		ID:        id,
		FileName:  "cv.pdf",
		FileType:  "pdf",
		Status:    domain.StatusProcessed,
		Creator:   "alice",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestGetUsesDirectGetFirst(t *testing.T) {
	want := sampleDoc("doc-1")
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) { return want, nil },
	}
	client := store.NewClient(backend, testLogger())

	doc, err := client.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []string{"get"}, backend.calls)
}

func TestGetFallsBackToFindOnFault(t *testing.T) {
	want := sampleDoc("doc-1")
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) {
			return nil, fmt.Errorf("connection reset")
		},
		findFn: func(filter store.Filter) ([]*domain.CVDocument, error) {
			assert.Equal(t, "doc-1", filter.ID)
			return []*domain.CVDocument{want}, nil
		},
	}
	client := store.NewClient(backend, testLogger())

	doc, err := client.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []string{"get", "find"}, backend.calls)
}

func TestGetUnsupportedOperationTriggersFallback(t *testing.T) {
	// No getFn: the backend reports the capability as unsupported.
	backend := &fakeBackend{
		findFn: func(filter store.Filter) ([]*domain.CVDocument, error) {
			return []*domain.CVDocument{sampleDoc("doc-1")}, nil
		},
	}
	client := store.NewClient(backend, testLogger())

	doc, err := client.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []string{"get", "find"}, backend.calls)
}

func TestGetCleanNotFoundEndsChain(t *testing.T) {
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) {
			return nil, errors.NotFound("CV document")
		},
	}
	client := store.NewClient(backend, testLogger())

	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, []string{"get"}, backend.calls, "a clean not-found must not trigger fallback")
}

func TestGetEmptyFindResultIsNotFound(t *testing.T) {
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) {
			return nil, fmt.Errorf("timeout")
		},
		findFn: func(filter store.Filter) ([]*domain.CVDocument, error) {
			return nil, nil
		},
	}
	client := store.NewClient(backend, testLogger())

	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, []string{"get", "find"}, backend.calls)
}

func TestGetListScanFindsDocument(t *testing.T) {
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) {
			return nil, fmt.Errorf("timeout")
		},
		findFn: func(filter store.Filter) ([]*domain.CVDocument, error) {
			return nil, fmt.Errorf("query planner exploded")
		},
		listFn: func() ([]*domain.CVDocument, error) {
			return []*domain.CVDocument{sampleDoc("other"), sampleDoc("doc-1")}, nil
		},
	}
	client := store.NewClient(backend, testLogger())

	doc, err := client.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []string{"get", "find", "list"}, backend.calls)
}

func TestGetAggregatesAllFaults(t *testing.T) {
	backend := &fakeBackend{
		getFn: func(id string) (*domain.CVDocument, error) {
			return nil, fmt.Errorf("get exploded")
		},
		findFn: func(filter store.Filter) ([]*domain.CVDocument, error) {
			return nil, fmt.Errorf("find exploded")
		},
		listFn: func() ([]*domain.CVDocument, error) {
			return nil, fmt.Errorf("list exploded")
		},
	}
	client := store.NewClient(backend, testLogger())

	_, err := client.Get(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
	assert.False(t, errors.Is(err, errors.ErrNotFound))

	// The aggregated error names every strategy that failed.
	msg := err.Error()
	assert.Contains(t, msg, "direct_get")
	assert.Contains(t, msg, "filtered_find")
	assert.Contains(t, msg, "list_scan")
	assert.Equal(t, []string{"get", "find", "list"}, backend.calls)
}

func TestGetCustomStrategyOrder(t *testing.T) {
	backend := &fakeBackend{
		listFn: func() ([]*domain.CVDocument, error) {
			return []*domain.CVDocument{sampleDoc("doc-1")}, nil
		},
	}

	scanOnly := []store.RetrievalStrategy{{
		Name: "scan_only",
		Fetch: func(ctx context.Context, b store.Backend, id string) (*domain.CVDocument, error) {
			docs, err := b.List(ctx)
			if err != nil {
				return nil, err
			}
			for _, doc := range docs {
				if doc.ID == id {
					return doc, nil
				}
			}
			return nil, errors.NotFound("CV document")
		},
	}}

	client := store.NewClient(backend, testLogger(), store.WithStrategies(scanOnly))

	doc, err := client.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []string{"list"}, backend.calls)
}
