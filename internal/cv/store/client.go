package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
)

// NoticeLevel classifies a user-facing notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing notification about a store operation outcome.
// Benign conditions (empty list, not-found lookups) never produce one.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Creation defaults applied when a caller omits fields
const (
	DefaultFileName = "untitled.pdf"
	DefaultFileType = "pdf"
	DefaultCreator  = "unknown"
)

// Client is the document store client. It wraps a Backend with argument
// validation, the retrieval fallback chain, and an in-memory mirror of the
// document listing that is kept consistent with the last known-good store
// response. Failed writes never touch the mirror.
type Client struct {
	backend    Backend
	strategies []RetrievalStrategy
	log        *logger.Logger
	now        func() time.Time

	mu      sync.RWMutex
	cache   map[string]*domain.CVDocument
	order   []string
	lastErr string

	onNotice func(Notice)
}

// Option configures a Client
type Option func(*Client)

// WithStrategies overrides the retrieval strategy chain
func WithStrategies(strategies []RetrievalStrategy) Option {
	return func(c *Client) { c.strategies = strategies }
}

// WithNotices registers a callback for user-facing notices
func WithNotices(fn func(Notice)) Option {
	return func(c *Client) { c.onNotice = fn }
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a document store client over the given backend
func NewClient(backend Backend, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		backend:    backend,
		strategies: defaultStrategies(),
		log:        log.WithComponent("cv_store"),
		now:        time.Now,
		cache:      make(map[string]*domain.CVDocument),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LastError returns the message recorded by the most recent failed
// operation, or "" after a success.
func (c *Client) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// List returns all documents for the current scope. The result is never
// nil. Faults are recorded and notified, but an empty or missing
// collection is a benign condition and returns an empty slice silently.
func (c *Client) List(ctx context.Context) ([]*domain.CVDocument, error) {
	docs, err := c.backend.List(ctx)
	if err != nil {
		c.setError(err.Error())
		if !isBenignListError(err) {
			c.notify(Notice{Level: NoticeError, Message: "Loading error: " + err.Error()})
		}
		c.log.Error().Err(err).Msg("failed to list CV documents")
		return []*domain.CVDocument{}, err
	}

	if docs == nil {
		docs = []*domain.CVDocument{}
	}

	c.mu.Lock()
	c.lastErr = ""
	c.cache = make(map[string]*domain.CVDocument, len(docs))
	c.order = c.order[:0]
	for _, doc := range docs {
		copied := *doc
		c.cache[doc.ID] = &copied
		c.order = append(c.order, doc.ID)
	}
	c.mu.Unlock()

	return docs, nil
}

// Cached returns the client-held mirror of the listing in its last known
// order, without touching the store.
func (c *Client) Cached() []*domain.CVDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	docs := make([]*domain.CVDocument, 0, len(c.order))
	for _, id := range c.order {
		if doc, ok := c.cache[id]; ok {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	return docs
}

// Get retrieves a single document, degrading through the retrieval
// strategy chain. An empty id fails fast before any store call.
func (c *Client) Get(ctx context.Context, id string) (*domain.CVDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidArgument("document id is required")
	}

	doc, err := fetchWithFallback(ctx, c.backend, id, c.strategies, c.log)
	if err != nil {
		c.setError(err.Error())
		if !errors.Is(err, errors.ErrNotFound) {
			c.notify(Notice{Level: NoticeError, Message: err.Error()})
		}
		return nil, err
	}

	c.setError("")
	return doc, nil
}

// Create writes a new document, filling defaults for missing fields. The
// store assigns the id. On success the listing mirror is refreshed so the
// dashboard stays consistent.
func (c *Client) Create(ctx context.Context, partial domain.CVDocument) (*domain.CVDocument, error) {
	if partial.ID != "" {
		return nil, errors.InvalidArgument("document id is assigned by the store")
	}

	now := c.now().UTC()
	doc := partial
	if doc.FileName == "" {
		doc.FileName = DefaultFileName
	}
	if doc.FileType == "" {
		doc.FileType = DefaultFileType
	}
	if doc.Status == "" {
		doc.Status = domain.StatusUploaded
	}
	if doc.ProcessingLogs == nil {
		doc.ProcessingLogs = domain.LogList{}
	}
	if doc.Metadata == nil {
		doc.Metadata = domain.Metadata{}
	}
	if doc.Creator == "" {
		doc.Creator = DefaultCreator
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	created, err := c.backend.Create(ctx, &doc)
	if err != nil {
		c.setError(err.Error())
		c.notify(Notice{Level: NoticeError, Message: "Failed to create CV document"})
		c.log.Error().Err(err).Str("file_name", doc.FileName).Msg("failed to create CV document")
		return nil, errors.Persist(err)
	}

	// Refresh the listing so any cached view picks up the new record.
	if _, err := c.List(ctx); err != nil {
		c.log.Warn().Err(err).Msg("list refresh after create failed")
	}

	c.setError("")
	c.notify(Notice{Level: NoticeSuccess, Message: "CV document created successfully"})
	return created, nil
}

// Update applies a partial update against the stored record and stamps
// UpdatedAt. On success the cache entry is merged with the result so
// concurrent unrelated fields are not lost.
func (c *Client) Update(ctx context.Context, id string, upd domain.DocumentUpdate) (*domain.CVDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidArgument("document id is required for update")
	}

	updated, err := c.backend.Update(ctx, id, upd, c.now().UTC())
	if err != nil {
		c.setError(err.Error())
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		c.notify(Notice{Level: NoticeError, Message: "Failed to update CV document"})
		c.log.Error().Err(err).Str("document_id", id).Msg("failed to update CV document")
		return nil, errors.Persist(err)
	}

	c.mu.Lock()
	c.lastErr = ""
	if cached, ok := c.cache[id]; ok {
		merged := *updated
		// Keep fields the update didn't touch from the cached copy.
		if upd.Metadata == nil && len(cached.Metadata) > 0 && len(merged.Metadata) == 0 {
			merged.Metadata = cached.Metadata
		}
		c.cache[id] = &merged
	}
	c.mu.Unlock()

	return updated, nil
}

// Delete removes the record from the store and evicts it from the mirror
// immediately, without waiting for a refetch.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.InvalidArgument("document id is required for deletion")
	}

	if err := c.backend.Delete(ctx, id); err != nil {
		c.setError(err.Error())
		c.notify(Notice{Level: NoticeError, Message: "Failed to delete CV document"})
		c.log.Error().Err(err).Str("document_id", id).Msg("failed to delete CV document")
		return false, err
	}

	c.mu.Lock()
	c.lastErr = ""
	delete(c.cache, id)
	for i, cachedID := range c.order {
		if cachedID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.notify(Notice{Level: NoticeSuccess, Message: "CV document deleted successfully"})
	return true, nil
}

// UpdateStatus is a convenience composition over Update. When logs are
// given they replace the processing history wholesale; callers that need
// append semantics must read-modify-write.
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.Status, logs domain.LogList) (bool, error) {
	upd := domain.DocumentUpdate{Status: &status}
	if logs != nil {
		upd.ProcessingLogs = &logs
	}

	if _, err := c.Update(ctx, id, upd); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

func (c *Client) notify(n Notice) {
	if c.onNotice != nil {
		c.onNotice(n)
	}
}

// isBenignListError reports whether a list failure only means the
// collection does not exist yet or is empty. Those conditions must not
// fire a user-facing error.
func isBenignListError(err error) bool {
	if errors.Is(err, errors.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "empty")
}
