package session

import (
	"context"
	"sync"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
)

// LoadState tells the editor apart from "still loading", "nothing there"
// and "the store broke".
type LoadState int

const (
	StateLoading LoadState = iota
	StateLoaded
	StateNotFound
	StateError
)

// Session holds an in-memory working copy of one CV document for the
// editor. Local edits only touch the structured record and mark the
// session dirty; nothing reaches the store until Save.
type Session struct {
	store *store.Client
	log   *logger.Logger

	mu      sync.Mutex
	doc     *domain.CVDocument
	state   LoadState
	loadErr error
	dirty   bool
}

// New creates an editing session over the store client
func New(st *store.Client, log *logger.Logger) *Session {
	return &Session{
		store: st,
		log:   log.WithComponent("cv_session"),
		state: StateLoading,
	}
}

// Load fetches the document into the working copy
func (s *Session) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	s.state = StateLoading
	s.loadErr = nil
	s.mu.Unlock()

	doc, err := s.store.Get(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.state = StateNotFound
		} else {
			s.state = StateError
		}
		s.loadErr = err
		s.doc = nil
		return err
	}

	s.doc = doc
	s.state = StateLoaded
	s.dirty = false
	return nil
}

// State returns the load state and any load error
func (s *Session) State() (LoadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadErr
}

// Dirty reports whether the working copy has unsaved edits
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Document returns a copy of the working document
func (s *Session) Document() (domain.CVDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return domain.CVDocument{}, false
	}
	return *s.doc, true
}

// SetRecord replaces the structured record in the working copy
func (s *Session) SetRecord(record domain.CVRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return errors.InvalidArgument("no document loaded")
	}
	s.doc.ProcessedContent = record
	s.dirty = true
	return nil
}

// SetPersonalInfo updates the identity block of the working copy
func (s *Session) SetPersonalInfo(info domain.PersonalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return errors.InvalidArgument("no document loaded")
	}
	s.doc.ProcessedContent.PersonalInfo = info
	s.dirty = true
	return nil
}

// Save pushes the working copy through the store. The dirty flag clears
// only on success; there is no automatic retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return errors.InvalidArgument("no document loaded")
	}
	id := s.doc.ID
	record := s.doc.ProcessedContent
	s.mu.Unlock()

	updated, err := s.store.Update(ctx, id, domain.DocumentUpdate{
		ProcessedContent: &record,
	})
	if err != nil {
		s.log.Error().Err(err).Str("document_id", id).Msg("failed to save CV edits")
		return err
	}

	s.mu.Lock()
	s.doc = updated
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Discard drops unsaved edits by reloading from the store
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return errors.InvalidArgument("no document loaded")
	}
	id := s.doc.ID
	s.mu.Unlock()

	return s.Load(ctx, id)
}
