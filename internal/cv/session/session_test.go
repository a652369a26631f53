package session_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/session"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
	"github.com/cvstudio/cvstudio-backend/pkg/testutil"
)

func newSession(backend *testutil.MemBackend) *session.Session {
	log := logger.New("test", "test")
	return session.New(store.NewClient(backend, log), log)
}

func TestLoadStates(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1")))

	sess := newSession(backend)

	state, _ := sess.State()
	assert.Equal(t, session.StateLoading, state)

	require.NoError(t, sess.Load(context.Background(), "doc-1"))
	state, loadErr := sess.State()
	assert.Equal(t, session.StateLoaded, state)
	assert.NoError(t, loadErr)
	assert.False(t, sess.Dirty())

	doc, ok := sess.Document()
	require.True(t, ok)
	assert.Equal(t, "doc-1", doc.ID)
}

func TestLoadNotFound(t *testing.T) {
	sess := newSession(testutil.NewMemBackend())

	err := sess.Load(context.Background(), "missing")
	require.Error(t, err)

	state, loadErr := sess.State()
	assert.Equal(t, session.StateNotFound, state)
	assert.Error(t, loadErr)

	_, ok := sess.Document()
	assert.False(t, ok)
}

func TestLoadStoreFault(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.FailGet = fmt.Errorf("connection refused")
	backend.FailFind = fmt.Errorf("connection refused")
	backend.FailList = fmt.Errorf("connection refused")

	sess := newSession(backend)

	err := sess.Load(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	state, _ := sess.State()
	assert.Equal(t, session.StateError, state, "a store fault is not the same as a missing document")
}

func TestEditsMarkSessionDirty(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1")))

	sess := newSession(backend)
	require.NoError(t, sess.Load(context.Background(), "doc-1"))

	require.NoError(t, sess.SetPersonalInfo(domain.PersonalInfo{Name: "Janet Doe"}))
	assert.True(t, sess.Dirty())

	doc, ok := sess.Document()
	require.True(t, ok)
	assert.Equal(t, "Janet Doe", doc.ProcessedContent.PersonalInfo.Name)

	// Local edits must not reach the store before Save.
	stored := backend.Snapshot("doc-1")
	assert.NotEqual(t, "Janet Doe", stored.ProcessedContent.PersonalInfo.Name)
}

func TestSaveClearsDirtyOnSuccess(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1")))

	sess := newSession(backend)
	require.NoError(t, sess.Load(context.Background(), "doc-1"))

	record := testutil.RecordFixture()
	record.PersonalInfo.Name = "Janet Doe"
	require.NoError(t, sess.SetRecord(record))
	require.True(t, sess.Dirty())

	require.NoError(t, sess.Save(context.Background()))
	assert.False(t, sess.Dirty())

	stored := backend.Snapshot("doc-1")
	assert.Equal(t, "Janet Doe", stored.ProcessedContent.PersonalInfo.Name)
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1")))

	sess := newSession(backend)
	require.NoError(t, sess.Load(context.Background(), "doc-1"))
	require.NoError(t, sess.SetPersonalInfo(domain.PersonalInfo{Name: "Janet Doe"}))

	backend.FailUpdate = fmt.Errorf("write refused")
	require.Error(t, sess.Save(context.Background()))
	assert.True(t, sess.Dirty(), "unsaved edits stay dirty after a failed save")
}

func TestDiscardReloadsFromStore(t *testing.T) {
	backend := testutil.NewMemBackend()
	backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1")))

	sess := newSession(backend)
	require.NoError(t, sess.Load(context.Background(), "doc-1"))
	require.NoError(t, sess.SetPersonalInfo(domain.PersonalInfo{Name: "Janet Doe"}))

	require.NoError(t, sess.Discard(context.Background()))
	assert.False(t, sess.Dirty())

	doc, ok := sess.Document()
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", doc.ProcessedContent.PersonalInfo.Name)
}

func TestEditsWithoutLoadedDocument(t *testing.T) {
	sess := newSession(testutil.NewMemBackend())

	err := sess.SetPersonalInfo(domain.PersonalInfo{Name: "Jane"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	err = sess.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}
