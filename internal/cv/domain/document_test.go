package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

func TestDocumentUpdateIsEmpty(t *testing.T) {
	assert.True(t, domain.DocumentUpdate{}.IsEmpty())

	content := "text"
	assert.False(t, domain.DocumentUpdate{OriginalContent: &content}.IsEmpty())

	status := domain.StatusError
	assert.False(t, domain.DocumentUpdate{Status: &status}.IsEmpty())
}

func TestDocumentUpdateApply(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := domain.CVDocument{
		ID:              "doc-1",
		FileName:        "cv.pdf",
		OriginalContent: "old",
		Status:          domain.StatusProcessing,
		Metadata:        domain.Metadata{domain.MetaFileSize: float64(100)},
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	content := "new"
	status := domain.StatusProcessed
	now := createdAt.Add(time.Minute)
	domain.DocumentUpdate{OriginalContent: &content, Status: &status}.Apply(&doc, now)

	assert.Equal(t, "new", doc.OriginalContent)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, now, doc.UpdatedAt)

	// Untouched fields survive a partial update.
	assert.Equal(t, "cv.pdf", doc.FileName)
	assert.Equal(t, float64(100), doc.Metadata[domain.MetaFileSize])
	assert.Equal(t, createdAt, doc.CreatedAt)
	assert.True(t, !doc.UpdatedAt.Before(doc.CreatedAt))
}

func TestLogListScanRoundTrip(t *testing.T) {
	logs := domain.LogList{
		{Stage: "extraction", Level: domain.LogLevelInfo, Message: "ok", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	value, err := logs.Value()
	require.NoError(t, err)

	var scanned domain.LogList
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, "extraction", scanned[0].Stage)
	assert.Equal(t, domain.LogLevelInfo, scanned[0].Level)
}

func TestLogListScanNil(t *testing.T) {
	var logs domain.LogList
	require.NoError(t, logs.Scan(nil))
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestMetadataScanString(t *testing.T) {
	var meta domain.Metadata
	require.NoError(t, meta.Scan(`{"fileSize": 42}`))
	assert.Equal(t, float64(42), meta[domain.MetaFileSize])
}
