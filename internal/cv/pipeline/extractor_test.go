package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/pipeline"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/testutil"
)

func TestRegistryNormalizesFileType(t *testing.T) {
	registry := pipeline.NewExtractorRegistry(pipeline.NewDocxExtractor(), pipeline.NewXlsxExtractor())

	assert.NotNil(t, registry.Find("docx"))
	assert.NotNil(t, registry.Find(".docx"))
	assert.NotNil(t, registry.Find("DOCX"))
	assert.NotNil(t, registry.Find(".XLSX"))
	assert.Nil(t, registry.Find("csv"))
	assert.Nil(t, registry.Find(""))
}

func TestDocxExtract(t *testing.T) {
	data := testutil.DocxFixture("Jane Doe", "Software Engineer", "Profile")

	extractor := pipeline.NewDocxExtractor()
	text, err := extractor.Extract(context.Background(), data)
	require.NoError(t, err)

	assert.Contains(t, text, "Jane Doe\n")
	assert.Contains(t, text, "Software Engineer\n")
	assert.Contains(t, text, "Profile\n")
}

func TestDocxExtractInvalidArchive(t *testing.T) {
	extractor := pipeline.NewDocxExtractor()

	_, err := extractor.Extract(context.Background(), []byte("this is not a zip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExtraction))
}

func TestDocxExtractEmptyDocument(t *testing.T) {
	extractor := pipeline.NewDocxExtractor()

	_, err := extractor.Extract(context.Background(), testutil.DocxFixture())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExtraction))
}

func TestXlsxExtract(t *testing.T) {
	data := testutil.XlsxFixture(
		[]string{"Name", "Jane Doe"},
		[]string{"Role", "Software Engineer"},
	)

	extractor := pipeline.NewXlsxExtractor()
	text, err := extractor.Extract(context.Background(), data)
	require.NoError(t, err)

	assert.Contains(t, text, "Name\tJane Doe\n")
	assert.Contains(t, text, "Role\tSoftware Engineer\n")
}

func TestXlsxExtractInvalidArchive(t *testing.T) {
	extractor := pipeline.NewXlsxExtractor()

	_, err := extractor.Extract(context.Background(), []byte{0x00, 0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExtraction))
}
