package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/pipeline"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
	"github.com/cvstudio/cvstudio-backend/pkg/messaging"
	"github.com/cvstudio/cvstudio-backend/pkg/testutil"
)

const sampleText = "Jane Doe\nSoftware Engineer\nExperienced backend developer with a decade of Go."

type fakeExtractor struct {
	fileType string
	text     string
	err      error
}

func (e *fakeExtractor) Name() string                  { return "fake" }
func (e *fakeExtractor) CanExtract(fileType string) bool { return fileType == e.fileType }
func (e *fakeExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return e.text, e.err
}

type fakeParser struct {
	record  *domain.CVRecord
	err     error
	barrier chan struct{} // when set, Parse blocks until the channel closes
}

func (p *fakeParser) Name() string { return "fake" }
func (p *fakeParser) Parse(ctx context.Context, text string) (*domain.CVRecord, error) {
	if p.barrier != nil {
		<-p.barrier
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.record, nil
}

type fakeObjects struct {
	key string
	err error
}

func (o *fakeObjects) Put(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.key = "uploads/test/" + fileName
	return o.key, nil
}

type fakeEvents struct {
	types []string
}

func (e *fakeEvents) Publish(ctx context.Context, eventType string, data interface{}) error {
	e.types = append(e.types, eventType)
	return nil
}

type runnerEnv struct {
	backend *testutil.MemBackend
	store   *store.Client
	objects *fakeObjects
	events  *fakeEvents
	runner  *pipeline.Runner
}

func newRunnerEnv(t *testing.T, extractor pipeline.Extractor, parser pipeline.Parser) *runnerEnv {
	t.Helper()
	log := logger.New("test", "test")
	backend := testutil.NewMemBackend()
	st := store.NewClient(backend, log)
	objects := &fakeObjects{}
	events := &fakeEvents{}

	runner := pipeline.NewRunner(
		st,
		pipeline.NewExtractorRegistry(extractor),
		parser,
		pipeline.NewFormatter(),
		objects,
		events,
		5*time.Second,
		log,
	)
	return &runnerEnv{backend: backend, store: st, objects: objects, events: events, runner: runner}
}

func textUpload() pipeline.Upload {
	return pipeline.Upload{
		FileName:    "jane.docx",
		FileType:    "docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Size:        2048,
		Creator:     "jane",
		Data:        []byte("raw bytes"),
	}
}

func TestRunCompletes(t *testing.T) {
	record := testutil.RecordFixture()
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{record: &record},
	)

	result := env.runner.Run(context.Background(), textUpload())
	require.Equal(t, pipeline.RunCompleted, result.Status, result.Message)
	require.NotEmpty(t, result.DocumentID)

	doc := env.backend.Snapshot(result.DocumentID)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, sampleText, doc.OriginalContent)
	assert.Equal(t, "Jane Doe", doc.ProcessedContent.PersonalInfo.Name)
	assert.Contains(t, doc.FormattedContent, "EXPERIENCE")
	assert.NotEmpty(t, doc.ProcessingLogs)
	assert.Equal(t, env.objects.key, doc.Metadata[domain.MetaObjectKey])
	assert.NotNil(t, doc.Metadata[domain.MetaFileSize])

	progress, ok := env.runner.Progress(result.DocumentID)
	require.True(t, ok)
	assert.Equal(t, domain.StepCompleted, progress.Step)
	assert.Equal(t, domain.ProgressCompleted, progress.Percent)
	assert.Empty(t, progress.Error)

	assert.Contains(t, env.events.types, messaging.EventDocumentProcessed)

	_, tracked := env.runner.Progress("")
	assert.False(t, tracked, "snapshots are only kept for known document ids")
}

func TestNotifyDeletedDropsProgress(t *testing.T) {
	record := testutil.RecordFixture()
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{record: &record},
	)

	result := env.runner.Run(context.Background(), textUpload())
	require.Equal(t, pipeline.RunCompleted, result.Status)

	env.runner.NotifyDeleted(context.Background(), result.DocumentID)

	_, ok := env.runner.Progress(result.DocumentID)
	assert.False(t, ok)
	assert.Contains(t, env.events.types, messaging.EventDocumentDeleted)
}

func TestRunProgressNeverDecreases(t *testing.T) {
	record := testutil.RecordFixture()
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{record: &record},
	)

	ch, cancel := env.runner.Subscribe()

	result := env.runner.Run(context.Background(), textUpload())
	require.Equal(t, pipeline.RunCompleted, result.Status)
	cancel()

	var percents []int
	for p := range ch {
		if p.DocumentID != result.DocumentID {
			continue
		}
		percents = append(percents, p.Percent)
	}

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1], "progress went backwards")
	}
	assert.Equal(t, domain.ProgressCompleted, percents[len(percents)-1])
}

func TestRunExtractionFailure(t *testing.T) {
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", err: errors.Extraction(nil, "corrupt archive")},
		&fakeParser{},
	)

	result := env.runner.Run(context.Background(), textUpload())
	require.Equal(t, pipeline.RunFailed, result.Status)
	require.NotEmpty(t, result.DocumentID)
	assert.Contains(t, result.Message, "corrupt archive")

	doc := env.backend.Snapshot(result.DocumentID)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusError, doc.Status)
	assert.Empty(t, doc.OriginalContent)

	progress, ok := env.runner.Progress(result.DocumentID)
	require.True(t, ok)
	assert.NotEmpty(t, progress.Error)
	assert.Less(t, progress.Percent, domain.ProgressCompleted)

	assert.Contains(t, env.events.types, messaging.EventDocumentFailed)
}

func TestRunParsingFailureKeepsExtractedContent(t *testing.T) {
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{err: errors.Parsing(nil, "no recognizable CV content")},
	)

	result := env.runner.Run(context.Background(), textUpload())
	require.Equal(t, pipeline.RunFailed, result.Status)

	doc := env.backend.Snapshot(result.DocumentID)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusError, doc.Status)
	assert.Equal(t, sampleText, doc.OriginalContent, "extraction results persist even when parsing fails")

	var errorLogged bool
	for _, entry := range doc.ProcessingLogs {
		if entry.Level == domain.LogLevelError {
			errorLogged = true
		}
	}
	assert.True(t, errorLogged)
}

func TestRunUnsupportedFileType(t *testing.T) {
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{},
	)

	upload := textUpload()
	upload.FileType = "csv"

	result := env.runner.Run(context.Background(), upload)
	require.Equal(t, pipeline.RunFailed, result.Status)
	assert.Contains(t, strings.ToLower(result.Message), "no extractor")

	doc := env.backend.Snapshot(result.DocumentID)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusError, doc.Status)
}

func TestReprocessRequiresOriginalContent(t *testing.T) {
	env := newRunnerEnv(t, &fakeExtractor{fileType: "docx"}, &fakeParser{})
	env.backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1"), func(d *domain.CVDocument) {
		d.OriginalContent = ""
		d.Status = domain.StatusError
	}))

	result := env.runner.Reprocess(context.Background(), "doc-1")
	require.Equal(t, pipeline.RunFailed, result.Status)
	assert.Contains(t, result.Message, "no extracted content")
}

func TestReprocessMissingDocument(t *testing.T) {
	env := newRunnerEnv(t, &fakeExtractor{fileType: "docx"}, &fakeParser{})

	result := env.runner.Reprocess(context.Background(), "missing")
	require.Equal(t, pipeline.RunFailed, result.Status)
}

func TestReprocessReplaysParsingAndFormatting(t *testing.T) {
	record := testutil.RecordFixture()
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", err: errors.Extraction(nil, "extractor must not run on reprocess")},
		&fakeParser{record: &record},
	)
	env.backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1"), func(d *domain.CVDocument) {
		d.OriginalContent = sampleText
		d.Status = domain.StatusError
	}))

	result := env.runner.Reprocess(context.Background(), "doc-1")
	require.Equal(t, pipeline.RunCompleted, result.Status, result.Message)

	doc := env.backend.Snapshot("doc-1")
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, sampleText, doc.OriginalContent)
	assert.Contains(t, env.events.types, messaging.EventDocumentReprocessed)
}

func TestConcurrentRunGuard(t *testing.T) {
	record := testutil.RecordFixture()
	barrier := make(chan struct{})
	env := newRunnerEnv(t,
		&fakeExtractor{fileType: "docx", text: sampleText},
		&fakeParser{record: &record, barrier: barrier},
	)
	env.backend.Seed(testutil.DocumentFixture(testutil.WithID("doc-1"), func(d *domain.CVDocument) {
		d.OriginalContent = sampleText
	}))

	done := make(chan pipeline.Result, 1)
	go func() {
		done <- env.runner.Reprocess(context.Background(), "doc-1")
	}()

	require.Eventually(t, func() bool {
		return env.runner.Running("doc-1")
	}, 2*time.Second, 10*time.Millisecond)

	second := env.runner.Reprocess(context.Background(), "doc-1")
	assert.Equal(t, pipeline.RunFailed, second.Status)
	assert.Contains(t, second.Message, "already being processed")

	close(barrier)
	first := <-done
	assert.Equal(t, pipeline.RunCompleted, first.Status, first.Message)
	assert.False(t, env.runner.Running("doc-1"))
}
