package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
	"github.com/cvstudio/cvstudio-backend/pkg/messaging"
)

// Upload carries one validated file into the pipeline
type Upload struct {
	FileName    string
	FileType    string
	ContentType string
	Size        int64
	Creator     string
	Data        []byte
}

// RunStatus is the outcome of a pipeline run
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Result reports a finished pipeline run to the caller
type Result struct {
	DocumentID string    `json:"documentId"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
}

// ObjectStorage is the seam for keeping raw upload bytes
type ObjectStorage interface {
	Put(ctx context.Context, fileName string, data []byte, contentType string) (string, error)
}

// EventPublisher is the seam for lifecycle events; satisfied by
// messaging.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Runner drives a CV document through upload → extraction → parsing →
// formatting → persist. Stages run strictly in order, each behind the
// configured timeout, publishing progress snapshots as it goes. Any stage
// failure marks the document as errored and halts the remaining stages;
// results persisted by earlier stages are kept.
type Runner struct {
	store      *store.Client
	extractors *ExtractorRegistry
	parser     Parser
	formatter  *Formatter
	objects    ObjectStorage
	events     EventPublisher
	log        *logger.Logger

	stageTimeout time.Duration
	progress     *progressBroker

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunner creates a pipeline runner. objects and events may be nil.
func NewRunner(st *store.Client, extractors *ExtractorRegistry, parser Parser, formatter *Formatter, objects ObjectStorage, events EventPublisher, stageTimeout time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		store:        st,
		extractors:   extractors,
		parser:       parser,
		formatter:    formatter,
		objects:      objects,
		events:       events,
		log:          log.WithComponent("cv_pipeline"),
		stageTimeout: stageTimeout,
		progress:     newProgressBroker(),
		active:       make(map[string]struct{}),
	}
}

// Subscribe returns a channel of progress snapshots and a cancel func
func (r *Runner) Subscribe() (<-chan domain.Progress, func()) {
	return r.progress.subscribe()
}

// Progress returns the latest snapshot for a document, if any
func (r *Runner) Progress(documentID string) (domain.Progress, bool) {
	return r.progress.snapshot(documentID)
}

// Running reports whether a pipeline run is active for the document
func (r *Runner) Running(documentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[documentID]
	return ok
}

func (r *Runner) acquire(documentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[documentID]; ok {
		return false
	}
	r.active[documentID] = struct{}{}
	return true
}

func (r *Runner) release(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, documentID)
}

// Run processes one uploaded file end to end and returns the outcome.
// It never panics across the pipeline boundary; failures come back in the
// Result with the document left in an error state.
func (r *Runner) Run(ctx context.Context, upload Upload) Result {
	log := r.log.WithComponent("run")

	logs := domain.LogList{stageLog(domain.StepUpload, domain.LogLevelInfo, "upload received: "+upload.FileName)}

	metadata := domain.Metadata{
		domain.MetaFileSize:   upload.Size,
		domain.MetaUploadTime: time.Now().UTC().Format(time.RFC3339),
	}

	// Keep the raw bytes so extraction can be replayed later. Losing the
	// object is not fatal to the run.
	if r.objects != nil {
		if key, err := r.objects.Put(ctx, upload.FileName, upload.Data, upload.ContentType); err != nil {
			log.Warn().Err(err).Msg("failed to store raw upload")
		} else {
			metadata[domain.MetaObjectKey] = key
		}
	}

	doc, err := r.store.Create(ctx, domain.CVDocument{
		FileName: upload.FileName,
		FileType: upload.FileType,
		Status:   domain.StatusProcessing,
		Metadata: metadata,
		Creator:  upload.Creator,
	})
	if err != nil {
		// No document id yet, so there is no snapshot to publish.
		return Result{Status: RunFailed, Message: err.Error()}
	}
	docID := doc.ID
	r.emit(ctx, messaging.EventDocumentCreated, docID, domain.StatusProcessing)

	if !r.acquire(docID) {
		return Result{DocumentID: docID, Status: RunFailed, Message: "document is already being processed"}
	}
	defer r.release(docID)

	r.publish(docID, domain.StepUpload, domain.ProgressUpload, "")

	// Extraction
	text, err := r.extract(ctx, upload)
	if err != nil {
		return r.fail(ctx, docID, domain.StepExtraction, domain.ProgressUpload, logs, err)
	}
	logs = append(logs, stageLog(domain.StepExtraction, domain.LogLevelInfo, "content extracted"))

	if _, err := r.store.Update(ctx, docID, domain.DocumentUpdate{
		OriginalContent: &text,
		ProcessingLogs:  &logs,
	}); err != nil {
		return r.fail(ctx, docID, domain.StepExtraction, domain.ProgressUpload, logs, errors.Persist(err))
	}
	r.publish(docID, domain.StepExtraction, domain.ProgressExtraction, "")

	return r.parseAndPersist(ctx, docID, text, logs, messaging.EventDocumentProcessed)
}

// Reprocess replays the parsing and formatting stages from the stored
// original content. Extraction is not repeated.
func (r *Runner) Reprocess(ctx context.Context, documentID string) Result {
	if !r.acquire(documentID) {
		return Result{DocumentID: documentID, Status: RunFailed, Message: "document is already being processed"}
	}
	defer r.release(documentID)

	doc, err := r.store.Get(ctx, documentID)
	if err != nil {
		return Result{DocumentID: documentID, Status: RunFailed, Message: err.Error()}
	}

	if doc.OriginalContent == "" {
		return Result{DocumentID: documentID, Status: RunFailed, Message: "document has no extracted content to reprocess"}
	}

	logs := append(domain.LogList{}, doc.ProcessingLogs...)
	logs = append(logs, stageLog(domain.StepParsing, domain.LogLevelInfo, "reprocessing started"))

	if ok, err := r.store.UpdateStatus(ctx, documentID, domain.StatusProcessing, logs); !ok {
		return Result{DocumentID: documentID, Status: RunFailed, Message: err.Error()}
	}
	r.publish(documentID, domain.StepParsing, domain.ProgressUpload, "")

	return r.parseAndPersist(ctx, documentID, doc.OriginalContent, logs, messaging.EventDocumentReprocessed)
}

// NotifyDeleted publishes the deletion lifecycle event for a document
// that was removed outside a pipeline run and drops its retained
// progress snapshot.
func (r *Runner) NotifyDeleted(ctx context.Context, documentID string) {
	r.progress.forget(documentID)
	r.emit(ctx, messaging.EventDocumentDeleted, documentID, "")
}

// parseAndPersist runs the shared tail of Run and Reprocess: parsing,
// formatting and the final persist.
func (r *Runner) parseAndPersist(ctx context.Context, docID, text string, logs domain.LogList, eventType string) Result {
	record, err := r.parse(ctx, text)
	if err != nil {
		return r.fail(ctx, docID, domain.StepParsing, domain.ProgressExtraction, logs, err)
	}
	logs = append(logs, stageLog(domain.StepParsing, domain.LogLevelInfo, "content parsed with "+r.parser.Name()))
	r.publish(docID, domain.StepParsing, domain.ProgressParsing, "")

	formatted := r.formatter.Format(record)
	logs = append(logs, stageLog(domain.StepFormatting, domain.LogLevelInfo, "content formatted"))
	r.publish(docID, domain.StepFormatting, domain.ProgressFormatting, "")

	status := domain.StatusProcessed
	if _, err := r.store.Update(ctx, docID, domain.DocumentUpdate{
		ProcessedContent: record,
		FormattedContent: &formatted,
		Status:           &status,
		ProcessingLogs:   &logs,
	}); err != nil {
		return r.fail(ctx, docID, domain.StepFormatting, domain.ProgressFormatting, logs, errors.Persist(err))
	}

	r.publish(docID, domain.StepCompleted, domain.ProgressCompleted, "")
	r.emit(ctx, eventType, docID, domain.StatusProcessed)

	r.log.Info().Str("document_id", docID).Msg("pipeline run completed")
	return Result{DocumentID: docID, Status: RunCompleted}
}

func (r *Runner) extract(ctx context.Context, upload Upload) (string, error) {
	extractor := r.extractors.Find(upload.FileType)
	if extractor == nil {
		return "", errors.Extraction(nil, "no extractor available for file type: "+upload.FileType)
	}

	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	r.log.Info().
		Str("extractor", extractor.Name()).
		Str("file_name", upload.FileName).
		Msg("extracting content")

	return extractor.Extract(ctx, upload.Data)
}

func (r *Runner) parse(ctx context.Context, text string) (*domain.CVRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()
	return r.parser.Parse(ctx, text)
}

// fail records the stage failure, marks the document errored and halts
// the run. Partial results already persisted stay in place.
func (r *Runner) fail(ctx context.Context, docID string, step domain.Step, percent int, logs domain.LogList, cause error) Result {
	logs = append(logs, stageLog(step, domain.LogLevelError, cause.Error()))

	if ok, err := r.store.UpdateStatus(ctx, docID, domain.StatusError, logs); !ok {
		r.log.Error().Err(err).Str("document_id", docID).Msg("failed to record error status")
	}

	r.publish(docID, step, percent, cause.Error())
	r.emit(ctx, messaging.EventDocumentFailed, docID, domain.StatusError)

	r.log.Error().Err(cause).
		Str("document_id", docID).
		Str("step", string(step)).
		Msg("pipeline run failed")

	return Result{DocumentID: docID, Status: RunFailed, Message: cause.Error()}
}

func (r *Runner) publish(docID string, step domain.Step, percent int, errMsg string) {
	r.progress.publish(domain.Progress{
		DocumentID: docID,
		Step:       step,
		Percent:    percent,
		Error:      errMsg,
	})
}

func (r *Runner) emit(ctx context.Context, eventType, docID string, status domain.Status) {
	if r.events == nil {
		return
	}
	payload := map[string]string{
		"document_id": docID,
		"status":      string(status),
	}
	if err := r.events.Publish(ctx, eventType, payload); err != nil {
		r.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func stageLog(step domain.Step, level domain.LogLevel, message string) domain.ProcessingLog {
	return domain.ProcessingLog{
		Stage:     string(step),
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
