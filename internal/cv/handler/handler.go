package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/internal/cv/pipeline"
	"github.com/cvstudio/cvstudio-backend/internal/cv/session"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/httputil"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
)

// Accepted upload types: extension → MIME type
var acceptedTypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Handler exposes the CV document API
type Handler struct {
	store         *store.Client
	runner        *pipeline.Runner
	maxUploadSize int64
	log           *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewHandler creates a CV document handler
func NewHandler(st *store.Client, runner *pipeline.Runner, maxUploadSize int64, log *logger.Logger) *Handler {
	return &Handler{
		store:         st,
		runner:        runner,
		maxUploadSize: maxUploadSize,
		log:           log.WithComponent("cv_handler"),
		sessions:      make(map[string]*session.Session),
	}
}

// Routes mounts the document API on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Upload)
		r.Get("/stats", h.Stats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/reprocess", h.Reprocess)
			r.Get("/progress", h.Progress)
			r.Route("/edit", func(r chi.Router) {
				r.Post("/", h.OpenEdit)
				r.Get("/", h.EditState)
				r.Put("/record", h.EditRecord)
				r.Post("/save", h.SaveEdit)
				r.Post("/discard", h.DiscardEdit)
			})
		})
	})
}

// Upload handles POST /documents. It accepts exactly one CV file as
// multipart form data and runs the processing pipeline to completion.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httputil.Error(w, errors.InvalidArgument("file too large or invalid multipart form"))
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		httputil.Error(w, errors.InvalidArgument("exactly one file is required"))
		return
	}
	header := files[0]

	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	wantMIME, ok := acceptedTypes[fileType]
	if !ok {
		httputil.Error(w, errors.InvalidArgument("unsupported file type: accepted are pdf, docx, xls, xlsx"))
		return
	}
	if contentType := header.Header.Get("Content-Type"); contentType != "" && contentType != wantMIME {
		httputil.Error(w, errors.InvalidArgument("file content type does not match its extension"))
		return
	}
	if header.Size > h.maxUploadSize {
		httputil.Error(w, errors.InvalidArgument("file exceeds the upload size limit"))
		return
	}

	file, err := header.Open()
	if err != nil {
		httputil.Error(w, errors.Internal("failed to open uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, errors.Internal("failed to read uploaded file"))
		return
	}

	result := h.runner.Run(r.Context(), pipeline.Upload{
		FileName:    header.Filename,
		FileType:    fileType,
		ContentType: wantMIME,
		Size:        header.Size,
		Creator:     r.FormValue("creator"),
		Data:        data,
	})

	if result.Status == pipeline.RunFailed {
		httputil.JSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	httputil.Created(w, result)
}

// List handles GET /documents
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		// The listing contract returns an empty slice on faults; surface
		// the degraded state in the envelope rather than failing the page.
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"documents": docs,
			"error":     h.store.LastError(),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// Stats handles GET /documents/stats for the dashboard header
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	docs, _ := h.store.List(r.Context())

	stats := struct {
		Total      int `json:"total"`
		Processed  int `json:"processed"`
		Processing int `json:"processing"`
		Failed     int `json:"failed"`
	}{Total: len(docs)}

	for _, doc := range docs {
		switch {
		case doc.Status.IsProcessed():
			stats.Processed++
		case doc.Status.IsFailure():
			stats.Failed++
		case doc.Status == domain.StatusProcessing:
			stats.Processing++
		}
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// Get handles GET /documents/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, doc)
}

// Update handles PUT /documents/{id} with a partial document update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var upd domain.DocumentUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.Error(w, err)
		return
	}
	if upd.IsEmpty() {
		httputil.Error(w, errors.InvalidArgument("update contains no fields"))
		return
	}
	if upd.Status != nil {
		if _, err := domain.ParseStatus(string(*upd.Status)); err != nil {
			httputil.Error(w, errors.InvalidArgument(err.Error()))
			return
		}
	}

	doc, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /documents/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()

	h.runner.NotifyDeleted(r.Context(), id)
	httputil.NoContent(w)
}

// Reprocess handles POST /documents/{id}/reprocess. A document already
// mid-run answers 409.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.runner.Running(id) {
		httputil.Error(w, errors.Conflict("document is already being processed"))
		return
	}

	result := h.runner.Reprocess(r.Context(), id)
	if result.Status == pipeline.RunFailed {
		httputil.JSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Progress handles GET /documents/{id}/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.runner.Progress(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, errors.NotFound("pipeline run"))
		return
	}
	httputil.JSON(w, http.StatusOK, snapshot)
}

type editResponse struct {
	Document domain.CVDocument `json:"document"`
	Dirty    bool              `json:"dirty"`
}

func (h *Handler) editSession(id string) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Handler) editJSON(w http.ResponseWriter, s *session.Session) {
	doc, _ := s.Document()
	httputil.JSON(w, http.StatusOK, editResponse{Document: doc, Dirty: s.Dirty()})
}

// OpenEdit handles POST /documents/{id}/edit. It loads the document into
// a server-side editing session; reopening replaces any previous session
// for the document, dropping its unsaved edits.
func (h *Handler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s := session.New(h.store, h.log)
	if err := s.Load(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	h.editJSON(w, s)
}

// EditState handles GET /documents/{id}/edit
func (h *Handler) EditState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.editSession(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, errors.NotFound("editing session"))
		return
	}
	h.editJSON(w, s)
}

// EditRecord handles PUT /documents/{id}/edit/record. The change stays
// in the working copy until save.
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	s, ok := h.editSession(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, errors.NotFound("editing session"))
		return
	}

	var record domain.CVRecord
	if err := httputil.DecodeJSON(r, &record); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := s.SetRecord(record); err != nil {
		httputil.Error(w, err)
		return
	}

	h.editJSON(w, s)
}

// SaveEdit handles POST /documents/{id}/edit/save
func (h *Handler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.editSession(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, errors.NotFound("editing session"))
		return
	}
	if err := s.Save(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}
	h.editJSON(w, s)
}

// DiscardEdit handles POST /documents/{id}/edit/discard
func (h *Handler) DiscardEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.editSession(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, errors.NotFound("editing session"))
		return
	}
	if err := s.Discard(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}
	h.editJSON(w, s)
}
