package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/service"
)

// multipartOverhead is the allowance for multipart headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// uploadField is the multipart field carrying the file.
const uploadField = "file"

// DocumentHandler serves uploads.
type DocumentHandler struct {
	documents DocumentService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents DocumentService, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DocumentHandler")
	}
	return &DocumentHandler{
		documents: documents,
		logger:    logger.With(slog.String("component", "document_handler")),
	}
}

// Upload handles POST /api/documents, a multipart form with a "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	maxBytes := h.documents.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleAPIError(w, r, service.ErrDocumentTooLarge)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Fichier manquant", err)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Lecture du fichier impossible", err)
		return
	}

	doc, err := h.documents.Upload(r.Context(), userID, service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, doc)
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	docs, err := h.documents.List(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(docs, limit, offset))
}

// Get handles GET /api/documents/{id}. The response carries a presigned
// download URL.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.documents.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.documents.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
