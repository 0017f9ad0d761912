package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// ObjectStore keeps uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key, filename string) (string, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, kind domain.DocumentKind, filename, contentType string, data []byte) (string, error)
}

// UploadRecorder counts uploads.
type UploadRecorder interface {
	RecordUpload(kind string, size int64, err error)
}

// UploadInput is a received file.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentView is a document with a temporary download link.
type DocumentView struct {
	domain.Document
	DownloadURL string `json:"download_url,omitempty"`
}

// DocumentService stores uploads and the text extracted from them.
type DocumentService struct {
	documents store.DocumentStore
	objects   ObjectStore
	extractor TextExtractor
	recorder  UploadRecorder
	maxBytes  int64
	logger    *slog.Logger
}

// NewDocumentService creates a DocumentService. A nil object store
// disables uploads.
func NewDocumentService(
	documents store.DocumentStore,
	objects ObjectStore,
	extractor TextExtractor,
	recorder UploadRecorder,
	maxBytes int64,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		objects:   objects,
		extractor: extractor,
		recorder:  recorder,
		maxBytes:  maxBytes,
		logger:    logger.With("component", "document_service"),
	}
}

// MaxBytes is the largest accepted upload.
func (s *DocumentService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload extracts the text of a file, stores the file and records it.
func (s *DocumentService) Upload(ctx context.Context, userID uuid.UUID, in UploadInput) (*domain.Document, error) {
	if s.objects == nil {
		return nil, wrap("upload_document", ErrFeatureDisabled)
	}
	size := int64(len(in.Data))
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, wrap("upload_document", ErrDocumentTooLarge)
	}

	doc, err := domain.NewDocument(userID, in.Filename, in.ContentType, size)
	if err != nil {
		return nil, wrap("upload_document", invalid(err))
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/octet-stream"
	}

	err = s.store(ctx, doc, in.Data)
	if s.recorder != nil {
		s.recorder.RecordUpload(string(doc.Kind), size, err)
	}
	if err != nil {
		return nil, wrap("upload_document", err)
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"size_bytes", size)
	return doc, nil
}

func (s *DocumentService) store(ctx context.Context, doc *domain.Document, data []byte) error {
	text, err := s.extractor.Extract(ctx, doc.Kind, doc.Filename, doc.ContentType, data)
	if err != nil {
		return err
	}
	doc.ExtractedText = text

	if err := s.objects.Put(ctx, doc.ObjectKey, bytes.NewReader(data), doc.SizeBytes, doc.ContentType); err != nil {
		return err
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		s.removeObject(ctx, doc.ObjectKey)
		return err
	}
	return nil
}

// List returns the user's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Document, error) {
	docs, err := s.documents.ListByUser(ctx, userID, limit, offset)
	return docs, wrap("list_documents", err)
}

// Get returns one of the user's documents with a download link.
func (s *DocumentService) Get(ctx context.Context, userID, id uuid.UUID) (*DocumentView, error) {
	doc, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, wrap("get_document", err)
	}
	view := &DocumentView{Document: *doc}
	if s.objects != nil {
		link, err := s.objects.PresignGet(ctx, doc.ObjectKey, doc.Filename)
		if err != nil {
			return nil, wrap("get_document", err)
		}
		view.DownloadURL = link
	}
	return view, nil
}

// Delete removes the document row, then its file.
func (s *DocumentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	doc, err := s.get(ctx, userID, id)
	if err != nil {
		return wrap("delete_document", err)
	}
	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		return wrap("delete_document", err)
	}
	s.removeObject(ctx, doc.ObjectKey)
	return nil
}

func (s *DocumentService) removeObject(ctx context.Context, key string) {
	if s.objects == nil {
		return
	}
	if err := s.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "failed to remove stored file", "object_key", key, "error", err)
	}
}

func (s *DocumentService) get(ctx context.Context, userID, id uuid.UUID) (*domain.Document, error) {
	return owned(ctx, s.documents.GetByID, id, userID, store.ErrDocumentNotFound,
		func(d *domain.Document) uuid.UUID { return d.UserID })
}
