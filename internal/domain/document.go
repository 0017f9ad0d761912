package domain

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentKind groups uploads by extraction strategy.
type DocumentKind string

// Document kinds.
const (
	DocumentPDF   DocumentKind = "pdf"
	DocumentAudio DocumentKind = "audio"
	DocumentImage DocumentKind = "image"
	DocumentText  DocumentKind = "text"
)

// Document errors
var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyFilename       = errors.New("filename cannot be empty")
	ErrEmptyExtraction     = errors.New("no text could be extracted from the document")
)

// Document is an uploaded study file and the text extracted from it.
type Document struct {
	ID            uuid.UUID    `json:"id"`
	UserID        uuid.UUID    `json:"user_id"`
	Filename      string       `json:"filename"`
	ContentType   string       `json:"content_type"`
	Kind          DocumentKind `json:"kind"`
	SizeBytes     int64        `json:"size_bytes"`
	ObjectKey     string       `json:"-"`
	ExtractedText string       `json:"extracted_text,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NewDocument creates document metadata for an upload. The object key is
// users/{userID}/{documentID}-{filename}.
func NewDocument(userID uuid.UUID, filename, contentType string, size int64) (*Document, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return nil, ErrEmptyFilename
	}
	kind, err := ClassifyDocument(name, contentType)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	return &Document{
		ID:          id,
		UserID:      userID,
		Filename:    name,
		ContentType: contentType,
		Kind:        kind,
		SizeBytes:   size,
		ObjectKey:   "users/" + userID.String() + "/" + id.String() + "-" + name,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ClassifyDocument picks a DocumentKind from the MIME type, falling back to
// the file extension.
func ClassifyDocument(filename, contentType string) (DocumentKind, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case ct == "application/pdf":
		return DocumentPDF, nil
	case strings.HasPrefix(ct, "audio/"), ct == "video/webm", ct == "video/mp4":
		return DocumentAudio, nil
	case strings.HasPrefix(ct, "image/"):
		return DocumentImage, nil
	case strings.HasPrefix(ct, "text/"):
		return DocumentText, nil
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return DocumentPDF, nil
	case ".mp3", ".m4a", ".wav", ".ogg", ".webm", ".flac", ".mp4", ".mpeg", ".mpga":
		return DocumentAudio, nil
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return DocumentImage, nil
	case ".txt", ".md", ".csv":
		return DocumentText, nil
	}
	return "", ErrUnsupportedDocument
}

// SanitizeFilename strips directories and characters unsafe in object keys.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r < 0x20, r == '"', r == '?', r == '#', r == '%':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
