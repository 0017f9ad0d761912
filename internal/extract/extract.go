// Package extract turns uploaded documents into plain text for the study
// generators: PDF pages through ledongthuc/pdf, audio through Whisper,
// images through the vision model and text files as they are.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
)

// ErrUnreadable is returned when a file cannot be decoded.
var ErrUnreadable = errors.New("document cannot be read")

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Extractor extracts text from documents.
type Extractor struct {
	transcriber generation.Transcriber
	images      generation.ImageReader
	retry       generation.RetryPolicy
	logger      *slog.Logger
}

// New creates an Extractor. transcriber and images may be nil, in which case
// audio and images are rejected as unsupported. Rate-limited model calls are
// retried according to retry.
func New(
	transcriber generation.Transcriber,
	images generation.ImageReader,
	retry generation.RetryPolicy,
	logger *slog.Logger,
) *Extractor {
	return &Extractor{
		transcriber: transcriber,
		images:      images,
		retry:       retry,
		logger:      logger.With(slog.String("component", "extractor")),
	}
}

// Extract returns the normalized text of data. An empty result is
// domain.ErrEmptyExtraction.
func (e *Extractor) Extract(
	ctx context.Context,
	kind domain.DocumentKind,
	filename, contentType string,
	data []byte,
) (string, error) {
	var (
		text string
		err  error
	)
	switch kind {
	case domain.DocumentPDF:
		text, err = e.pdfText(data)
	case domain.DocumentText:
		text, err = plainText(data)
	case domain.DocumentAudio:
		if e.transcriber == nil {
			return "", domain.ErrUnsupportedDocument
		}
		err = generation.WithRateLimitRetry(ctx, e.retry, func(ctx context.Context) error {
			var callErr error
			text, callErr = e.transcriber.Transcribe(ctx, filename, bytes.NewReader(data))
			return callErr
		})
	case domain.DocumentImage:
		if e.images == nil {
			return "", domain.ErrUnsupportedDocument
		}
		err = generation.WithRateLimitRetry(ctx, e.retry, func(ctx context.Context) error {
			var callErr error
			text, callErr = e.images.ReadImage(ctx, contentType, data)
			return callErr
		})
	default:
		return "", domain.ErrUnsupportedDocument
	}
	if err != nil {
		return "", err
	}

	text = Normalize(text)
	if text == "" {
		return "", domain.ErrEmptyExtraction
	}
	e.logger.DebugContext(ctx, "document text extracted",
		slog.String("kind", string(kind)),
		slog.Int("chars", utf8.RuneCountInString(text)))
	return text, nil
}

// pdfText reads every page. The pdf package panics on some malformed
// files, which is reported as ErrUnreadable.
func (e *Extractor) pdfText(data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", ErrUnreadable, p)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrUnreadable, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			e.logger.Debug("skipping unreadable pdf page", slog.Int("page", i), slog.String("error", pageErr.Error()))
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnreadable)
	}
	return string(data), nil
}

// Normalize collapses horizontal whitespace, normalizes line endings and
// trims blank line runs.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(newlineRun.ReplaceAllString(text, "\n\n"))
}
