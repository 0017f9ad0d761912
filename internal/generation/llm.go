package generation

import (
	"context"
	"io"

	"github.com/nextudy/nextudy-api/internal/domain"
)

// CompletionRequest is a provider-neutral chat completion request.
type CompletionRequest struct {
	// Model overrides the provider's default model when set.
	Model       string
	Messages    []domain.ChatMessage
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON object response when supported.
	JSON bool
}

// Stream yields text deltas of a streaming completion. Recv returns io.EOF
// once the stream ends normally.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// ChatModel is the boundary between the application and a hosted LLM.
type ChatModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	StreamChat(ctx context.Context, req CompletionRequest) (Stream, error)
}

// Transcriber turns speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// ImageReader extracts the text and content of an image.
type ImageReader interface {
	ReadImage(ctx context.Context, contentType string, data []byte) (string, error)
}
