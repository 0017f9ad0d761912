package groq

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nextudy/nextudy-api/internal/config"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	openai "github.com/sashabaranov/go-openai"
)

const visionPrompt = "Décris précisément le contenu de cette image en français. " +
	"Retranscris intégralement tout texte visible (notes, énoncés, formules, tableaux) en respectant sa structure."

// Client implements generation.ChatModel, generation.Transcriber and
// generation.ImageReader against Groq.
type Client struct {
	api    *openai.Client
	config config.LLMConfig
	logger *slog.Logger
}

var (
	_ generation.ChatModel   = (*Client)(nil)
	_ generation.Transcriber = (*Client)(nil)
	_ generation.ImageReader = (*Client)(nil)
)

// NewClient creates a Groq client from the LLM configuration.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("%w: groq API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ChatModel == "" {
		return nil, fmt.Errorf("%w: chat model cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	if cfg.GroqBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.GroqBaseURL, "/")
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger.With(slog.String("component", "groq")),
	}, nil
}

// Complete runs a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req generation.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.chatRequest(req))
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", generation.ErrInvalidResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", generation.ErrContentBlocked
	}

	c.logger.DebugContext(ctx, "chat completion finished",
		slog.String("model", resp.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))

	return choice.Message.Content, nil
}

// StreamChat opens a streaming chat completion.
func (c *Client) StreamChat(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
	chatReq := c.chatRequest(req)
	chatReq.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, mapError(err)
	}
	return &chatStream{stream: stream}, nil
}

// Transcribe sends audio to the Whisper model and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.config.WhisperModel,
		FilePath: filename,
		Reader:   audio,
		Language: "fr",
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", mapError(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// ReadImage asks the vision model to transcribe and describe an image.
func (c *Client) ReadImage(ctx context.Context, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", generation.ErrEmptyInput
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.VisionModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
				},
			},
		}},
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", generation.ErrInvalidResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) chatRequest(req generation.CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.config.ChatModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(m.Role),
			Content: m.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func toOpenAIRole(role domain.MessageRole) string {
	switch role {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", mapError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason == openai.FinishReasonContentFilter {
			return "", generation.ErrContentBlocked
		}
		if choice.Delta.Content == "" {
			continue
		}
		return choice.Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

// mapError converts go-openai errors to generation sentinels. HTTP 429 maps
// to ErrRateLimited and 5xx to ErrTransientFailure.
func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
}
