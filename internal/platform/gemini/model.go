package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nextudy/nextudy-api/internal/config"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"google.golang.org/genai"
)

// contentAPI is the subset of genai.Models used by Model.
type contentAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
	GenerateContentStream(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Model implements generation.ChatModel using Gemini.
type Model struct {
	api    contentAPI
	config config.LLMConfig
	logger *slog.Logger
}

var _ generation.ChatModel = (*Model)(nil)

// NewModel creates a Gemini chat model from the LLM configuration.
func NewModel(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ChatModel == "" {
		return nil, fmt.Errorf("%w: chat model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newModel(client.Models, cfg, logger), nil
}

func newModel(api contentAPI, cfg config.LLMConfig, logger *slog.Logger) *Model {
	return &Model{
		api:    api,
		config: cfg,
		logger: logger.With(slog.String("component", "gemini")),
	}
}

// Complete runs a single generateContent call.
func (m *Model) Complete(ctx context.Context, req generation.CompletionRequest) (string, error) {
	model, contents, genConfig := m.request(req)

	resp, err := m.api.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return "", mapError(err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	m.logger.DebugContext(ctx, "gemini completion finished",
		slog.String("model", model),
		slog.Int("response_length", len(text)))
	return text, nil
}

// StreamChat opens a streamed generateContent call. Request errors surface
// on the first Recv.
func (m *Model) StreamChat(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
	model, contents, genConfig := m.request(req)

	next, stop := iter.Pull2(m.api.GenerateContentStream(ctx, model, contents, genConfig))
	return &stream{next: next, stop: stop}, nil
}

func (m *Model) request(req generation.CompletionRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if model == "" {
		model = m.config.ChatModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = m.config.Temperature
	}

	genConfig := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, msg.Content)
		case domain.RoleAssistant:
			contents = append(contents, textContent("model", msg.Content))
		default:
			contents = append(contents, textContent("user", msg.Content))
		}
	}
	if len(system) > 0 {
		genConfig.SystemInstruction = textContent("user", strings.Join(system, "\n\n"))
	}
	return model, contents, genConfig
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", generation.ErrContentBlocked
		}
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

type stream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *stream) Recv() (string, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", mapError(err)
		}
		text, err := responseText(resp)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
}

func (s *stream) Close() error {
	s.stop()
	return nil
}

// mapError converts genai API errors to generation sentinels.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}
