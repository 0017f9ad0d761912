package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextudy/nextudy-api/internal/domain"
)

// StudyGeneratorConfig tunes the study content generator.
type StudyGeneratorConfig struct {
	// Model is the content model name passed to the ChatModel.
	Model       string
	Temperature float32
	// MaxInputChars bounds the source text sent to the model.
	MaxInputChars int
	Retry         RetryPolicy
}

// StudyGenerator produces summaries, flashcards and QCM quizzes from text.
type StudyGenerator struct {
	model  ChatModel
	config StudyGeneratorConfig
	logger *slog.Logger
}

// NewStudyGenerator creates a StudyGenerator on top of a ChatModel.
func NewStudyGenerator(model ChatModel, cfg StudyGeneratorConfig, logger *slog.Logger) (*StudyGenerator, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &StudyGenerator{
		model:  model,
		config: cfg,
		logger: logger.With(slog.String("component", "study_generator")),
	}, nil
}

// Summarize writes an emoji-annotated markdown revision sheet of text.
func (g *StudyGenerator) Summarize(ctx context.Context, title, text string) (string, error) {
	prompt, err := g.prompt("summary.tmpl", func(input string) any {
		return summaryPromptData{Title: strings.TrimSpace(title), Text: input}
	}, text)
	if err != nil {
		return "", err
	}

	answer, err := g.complete(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty summary", ErrInvalidResponse)
	}
	return AnnotateEmojis(answer), nil
}

// Flashcards generates count flashcards from text.
func (g *StudyGenerator) Flashcards(ctx context.Context, text string, count int) ([]domain.Flashcard, error) {
	if err := domain.ValidateItemCount(count); err != nil {
		return nil, err
	}
	prompt, err := g.prompt("flashcards.tmpl", func(input string) any {
		return itemsPromptData{Count: count, Text: input}
	}, text)
	if err != nil {
		return nil, err
	}

	answer, err := g.complete(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	cards, err := ParseFlashcards(answer)
	if err != nil {
		g.logger.WarnContext(ctx, "unparseable flashcard response", slog.Int("response_length", len(answer)))
		return nil, err
	}
	if len(cards) > count {
		cards = cards[:count]
	}
	return cards, nil
}

// Quiz generates count QCM questions of the given difficulty from text.
func (g *StudyGenerator) Quiz(
	ctx context.Context,
	text string,
	count int,
	difficulty domain.QuizDifficulty,
) ([]domain.QuizQuestion, error) {
	if err := domain.ValidateItemCount(count); err != nil {
		return nil, err
	}
	if !difficulty.Valid() {
		return nil, domain.ErrInvalidDifficulty
	}
	prompt, err := g.prompt("qcm.tmpl", func(input string) any {
		return itemsPromptData{Count: count, Difficulty: difficulty, Text: input}
	}, text)
	if err != nil {
		return nil, err
	}

	answer, err := g.complete(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuiz(answer)
	if err != nil {
		g.logger.WarnContext(ctx, "unparseable QCM response", slog.Int("response_length", len(answer)))
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func (g *StudyGenerator) prompt(name string, data func(input string) any, text string) (string, error) {
	input := TruncateInput(text, g.config.MaxInputChars)
	if input == "" {
		return "", ErrEmptyInput
	}
	return render(name, data(input))
}

func (g *StudyGenerator) complete(ctx context.Context, prompt string, asJSON bool) (string, error) {
	req := CompletionRequest{
		Model:       g.config.Model,
		Messages:    []domain.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
		Temperature: g.config.Temperature,
		JSON:        asJSON,
	}

	var answer string
	err := WithRateLimitRetry(ctx, g.config.Retry, func(ctx context.Context) error {
		var err error
		answer, err = g.model.Complete(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return answer, nil
}
