package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// Kinds reported to StudyRecorder.
const (
	StudyKindSummary    = "summary"
	StudyKindFlashcards = "flashcards"
	StudyKindQuiz       = "qcm"
)

const defaultTitleRunes = 60

// StudyGenerator produces study content with the language model.
type StudyGenerator interface {
	Summarize(ctx context.Context, title, text string) (string, error)
	Flashcards(ctx context.Context, text string, count int) ([]domain.Flashcard, error)
	Quiz(ctx context.Context, text string, count int, difficulty domain.QuizDifficulty) ([]domain.QuizQuestion, error)
}

// StudyRecorder counts generation outcomes.
type StudyRecorder interface {
	RecordStudyGeneration(kind string, err error)
}

// StudySource is the material to study: raw text or an uploaded document.
type StudySource struct {
	Text       string
	DocumentID *uuid.UUID
	Title      string
}

// FlashcardsInput requests a flashcard deck.
type FlashcardsInput struct {
	StudySource
	Count int
}

// QuizInput requests a QCM.
type QuizInput struct {
	StudySource
	Count      int
	Difficulty domain.QuizDifficulty
}

// StudyDeps are the collaborators of StudyService.
type StudyDeps struct {
	Summaries  store.SummaryStore
	Flashcards store.FlashcardStore
	Quizzes    store.QuizStore
	Documents  store.DocumentStore
	Generator  StudyGenerator
	Recorder   StudyRecorder
	Logger     *slog.Logger
}

// StudyService generates and stores summaries, flashcards and QCM.
type StudyService struct {
	deps   StudyDeps
	logger *slog.Logger
}

// NewStudyService creates a StudyService.
func NewStudyService(deps StudyDeps) *StudyService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &StudyService{deps: deps, logger: deps.Logger.With("component", "study_service")}
}

// CreateSummary summarizes the source and saves the result.
func (s *StudyService) CreateSummary(ctx context.Context, userID uuid.UUID, in StudySource) (sum *domain.Summary, err error) {
	defer s.record(StudyKindSummary, &err)

	text, title, err := s.resolve(ctx, userID, in)
	if err != nil {
		return nil, wrap("create_summary", err)
	}
	content, err := s.deps.Generator.Summarize(ctx, title, text)
	if err != nil {
		return nil, wrap("create_summary", err)
	}
	sum, err = domain.NewSummary(userID, in.DocumentID, title, content)
	if err != nil {
		return nil, wrap("create_summary", err)
	}
	if err := s.deps.Summaries.Create(ctx, sum); err != nil {
		return nil, wrap("create_summary", err)
	}
	return sum, nil
}

// CreateFlashcards generates a deck from the source and saves it.
func (s *StudyService) CreateFlashcards(ctx context.Context, userID uuid.UUID, in FlashcardsInput) (set *domain.FlashcardSet, err error) {
	defer s.record(StudyKindFlashcards, &err)

	if err := domain.ValidateItemCount(in.Count); err != nil {
		return nil, wrap("create_flashcards", invalid(err))
	}
	text, title, err := s.resolve(ctx, userID, in.StudySource)
	if err != nil {
		return nil, wrap("create_flashcards", err)
	}
	cards, err := s.deps.Generator.Flashcards(ctx, text, in.Count)
	if err != nil {
		return nil, wrap("create_flashcards", err)
	}
	set, err = domain.NewFlashcardSet(userID, in.DocumentID, title, cards)
	if err != nil {
		return nil, wrap("create_flashcards", err)
	}
	if err := s.deps.Flashcards.Create(ctx, set); err != nil {
		return nil, wrap("create_flashcards", err)
	}
	return set, nil
}

// CreateQuiz generates a QCM from the source and saves it.
func (s *StudyService) CreateQuiz(ctx context.Context, userID uuid.UUID, in QuizInput) (quiz *domain.Quiz, err error) {
	defer s.record(StudyKindQuiz, &err)

	if in.Difficulty == "" {
		in.Difficulty = domain.DifficultyMedium
	}
	if err := domain.ValidateItemCount(in.Count); err != nil {
		return nil, wrap("create_quiz", invalid(err))
	}
	if !in.Difficulty.Valid() {
		return nil, wrap("create_quiz", invalid(domain.ErrInvalidDifficulty))
	}
	text, title, err := s.resolve(ctx, userID, in.StudySource)
	if err != nil {
		return nil, wrap("create_quiz", err)
	}
	questions, err := s.deps.Generator.Quiz(ctx, text, in.Count, in.Difficulty)
	if err != nil {
		return nil, wrap("create_quiz", err)
	}
	quiz, err = domain.NewQuiz(userID, in.DocumentID, title, in.Difficulty, questions)
	if err != nil {
		return nil, wrap("create_quiz", err)
	}
	if err := s.deps.Quizzes.Create(ctx, quiz); err != nil {
		return nil, wrap("create_quiz", err)
	}
	return quiz, nil
}

// ListSummaries returns the user's summaries, newest first.
func (s *StudyService) ListSummaries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Summary, error) {
	list, err := s.deps.Summaries.ListByUser(ctx, userID, limit, offset)
	return list, wrap("list_summaries", err)
}

// GetSummary returns one of the user's summaries.
func (s *StudyService) GetSummary(ctx context.Context, userID, id uuid.UUID) (*domain.Summary, error) {
	sum, err := owned(ctx, s.deps.Summaries.GetByID, id, userID, store.ErrSummaryNotFound,
		func(v *domain.Summary) uuid.UUID { return v.UserID })
	return sum, wrap("get_summary", err)
}

// DeleteSummary removes one of the user's summaries.
func (s *StudyService) DeleteSummary(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetSummary(ctx, userID, id); err != nil {
		return err
	}
	return wrap("delete_summary", s.deps.Summaries.Delete(ctx, id))
}

// ListFlashcards returns the user's decks, newest first.
func (s *StudyService) ListFlashcards(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.FlashcardSet, error) {
	list, err := s.deps.Flashcards.ListByUser(ctx, userID, limit, offset)
	return list, wrap("list_flashcards", err)
}

// GetFlashcards returns one of the user's decks.
func (s *StudyService) GetFlashcards(ctx context.Context, userID, id uuid.UUID) (*domain.FlashcardSet, error) {
	set, err := owned(ctx, s.deps.Flashcards.GetByID, id, userID, store.ErrFlashcardSetNotFound,
		func(v *domain.FlashcardSet) uuid.UUID { return v.UserID })
	return set, wrap("get_flashcards", err)
}

// DeleteFlashcards removes one of the user's decks.
func (s *StudyService) DeleteFlashcards(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetFlashcards(ctx, userID, id); err != nil {
		return err
	}
	return wrap("delete_flashcards", s.deps.Flashcards.Delete(ctx, id))
}

// ListQuizzes returns the user's QCM, newest first.
func (s *StudyService) ListQuizzes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Quiz, error) {
	list, err := s.deps.Quizzes.ListByUser(ctx, userID, limit, offset)
	return list, wrap("list_quizzes", err)
}

// GetQuiz returns one of the user's QCM.
func (s *StudyService) GetQuiz(ctx context.Context, userID, id uuid.UUID) (*domain.Quiz, error) {
	quiz, err := owned(ctx, s.deps.Quizzes.GetByID, id, userID, store.ErrQuizNotFound,
		func(v *domain.Quiz) uuid.UUID { return v.UserID })
	return quiz, wrap("get_quiz", err)
}

// DeleteQuiz removes one of the user's QCM.
func (s *StudyService) DeleteQuiz(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetQuiz(ctx, userID, id); err != nil {
		return err
	}
	return wrap("delete_quiz", s.deps.Quizzes.Delete(ctx, id))
}

// resolve returns the text to study and a title. An explicit title wins,
// then the document filename, then the first words of the text.
func (s *StudyService) resolve(ctx context.Context, userID uuid.UUID, in StudySource) (string, string, error) {
	text := strings.TrimSpace(in.Text)
	title := strings.TrimSpace(in.Title)

	if in.DocumentID != nil {
		doc, err := owned(ctx, s.deps.Documents.GetByID, *in.DocumentID, userID, store.ErrDocumentNotFound,
			func(d *domain.Document) uuid.UUID { return d.UserID })
		if err != nil {
			return "", "", err
		}
		if strings.TrimSpace(doc.ExtractedText) == "" {
			return "", "", domain.ErrEmptyExtraction
		}
		if text == "" {
			text = doc.ExtractedText
		}
		if title == "" {
			title = doc.Filename
		}
	}

	if text == "" {
		return "", "", invalid(ErrMissingSource)
	}
	if title == "" {
		title = titleFromText(text)
	}
	return text, title, nil
}

func (s *StudyService) record(kind string, err *error) {
	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordStudyGeneration(kind, *err)
	}
}

// titleFromText takes the first line of text, cut on a word boundary.
func titleFromText(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.Trim(strings.TrimSpace(line), "#*-> ")
	if line == "" {
		return "Sans titre"
	}
	if utf8.RuneCountInString(line) <= defaultTitleRunes {
		return line
	}
	runes := []rune(line)[:defaultTitleRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > defaultTitleRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
