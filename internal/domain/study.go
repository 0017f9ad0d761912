package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuizDifficulty controls the level of generated QCM questions.
type QuizDifficulty string

// Supported difficulties.
const (
	DifficultyEasy   QuizDifficulty = "facile"
	DifficultyMedium QuizDifficulty = "moyen"
	DifficultyHard   QuizDifficulty = "difficile"
)

// Bounds for generated study content.
const (
	QuizChoiceCount  = 4
	MaxGeneratedItem = 30
)

// Study content validation errors
var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrNoFlashcards      = errors.New("flashcard set has no cards")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrInvalidDifficulty = errors.New("invalid quiz difficulty")
	ErrInvalidItemCount  = fmt.Errorf("item count must be between 1 and %d", MaxGeneratedItem)
)

// Summary is an AI-generated markdown summary of a text or document.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSummary creates a summary owned by userID.
func NewSummary(userID uuid.UUID, documentID *uuid.UUID, title, content string) (*Summary, error) {
	s := &Summary{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      strings.TrimSpace(title),
		Content:    strings.TrimSpace(content),
		CreatedAt:  time.Now().UTC(),
	}
	if s.UserID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if s.Title == "" {
		return nil, ErrEmptyTitle
	}
	if s.Content == "" {
		return nil, ErrEmptyContent
	}
	return s, nil
}

// Flashcard is one question/answer card.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FlashcardSet is a generated deck of flashcards.
type FlashcardSet struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	DocumentID *uuid.UUID  `json:"document_id,omitempty"`
	Title      string      `json:"title"`
	Cards      []Flashcard `json:"cards"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewFlashcardSet creates a flashcard set, dropping cards with a blank side.
func NewFlashcardSet(userID uuid.UUID, documentID *uuid.UUID, title string, cards []Flashcard) (*FlashcardSet, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	kept := make([]Flashcard, 0, len(cards))
	for _, c := range cards {
		c.Question = strings.TrimSpace(c.Question)
		c.Answer = strings.TrimSpace(c.Answer)
		if c.Question == "" || c.Answer == "" {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, ErrNoFlashcards
	}
	return &FlashcardSet{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      title,
		Cards:      kept,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// QuizQuestion is a single QCM item with exactly four choices.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Validate checks the question text, choice count and correct index.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyContent
	}
	if len(q.Choices) != QuizChoiceCount {
		return fmt.Errorf("%w: question needs exactly %d choices", ErrValidation, QuizChoiceCount)
	}
	for _, c := range q.Choices {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty choice", ErrValidation)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= QuizChoiceCount {
		return fmt.Errorf("%w: correct index out of range", ErrValidation)
	}
	return nil
}

// Quiz is a generated QCM.
type Quiz struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	DocumentID *uuid.UUID     `json:"document_id,omitempty"`
	Title      string         `json:"title"`
	Difficulty QuizDifficulty `json:"difficulty"`
	Questions  []QuizQuestion `json:"questions"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewQuiz creates a quiz. Invalid questions are dropped; a quiz with none
// left is rejected.
func NewQuiz(userID uuid.UUID, documentID *uuid.UUID, title string, difficulty QuizDifficulty, questions []QuizQuestion) (*Quiz, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !difficulty.Valid() {
		return nil, ErrInvalidDifficulty
	}
	kept := make([]QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if q.Validate() == nil {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoQuestions
	}
	return &Quiz{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      title,
		Difficulty: difficulty,
		Questions:  kept,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Valid reports whether d is a supported difficulty.
func (d QuizDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// ValidateItemCount checks a requested flashcard or question count.
func ValidateItemCount(n int) error {
	if n < 1 || n > MaxGeneratedItem {
		return ErrInvalidItemCount
	}
	return nil
}
