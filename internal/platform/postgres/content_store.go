package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// deleteByID removes one row and maps "no row" to notFound.
func deleteByID(ctx context.Context, db store.DBTX, table string, id uuid.UUID, notFound error) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if CheckRowsAffected(res, table) != nil {
		return notFound
	}
	return nil
}

// PostgresSummaryStore implements store.SummaryStore.
type PostgresSummaryStore struct {
	db store.DBTX
}

// NewPostgresSummaryStore creates a summary store.
func NewPostgresSummaryStore(db store.DBTX) *PostgresSummaryStore {
	return &PostgresSummaryStore{db: db}
}

var _ store.SummaryStore = (*PostgresSummaryStore)(nil)

// Create implements store.SummaryStore.
func (s *PostgresSummaryStore) Create(ctx context.Context, sum *domain.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, user_id, document_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sum.ID, sum.UserID, nullUUID(sum.DocumentID), sum.Title, sum.Content, sum.CreatedAt)
	return MapError(err)
}

func scanSummary(r rowScanner) (*domain.Summary, error) {
	var sum domain.Summary
	var doc uuid.NullUUID
	if err := r.Scan(&sum.ID, &sum.UserID, &doc, &sum.Title, &sum.Content, &sum.CreatedAt); err != nil {
		return nil, err
	}
	sum.DocumentID = uuidPtr(doc)
	return &sum, nil
}

// GetByID implements store.SummaryStore.
func (s *PostgresSummaryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Summary, error) {
	sum, err := scanSummary(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, title, content, created_at
		FROM summaries WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSummaryNotFound
	}
	return sum, MapError(err)
}

// ListByUser implements store.SummaryStore.
func (s *PostgresSummaryStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Summary, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, title, content, created_at
		FROM summaries WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *sum)
	}
	return out, rows.Err()
}

// Delete implements store.SummaryStore.
func (s *PostgresSummaryStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "summaries", id, store.ErrSummaryNotFound)
}

// PostgresFlashcardStore implements store.FlashcardStore.
type PostgresFlashcardStore struct {
	db store.DBTX
}

// NewPostgresFlashcardStore creates a flashcard set store.
func NewPostgresFlashcardStore(db store.DBTX) *PostgresFlashcardStore {
	return &PostgresFlashcardStore{db: db}
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// Create implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Create(ctx context.Context, set *domain.FlashcardSet) error {
	cards, err := json.Marshal(set.Cards)
	if err != nil {
		return fmt.Errorf("failed to encode flashcards: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flashcard_sets (id, user_id, document_id, title, cards, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		set.ID, set.UserID, nullUUID(set.DocumentID), set.Title, cards, set.CreatedAt)
	return MapError(err)
}

func scanFlashcardSet(r rowScanner) (*domain.FlashcardSet, error) {
	var set domain.FlashcardSet
	var doc uuid.NullUUID
	var cards []byte
	if err := r.Scan(&set.ID, &set.UserID, &doc, &set.Title, &cards, &set.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cards, &set.Cards); err != nil {
		return nil, fmt.Errorf("failed to decode flashcards: %w", err)
	}
	set.DocumentID = uuidPtr(doc)
	return &set, nil
}

// GetByID implements store.FlashcardStore.
func (s *PostgresFlashcardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FlashcardSet, error) {
	set, err := scanFlashcardSet(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, title, cards, created_at
		FROM flashcard_sets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrFlashcardSetNotFound
	}
	return set, MapError(err)
}

// ListByUser implements store.FlashcardStore.
func (s *PostgresFlashcardStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.FlashcardSet, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, title, cards, created_at
		FROM flashcard_sets WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.FlashcardSet
	for rows.Next() {
		set, err := scanFlashcardSet(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *set)
	}
	return out, rows.Err()
}

// Delete implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "flashcard_sets", id, store.ErrFlashcardSetNotFound)
}

// PostgresQuizStore implements store.QuizStore.
type PostgresQuizStore struct {
	db store.DBTX
}

// NewPostgresQuizStore creates a quiz store.
func NewPostgresQuizStore(db store.DBTX) *PostgresQuizStore {
	return &PostgresQuizStore{db: db}
}

var _ store.QuizStore = (*PostgresQuizStore)(nil)

// Create implements store.QuizStore.
func (s *PostgresQuizStore) Create(ctx context.Context, q *domain.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode quiz questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quizzes (id, user_id, document_id, title, difficulty, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.UserID, nullUUID(q.DocumentID), q.Title, q.Difficulty, questions, q.CreatedAt)
	return MapError(err)
}

func scanQuiz(r rowScanner) (*domain.Quiz, error) {
	var q domain.Quiz
	var doc uuid.NullUUID
	var difficulty string
	var questions []byte
	if err := r.Scan(&q.ID, &q.UserID, &doc, &q.Title, &difficulty, &questions, &q.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
	}
	q.DocumentID = uuidPtr(doc)
	q.Difficulty = domain.QuizDifficulty(difficulty)
	return &q, nil
}

// GetByID implements store.QuizStore.
func (s *PostgresQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, title, difficulty, questions, created_at
		FROM quizzes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrQuizNotFound
	}
	return q, MapError(err)
}

// ListByUser implements store.QuizStore.
func (s *PostgresQuizStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Quiz, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, title, difficulty, questions, created_at
		FROM quizzes WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Delete implements store.QuizStore.
func (s *PostgresQuizStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "quizzes", id, store.ErrQuizNotFound)
}

// PostgresDocumentStore implements store.DocumentStore.
type PostgresDocumentStore struct {
	db store.DBTX
}

// NewPostgresDocumentStore creates a document store.
func NewPostgresDocumentStore(db store.DBTX) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

const documentColumns = `id, user_id, filename, content_type, kind, size_bytes, object_key, extracted_text, created_at`

// Create implements store.DocumentStore.
func (s *PostgresDocumentStore) Create(ctx context.Context, d *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.UserID, d.Filename, d.ContentType, d.Kind, d.SizeBytes, d.ObjectKey, d.ExtractedText, d.CreatedAt)
	return MapError(err)
}

func scanDocument(r rowScanner) (*domain.Document, error) {
	var d domain.Document
	var kind string
	if err := r.Scan(&d.ID, &d.UserID, &d.Filename, &d.ContentType, &kind, &d.SizeBytes,
		&d.ObjectKey, &d.ExtractedText, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Kind = domain.DocumentKind(kind)
	return &d, nil
}

// GetByID implements store.DocumentStore.
func (s *PostgresDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrDocumentNotFound
	}
	return d, MapError(err)
}

// ListByUser implements store.DocumentStore. Extracted text is omitted.
func (s *PostgresDocumentStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Document, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, filename, content_type, kind, size_bytes, object_key, '', created_at
		FROM documents WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Delete implements store.DocumentStore.
func (s *PostgresDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "documents", id, store.ErrDocumentNotFound)
}
