package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/store"
)

const taskColumns = `id, user_id, message_id, conversation_id, status, partial_content, final_content,
	error_message, subject, grade, format, messages, created_at, updated_at, completed_at`

// PostgresGenerationTaskStore implements store.GenerationTaskStore.
type PostgresGenerationTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationTaskStore creates a generation task store.
func NewPostgresGenerationTaskStore(db store.DBTX, log *slog.Logger) *PostgresGenerationTaskStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresGenerationTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "generation_task_store")),
	}
}

var _ store.GenerationTaskStore = (*PostgresGenerationTaskStore)(nil)

// WithTx implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) WithTx(tx *sql.Tx) store.GenerationTaskStore {
	return &PostgresGenerationTaskStore{db: tx, logger: s.logger}
}

// Create implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) Create(ctx context.Context, t *domain.GenerationTask) error {
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode task messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.UserID, t.MessageID, nullUUID(t.ConversationID), t.Status,
		t.PartialContent, t.FinalContent, t.ErrorMessage,
		t.Subject, t.Grade, t.Format, messages,
		t.CreatedAt, t.UpdatedAt, nullTime(t.CompletedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrTaskExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create generation task",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func scanTask(r rowScanner) (*domain.GenerationTask, error) {
	var t domain.GenerationTask
	var conv uuid.NullUUID
	var status, format string
	var messages []byte
	var completedAt sql.NullTime

	if err := r.Scan(&t.ID, &t.UserID, &t.MessageID, &conv, &status,
		&t.PartialContent, &t.FinalContent, &t.ErrorMessage,
		&t.Subject, &t.Grade, &format, &messages,
		&t.CreatedAt, &t.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &t.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode task messages: %w", err)
		}
	}
	t.ConversationID = uuidPtr(conv)
	t.Status = domain.TaskStatus(status)
	t.Format = domain.ChatFormat(format)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

func (s *PostgresGenerationTaskStore) getOne(ctx context.Context, query string, args ...any) (*domain.GenerationTask, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return t, nil
}

// GetByID implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	return s.getOne(ctx, `SELECT `+taskColumns+` FROM generation_tasks WHERE id = $1`, id)
}

// GetByMessageID implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error) {
	return s.getOne(ctx,
		`SELECT `+taskColumns+` FROM generation_tasks WHERE user_id = $1 AND message_id = $2`,
		userID, messageID)
}

// UpdatePartial implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) UpdatePartial(ctx context.Context, id uuid.UUID, content string) error {
	return s.execGenerating(ctx, `
		UPDATE generation_tasks
		SET partial_content = $1, updated_at = $2
		WHERE id = $3 AND status = 'generating'`,
		content, time.Now().UTC(), id)
}

// Complete implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) Complete(ctx context.Context, id uuid.UUID, content string, completedAt time.Time) error {
	at := completedAt.UTC()
	return s.execGenerating(ctx, `
		UPDATE generation_tasks
		SET status = 'completed', final_content = $1, partial_content = $1,
		    updated_at = $2, completed_at = $2
		WHERE id = $3 AND status = 'generating'`,
		content, at, id)
}

// Fail implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) Fail(ctx context.Context, id uuid.UUID, reason string, failedAt time.Time) error {
	at := failedAt.UTC()
	return s.execGenerating(ctx, `
		UPDATE generation_tasks
		SET status = 'failed', error_message = $1, updated_at = $2, completed_at = $2
		WHERE id = $3 AND status = 'generating'`,
		reason, at, id)
}

// FailGenerating implements store.GenerationTaskStore.
func (s *PostgresGenerationTaskStore) FailGenerating(ctx context.Context, createdBefore time.Time, reason string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE generation_tasks
		SET status = 'failed', error_message = $1, updated_at = $2, completed_at = $2
		WHERE status = 'generating' AND created_at < $3`,
		reason, now, createdBefore.UTC())
	if err != nil {
		return 0, MapError(err)
	}
	return res.RowsAffected()
}

// execGenerating runs a conditional update and distinguishes a missing row
// from a row that already left the generating state.
func (s *PostgresGenerationTaskStore) execGenerating(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	id := args[len(args)-1]
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM generation_tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	return store.ErrTaskNotGenerating
}
