package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTask(t *testing.T) *domain.GenerationTask {
	t.Helper()
	task, err := domain.NewGenerationTask(uuid.New(), "msg-1", nil, "Maths", "Seconde", domain.FormatStandard,
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: "Qu'est-ce qu'une fonction affine ?"}})
	require.NoError(t, err)
	return task
}

func TestGenerationTaskStoreCreate(t *testing.T) {
	t.Run("inserts row", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresGenerationTaskStore(db, quietLogger())
		task := newTestTask(t)

		mock.ExpectExec("INSERT INTO generation_tasks").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), task))
	})

	t.Run("duplicate message id", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresGenerationTaskStore(db, quietLogger())

		mock.ExpectExec("INSERT INTO generation_tasks").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "generation_tasks_user_message_key"})

		err := s.Create(context.Background(), newTestTask(t))
		assert.ErrorIs(t, err, store.ErrTaskExists)
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestGenerationTaskStoreConditionalUpdates(t *testing.T) {
	id := uuid.New()

	t.Run("partial update applied", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresGenerationTaskStore(db, quietLogger())

		mock.ExpectExec(`UPDATE generation_tasks\s+SET partial_content`).
			WithArgs("Une fonction", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdatePartial(context.Background(), id, "Une fonction"))
	})

	t.Run("terminal task rejects write", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresGenerationTaskStore(db, quietLogger())

		mock.ExpectExec(`SET status = 'completed'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := s.Complete(context.Background(), id, "fin", time.Now())
		assert.ErrorIs(t, err, store.ErrTaskNotGenerating)
	})

	t.Run("missing task", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresGenerationTaskStore(db, quietLogger())

		mock.ExpectExec(`SET status = 'failed'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := s.Fail(context.Background(), id, "boom", time.Now())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestGenerationTaskStoreFailGenerating(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresGenerationTaskStore(db, quietLogger())
	cutoff := time.Now().Add(-10 * time.Minute)

	mock.ExpectExec(`WHERE status = 'generating' AND created_at < \$3`).
		WithArgs("interrupted", sqlmock.AnyArg(), cutoff.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.FailGenerating(context.Background(), cutoff, "interrupted")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGenerationTaskStoreGetByMessageID(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresGenerationTaskStore(db, quietLogger())
	userID := uuid.New()
	taskID := uuid.New()
	now := time.Now().UTC()

	cols := []string{"id", "user_id", "message_id", "conversation_id", "status", "partial_content",
		"final_content", "error_message", "subject", "grade", "format", "messages",
		"created_at", "updated_at", "completed_at"}

	mock.ExpectQuery("FROM generation_tasks WHERE user_id = \\$1 AND message_id = \\$2").
		WithArgs(userID, "msg-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			taskID.String(), userID.String(), "msg-1", nil, "generating", "Bonj", "", "",
			"Maths", "Seconde", "short", []byte(`[{"role":"user","content":"Salut"}]`),
			now, now, nil,
		))

	task, err := s.GetByMessageID(context.Background(), userID, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, domain.TaskStatusGenerating, task.Status)
	assert.Equal(t, domain.FormatShort, task.Format)
	assert.Equal(t, "Bonj", task.Content())
	assert.Nil(t, task.ConversationID)
	assert.Nil(t, task.CompletedAt)
	require.Len(t, task.Messages, 1)
	assert.Equal(t, "Salut", task.Messages[0].Content)

	mock.ExpectQuery("FROM generation_tasks WHERE id = \\$1").
		WillReturnError(sql.ErrNoRows)
	_, err = s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
