package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

const todoColumns = `id, user_id, title, subject, due_date, done, created_at, updated_at`

// PostgresTodoStore implements store.TodoStore.
type PostgresTodoStore struct {
	db store.DBTX
}

// NewPostgresTodoStore creates a todo store.
func NewPostgresTodoStore(db store.DBTX) *PostgresTodoStore {
	return &PostgresTodoStore{db: db}
}

var _ store.TodoStore = (*PostgresTodoStore)(nil)

func scanTodo(r rowScanner) (*domain.Todo, error) {
	var t domain.Todo
	var due sql.NullTime
	if err := r.Scan(&t.ID, &t.UserID, &t.Title, &t.Subject, &due, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.DueDate = timePtr(due)
	return &t, nil
}

func (s *PostgresTodoStore) list(ctx context.Context, query string, args ...any) ([]domain.Todo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create implements store.TodoStore.
func (s *PostgresTodoStore) Create(ctx context.Context, t *domain.Todo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.Title, t.Subject, nullTime(t.DueDate), t.Done, t.CreatedAt, t.UpdatedAt)
	return MapError(err)
}

// GetByID implements store.TodoStore.
func (s *PostgresTodoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error) {
	t, err := scanTodo(s.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTodoNotFound
	}
	return t, MapError(err)
}

// ListByUser implements store.TodoStore. Open todos come first, then by due date.
func (s *PostgresTodoStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Todo, error) {
	return s.list(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE user_id = $1
		ORDER BY done ASC, due_date ASC NULLS LAST, created_at ASC`, userID)
}

// Update implements store.TodoStore.
func (s *PostgresTodoStore) Update(ctx context.Context, t *domain.Todo) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE todos SET title = $1, subject = $2, due_date = $3, done = $4, updated_at = $5
		WHERE id = $6`,
		t.Title, t.Subject, nullTime(t.DueDate), t.Done, t.UpdatedAt, t.ID)
	if err != nil {
		return MapError(err)
	}
	if CheckRowsAffected(res, "todo") != nil {
		return store.ErrTodoNotFound
	}
	return nil
}

// Delete implements store.TodoStore.
func (s *PostgresTodoStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "todos", id, store.ErrTodoNotFound)
}

// ListOpenDueOn implements store.TodoStore.
func (s *PostgresTodoStore) ListOpenDueOn(ctx context.Context, day time.Time) ([]domain.Todo, error) {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.list(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE done = FALSE AND due_date = $1
		ORDER BY user_id, created_at`, d)
}
