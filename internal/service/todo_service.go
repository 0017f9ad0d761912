package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// TodoInput creates a planner entry.
type TodoInput struct {
	Title   string
	Subject string
	DueDate *time.Time
}

// TodoPatch changes a planner entry. Nil fields are left alone.
type TodoPatch struct {
	Title        *string
	Subject      *string
	DueDate      *time.Time
	ClearDueDate bool
	Done         *bool
}

// TodoService manages the daily study planner.
type TodoService struct {
	todos  store.TodoStore
	logger *slog.Logger
}

// NewTodoService creates a TodoService.
func NewTodoService(todos store.TodoStore, logger *slog.Logger) *TodoService {
	return &TodoService{todos: todos, logger: logger.With("component", "todo_service")}
}

// List returns the user's todos.
func (s *TodoService) List(ctx context.Context, userID uuid.UUID) ([]domain.Todo, error) {
	todos, err := s.todos.ListByUser(ctx, userID)
	return todos, wrap("list_todos", err)
}

// Create adds a todo.
func (s *TodoService) Create(ctx context.Context, userID uuid.UUID, in TodoInput) (*domain.Todo, error) {
	todo, err := domain.NewTodo(userID, in.Title, in.Subject, in.DueDate)
	if err != nil {
		return nil, wrap("create_todo", invalid(err))
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, wrap("create_todo", err)
	}
	return todo, nil
}

// Update applies a patch to one of the user's todos.
func (s *TodoService) Update(ctx context.Context, userID, id uuid.UUID, patch TodoPatch) (*domain.Todo, error) {
	todo, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, wrap("update_todo", err)
	}
	if err := todo.Update(patch.Title, patch.Subject, patch.DueDate, patch.ClearDueDate, patch.Done); err != nil {
		return nil, wrap("update_todo", invalid(err))
	}
	if err := s.todos.Update(ctx, todo); err != nil {
		return nil, wrap("update_todo", err)
	}
	return todo, nil
}

// Delete removes one of the user's todos.
func (s *TodoService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return wrap("delete_todo", err)
	}
	return wrap("delete_todo", s.todos.Delete(ctx, id))
}

func (s *TodoService) get(ctx context.Context, userID, id uuid.UUID) (*domain.Todo, error) {
	return owned(ctx, s.todos.GetByID, id, userID, store.ErrTodoNotFound,
		func(t *domain.Todo) uuid.UUID { return t.UserID })
}
