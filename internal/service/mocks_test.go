package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/nextudy/nextudy-api/internal/platform/mailer"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/nextudy/nextudy-api/internal/task"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTxDB returns a sqlmock DB expecting n committed transactions.
func newTxDB(t *testing.T, commits int) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for i := 0; i < commits; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	return db, mock
}

type mockUserStore struct {
	CreateFn        func(ctx context.Context, u *domain.User) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	UpdateStatusFn  func(ctx context.Context, id uuid.UUID, status domain.UserStatus) error
	UpdateProfileFn func(ctx context.Context, id uuid.UUID, fullName, grade string) error
	ListByStatusFn  func(ctx context.Context, status domain.UserStatus, limit, offset int) ([]domain.User, error)
	ListAdminsFn    func(ctx context.Context) ([]domain.User, error)
}

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, grade string) error {
	if m.UpdateProfileFn != nil {
		return m.UpdateProfileFn(ctx, id, fullName, grade)
	}
	return nil
}

func (m *mockUserStore) ListByStatus(ctx context.Context, status domain.UserStatus, limit, offset int) ([]domain.User, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status, limit, offset)
	}
	return nil, nil
}

func (m *mockUserStore) ListAdmins(ctx context.Context) ([]domain.User, error) {
	if m.ListAdminsFn != nil {
		return m.ListAdminsFn(ctx)
	}
	return nil, nil
}

func (m *mockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

type mockTokenStore struct {
	CreateFn   func(ctx context.Context, t *domain.ActivationToken) error
	GetByIDFn  func(ctx context.Context, id uuid.UUID) (*domain.ActivationToken, error)
	MarkUsedFn func(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

func (m *mockTokenStore) Create(ctx context.Context, t *domain.ActivationToken) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}

func (m *mockTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivationToken, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrActivationTokenNotFound
}

func (m *mockTokenStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	if m.MarkUsedFn != nil {
		return m.MarkUsedFn(ctx, id, usedAt)
	}
	return nil
}

func (m *mockTokenStore) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *mockTokenStore) WithTx(*sql.Tx) store.ActivationTokenStore { return m }

type mockJWT struct{}

func (mockJWT) GenerateToken(_ context.Context, id uuid.UUID) (string, error) {
	return "access-" + id.String(), nil
}

func (mockJWT) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return nil, auth.ErrInvalidToken
}

func (mockJWT) GenerateRefreshToken(_ context.Context, id uuid.UUID) (string, error) {
	return "refresh-" + id.String(), nil
}

func (mockJWT) ValidateRefreshToken(_ context.Context, token string) (*auth.Claims, error) {
	id, err := uuid.Parse(token[len("refresh-"):])
	if err != nil {
		return nil, auth.ErrInvalidRefreshToken
	}
	return &auth.Claims{UserID: id, TokenType: auth.TokenTypeRefresh}, nil
}

func (mockJWT) AccessTokenLifetime() time.Duration { return time.Hour }

type mockLoginCodes struct {
	IssueFn  func(ctx context.Context, email string) (string, error)
	VerifyFn func(ctx context.Context, email, code string) error
}

func (m *mockLoginCodes) Issue(ctx context.Context, email string) (string, error) {
	return m.IssueFn(ctx, email)
}

func (m *mockLoginCodes) Verify(ctx context.Context, email, code string) error {
	return m.VerifyFn(ctx, email, code)
}

type mockLimiter struct {
	AllowFn func(ctx context.Context, key string) (bool, error)
	keys    []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingEmitter) EmitEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingMailer struct {
	SendFn func(ctx context.Context, msg mailer.Message) error
	sent   []mailer.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.SendFn != nil {
		if err := m.SendFn(ctx, msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockTaskStore struct {
	CreateFn         func(ctx context.Context, t *domain.GenerationTask) error
	GetByMessageIDFn func(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error)
	FailFn           func(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

func (m *mockTaskStore) Create(ctx context.Context, t *domain.GenerationTask) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}

func (m *mockTaskStore) GetByID(context.Context, uuid.UUID) (*domain.GenerationTask, error) {
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error) {
	if m.GetByMessageIDFn != nil {
		return m.GetByMessageIDFn(ctx, userID, messageID)
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) UpdatePartial(context.Context, uuid.UUID, string) error { return nil }

func (m *mockTaskStore) Complete(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (m *mockTaskStore) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	if m.FailFn != nil {
		return m.FailFn(ctx, id, reason, at)
	}
	return nil
}

func (m *mockTaskStore) FailGenerating(context.Context, time.Time, string) (int64, error) {
	return 0, nil
}

func (m *mockTaskStore) WithTx(*sql.Tx) store.GenerationTaskStore { return m }

type mockConversationStore struct {
	CreateFn       func(ctx context.Context, c *domain.Conversation) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	RenameFn       func(ctx context.Context, id uuid.UUID, title string) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) error
	AddMessageFn   func(ctx context.Context, msg *domain.ConversationMessage) error
	ListMessagesFn func(ctx context.Context, id uuid.UUID) ([]domain.ConversationMessage, error)
}

func (m *mockConversationStore) Create(ctx context.Context, c *domain.Conversation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, c)
	}
	return nil
}

func (m *mockConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrConversationNotFound
}

func (m *mockConversationStore) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.Conversation, error) {
	return nil, nil
}

func (m *mockConversationStore) Rename(ctx context.Context, id uuid.UUID, title string) error {
	if m.RenameFn != nil {
		return m.RenameFn(ctx, id, title)
	}
	return nil
}

func (m *mockConversationStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

func (m *mockConversationStore) AddMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	if m.AddMessageFn != nil {
		return m.AddMessageFn(ctx, msg)
	}
	return nil
}

func (m *mockConversationStore) ListMessages(ctx context.Context, id uuid.UUID) ([]domain.ConversationMessage, error) {
	if m.ListMessagesFn != nil {
		return m.ListMessagesFn(ctx, id)
	}
	return nil, nil
}

func (m *mockConversationStore) WithTx(*sql.Tx) store.ConversationStore { return m }

type mockRunner struct {
	SubmitFn  func(t task.Task) error
	submitted []task.Task
}

func (m *mockRunner) Submit(t task.Task) error {
	if m.SubmitFn != nil {
		if err := m.SubmitFn(t); err != nil {
			return err
		}
	}
	m.submitted = append(m.submitted, t)
	return nil
}

type stubTask struct{ id uuid.UUID }

func (s stubTask) ID() uuid.UUID                 { return s.id }
func (s stubTask) Type() string                  { return task.TaskTypeChatGeneration }
func (s stubTask) Execute(context.Context) error { return nil }

func stubTaskFactory(row *domain.GenerationTask) (task.Task, error) {
	return stubTask{id: row.ID}, nil
}

// memStore is an in-memory keyed store for study and planner rows.
type memStore[T any] struct {
	rows    map[uuid.UUID]*T
	id      func(*T) uuid.UUID
	deleted []uuid.UUID
}

func newMemStore[T any](id func(*T) uuid.UUID) *memStore[T] {
	return &memStore[T]{rows: map[uuid.UUID]*T{}, id: id}
}

func (m *memStore[T]) put(v *T) { m.rows[m.id(v)] = v }

func (m *memStore[T]) get(id uuid.UUID, notFound error) (*T, error) {
	v, ok := m.rows[id]
	if !ok {
		return nil, notFound
	}
	return v, nil
}

func (m *memStore[T]) del(id uuid.UUID) {
	delete(m.rows, id)
	m.deleted = append(m.deleted, id)
}

type memSummaries struct{ *memStore[domain.Summary] }

func newMemSummaries() memSummaries {
	return memSummaries{newMemStore(func(s *domain.Summary) uuid.UUID { return s.ID })}
}

func (m memSummaries) Create(_ context.Context, s *domain.Summary) error { m.put(s); return nil }
func (m memSummaries) GetByID(_ context.Context, id uuid.UUID) (*domain.Summary, error) {
	return m.get(id, store.ErrSummaryNotFound)
}
func (m memSummaries) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.Summary, error) {
	return nil, nil
}
func (m memSummaries) Delete(_ context.Context, id uuid.UUID) error { m.del(id); return nil }

type memFlashcards struct{ *memStore[domain.FlashcardSet] }

func newMemFlashcards() memFlashcards {
	return memFlashcards{newMemStore(func(s *domain.FlashcardSet) uuid.UUID { return s.ID })}
}

func (m memFlashcards) Create(_ context.Context, s *domain.FlashcardSet) error { m.put(s); return nil }
func (m memFlashcards) GetByID(_ context.Context, id uuid.UUID) (*domain.FlashcardSet, error) {
	return m.get(id, store.ErrFlashcardSetNotFound)
}
func (m memFlashcards) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.FlashcardSet, error) {
	return nil, nil
}
func (m memFlashcards) Delete(_ context.Context, id uuid.UUID) error { m.del(id); return nil }

type memQuizzes struct{ *memStore[domain.Quiz] }

func newMemQuizzes() memQuizzes {
	return memQuizzes{newMemStore(func(q *domain.Quiz) uuid.UUID { return q.ID })}
}

func (m memQuizzes) Create(_ context.Context, q *domain.Quiz) error { m.put(q); return nil }
func (m memQuizzes) GetByID(_ context.Context, id uuid.UUID) (*domain.Quiz, error) {
	return m.get(id, store.ErrQuizNotFound)
}
func (m memQuizzes) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.Quiz, error) {
	return nil, nil
}
func (m memQuizzes) Delete(_ context.Context, id uuid.UUID) error { m.del(id); return nil }

type memDocuments struct {
	*memStore[domain.Document]
	CreateErr error
}

func newMemDocuments() *memDocuments {
	return &memDocuments{memStore: newMemStore(func(d *domain.Document) uuid.UUID { return d.ID })}
}

func (m *memDocuments) Create(_ context.Context, d *domain.Document) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.put(d)
	return nil
}
func (m *memDocuments) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	return m.get(id, store.ErrDocumentNotFound)
}
func (m *memDocuments) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.Document, error) {
	return nil, nil
}
func (m *memDocuments) Delete(_ context.Context, id uuid.UUID) error { m.del(id); return nil }

type memTodos struct {
	*memStore[domain.Todo]
	due    []domain.Todo
	dueDay time.Time
}

func newMemTodos() *memTodos {
	return &memTodos{memStore: newMemStore(func(t *domain.Todo) uuid.UUID { return t.ID })}
}

func (m *memTodos) Create(_ context.Context, t *domain.Todo) error { m.put(t); return nil }
func (m *memTodos) GetByID(_ context.Context, id uuid.UUID) (*domain.Todo, error) {
	return m.get(id, store.ErrTodoNotFound)
}
func (m *memTodos) ListByUser(context.Context, uuid.UUID) ([]domain.Todo, error) { return nil, nil }
func (m *memTodos) Update(_ context.Context, t *domain.Todo) error               { m.put(t); return nil }
func (m *memTodos) Delete(_ context.Context, id uuid.UUID) error                 { m.del(id); return nil }
func (m *memTodos) ListOpenDueOn(_ context.Context, day time.Time) ([]domain.Todo, error) {
	m.dueDay = day
	return m.due, nil
}
