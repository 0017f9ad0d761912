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

const conversationColumns = `id, user_id, title, subject, grade, format, created_at, updated_at`

// PostgresConversationStore implements store.ConversationStore.
type PostgresConversationStore struct {
	db store.DBTX
}

// NewPostgresConversationStore creates a conversation store.
func NewPostgresConversationStore(db store.DBTX) *PostgresConversationStore {
	return &PostgresConversationStore{db: db}
}

var _ store.ConversationStore = (*PostgresConversationStore)(nil)

// WithTx implements store.ConversationStore.
func (s *PostgresConversationStore) WithTx(tx *sql.Tx) store.ConversationStore {
	return &PostgresConversationStore{db: tx}
}

// Create implements store.ConversationStore.
func (s *PostgresConversationStore) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.Title, c.Subject, c.Grade, c.Format, c.CreatedAt, c.UpdatedAt)
	return MapError(err)
}

func scanConversation(r rowScanner) (*domain.Conversation, error) {
	var c domain.Conversation
	var format string
	if err := r.Scan(&c.ID, &c.UserID, &c.Title, &c.Subject, &c.Grade, &format, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Format = domain.ChatFormat(format)
	return &c, nil
}

// GetByID implements store.ConversationStore.
func (s *PostgresConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		return nil, MapError(err)
	}
	return c, nil
}

// ListByUser implements store.ConversationStore.
func (s *PostgresConversationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Rename implements store.ConversationStore.
func (s *PostgresConversationStore) Rename(ctx context.Context, id uuid.UUID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = $1, updated_at = $2 WHERE id = $3`,
		title, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if CheckRowsAffected(res, "conversation") != nil {
		return store.ErrConversationNotFound
	}
	return nil
}

// Delete implements store.ConversationStore.
func (s *PostgresConversationStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if CheckRowsAffected(res, "conversation") != nil {
		return store.ErrConversationNotFound
	}
	return nil
}

// AddMessage implements store.ConversationStore.
func (s *PostgresConversationStore) AddMessage(ctx context.Context, m *domain.ConversationMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrConversationNotFound
		}
		return MapError(err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`, m.CreatedAt, m.ConversationID)
	return MapError(err)
}

// ListMessages implements store.ConversationStore.
func (s *PostgresConversationStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		m.Role = domain.MessageRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
