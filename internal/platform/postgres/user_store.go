package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, full_name, grade_level, role, status, hashed_password, created_at, updated_at`

// PostgresUserStore implements store.UserStore.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresUserStore creates a user store. A bcryptCost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, log *slog.Logger) *PostgresUserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     log.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

// Create implements store.UserStore.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.FullName, user.GradeLevel, user.Role, user.Status,
		user.HashedPassword, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("email already registered", slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user", slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.UserStore.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanOne(row)
}

// GetByEmail implements store.UserStore.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
	return s.scanOne(row)
}

// UpdateStatus implements store.UserStore.
func (s *PostgresUserStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(res, "user"); err != nil {
		return store.ErrUserNotFound
	}
	return nil
}

// UpdateProfile implements store.UserStore.
func (s *PostgresUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, gradeLevel string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET full_name = $1, grade_level = $2, updated_at = $3 WHERE id = $4`,
		fullName, gradeLevel, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(res, "user"); err != nil {
		return store.ErrUserNotFound
	}
	return nil
}

// ListByStatus implements store.UserStore.
func (s *PostgresUserStore) ListByStatus(ctx context.Context, status domain.UserStatus, limit, offset int) ([]domain.User, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	return s.scanAll(rows)
}

// ListAdmins implements store.UserStore.
func (s *PostgresUserStore) ListAdmins(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = 'admin' AND status = 'active'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	return s.scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*domain.User, error) {
	var u domain.User
	var role, status string
	if err := r.Scan(&u.ID, &u.Email, &u.FullName, &u.GradeLevel, &role, &status,
		&u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func (s *PostgresUserStore) scanOne(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, MapError(err)
	}
	return u, nil
}

func (s *PostgresUserStore) scanAll(rows *sql.Rows) ([]domain.User, error) {
	defer func() { _ = rows.Close() }()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, MapError(err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// PostgresActivationTokenStore implements store.ActivationTokenStore.
type PostgresActivationTokenStore struct {
	db store.DBTX
}

// NewPostgresActivationTokenStore creates an activation token store.
func NewPostgresActivationTokenStore(db store.DBTX) *PostgresActivationTokenStore {
	return &PostgresActivationTokenStore{db: db}
}

var _ store.ActivationTokenStore = (*PostgresActivationTokenStore)(nil)

// WithTx implements store.ActivationTokenStore.
func (s *PostgresActivationTokenStore) WithTx(tx *sql.Tx) store.ActivationTokenStore {
	return &PostgresActivationTokenStore{db: tx}
}

// Create implements store.ActivationTokenStore.
func (s *PostgresActivationTokenStore) Create(ctx context.Context, t *domain.ActivationToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activation_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, nullTime(t.UsedAt), t.CreatedAt)
	return MapError(err)
}

// GetByID implements store.ActivationTokenStore.
func (s *PostgresActivationTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivationToken, error) {
	var t domain.ActivationToken
	var usedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM activation_tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrActivationTokenNotFound
		}
		return nil, MapError(err)
	}
	t.UsedAt = timePtr(usedAt)
	return &t, nil
}

// MarkUsed implements store.ActivationTokenStore.
func (s *PostgresActivationTokenStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activation_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
		usedAt.UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(res, "activation token"); err != nil {
		return store.ErrActivationTokenUsed
	}
	return nil
}

// DeleteExpired implements store.ActivationTokenStore.
func (s *PostgresActivationTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activation_tokens WHERE expires_at < $1 AND used_at IS NULL`, before.UTC())
	if err != nil {
		return 0, MapError(err)
	}
	return res.RowsAffected()
}
