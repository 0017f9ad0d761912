package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
)

// LoginCodeStore issues and checks one-time login codes.
type LoginCodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

// RateLimiter allows a bounded number of attempts per key and window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// AccountConfig holds the account rules taken from configuration.
type AccountConfig struct {
	ActivationTTL time.Duration
	BCryptCost    int
	LoginCodeTTL  time.Duration
	// AdminEmails are registered directly as active admins.
	AdminEmails []string
}

// AccountDeps are the collaborators of AccountService.
type AccountDeps struct {
	DB         *sql.DB
	Users      store.UserStore
	Tokens     store.ActivationTokenStore
	JWT        auth.JWTService
	Passwords  auth.PasswordVerifier
	LoginCodes LoginCodeStore
	Limiter    RateLimiter
	Events     events.EventEmitter
	Logger     *slog.Logger
}

// TokenPair is returned by every successful sign-in.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RegisterInput is a signup request.
type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	GradeLevel string
}

// AccountService handles signup, admin-gated activation and sign-in.
type AccountService struct {
	deps   AccountDeps
	config AccountConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(deps AccountDeps, config AccountConfig) (*AccountService, error) {
	if deps.DB == nil || deps.Users == nil || deps.Tokens == nil || deps.JWT == nil {
		return nil, errors.New("account service requires db, user store, token store and jwt service")
	}
	if deps.Passwords == nil {
		deps.Passwords = auth.NewBcryptVerifier()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	admins := make([]string, 0, len(config.AdminEmails))
	for _, e := range config.AdminEmails {
		admins = append(admins, domain.NormalizeEmail(e))
	}
	config.AdminEmails = admins
	return &AccountService{
		deps:   deps,
		config: config,
		logger: deps.Logger.With("component", "account_service"),
		now:    time.Now,
	}, nil
}

// Register creates a pending student account and an activation token, then
// notifies the admins. Configured admin emails are created active.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := domain.NewUser(in.Email, in.FullName, in.Password)
	if err != nil {
		return nil, wrap("register", invalid(err))
	}
	user.GradeLevel = in.GradeLevel

	if slices.Contains(s.config.AdminEmails, user.Email) {
		user.Role = domain.RoleAdmin
		user.Status = domain.UserStatusActive
		if err := s.deps.Users.Create(ctx, user); err != nil {
			return nil, wrap("register", err)
		}
		s.logger.InfoContext(ctx, "admin account registered", "user_id", user.ID)
		return user, nil
	}

	secret, hash, err := auth.NewActivationSecret(s.config.BCryptCost)
	if err != nil {
		return nil, wrap("register", err)
	}
	token, err := domain.NewActivationToken(user.ID, hash, s.config.ActivationTTL)
	if err != nil {
		return nil, wrap("register", err)
	}

	err = store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.deps.Users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.deps.Tokens.WithTx(tx).Create(ctx, token)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.DebugContext(ctx, "registration with existing email")
		} else {
			s.logger.ErrorContext(ctx, "failed to register user", "error", err)
		}
		return nil, wrap("register", err)
	}

	s.emit(ctx, events.UserRegistered, events.UserRegisteredPayload{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		TokenID:     token.ID,
		TokenSecret: secret,
	})
	s.logger.InfoContext(ctx, "user registered, waiting for approval", "user_id", user.ID)
	return user, nil
}

// Activate redeems an admin approval link and activates the account.
func (s *AccountService) Activate(ctx context.Context, tokenID uuid.UUID, secret string) (*domain.User, error) {
	var user *domain.User
	now := s.now().UTC()

	err := store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		tokens := s.deps.Tokens.WithTx(tx)
		users := s.deps.Users.WithTx(tx)

		token, err := tokens.GetByID(ctx, tokenID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidActivation
			}
			return err
		}
		if err := token.CheckUsable(now); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidActivation, err)
		}
		if err := s.deps.Passwords.Compare(token.TokenHash, secret); err != nil {
			return ErrInvalidActivation
		}
		if err := tokens.MarkUsed(ctx, token.ID, now); err != nil {
			if errors.Is(err, store.ErrActivationTokenUsed) {
				return fmt.Errorf("%w: %w", ErrInvalidActivation, err)
			}
			return err
		}

		user, err = users.GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		if err := user.Activate(); err != nil {
			return err
		}
		return users.UpdateStatus(ctx, user.ID, user.Status)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "activation failed", "token_id", tokenID, "error", err)
		return nil, wrap("activate", err)
	}

	s.emit(ctx, events.UserActivated, reviewedPayload(user))
	s.logger.InfoContext(ctx, "user activated", "user_id", user.ID)
	return user, nil
}

// Login signs a user in with email and password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if err := s.allow(ctx, "login:"+email); err != nil {
		return nil, wrap("login", err)
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, wrap("login", ErrInvalidCredentials)
		}
		return nil, wrap("login", err)
	}
	if err := s.deps.Passwords.Compare(user.HashedPassword, password); err != nil {
		return nil, wrap("login", ErrInvalidCredentials)
	}
	return s.signIn(ctx, user, "login")
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.deps.JWT.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, wrap("refresh", err)
	}
	user, err := s.deps.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, wrap("refresh", auth.ErrInvalidRefreshToken)
		}
		return nil, wrap("refresh", err)
	}
	return s.signIn(ctx, user, "refresh")
}

// RequestLoginCode mails a one-time login code. Unknown or inactive
// accounts get no code but the call still succeeds.
func (s *AccountService) RequestLoginCode(ctx context.Context, email string) error {
	if s.deps.LoginCodes == nil {
		return wrap("request_login_code", ErrFeatureDisabled)
	}
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return wrap("request_login_code", invalid(domain.ErrInvalidEmail))
	}
	if err := s.allow(ctx, "login_code:"+email); err != nil {
		return wrap("request_login_code", err)
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.DebugContext(ctx, "login code requested for unknown email")
			return nil
		}
		return wrap("request_login_code", err)
	}
	if !user.IsActive() {
		s.logger.DebugContext(ctx, "login code requested for inactive account", "user_id", user.ID)
		return nil
	}

	code, err := s.deps.LoginCodes.Issue(ctx, email)
	if err != nil {
		return wrap("request_login_code", err)
	}
	s.emit(ctx, events.LoginCodeIssued, events.LoginCodePayload{
		Email:      email,
		Code:       code,
		TTLMinutes: int(s.config.LoginCodeTTL / time.Minute),
	})
	return nil
}

// VerifyLoginCode exchanges a mailed code for a token pair.
func (s *AccountService) VerifyLoginCode(ctx context.Context, email, code string) (*TokenPair, error) {
	if s.deps.LoginCodes == nil {
		return nil, wrap("verify_login_code", ErrFeatureDisabled)
	}
	email = domain.NormalizeEmail(email)
	if err := s.deps.LoginCodes.Verify(ctx, email, code); err != nil {
		s.logger.DebugContext(ctx, "login code rejected", "error", err)
		return nil, wrap("verify_login_code", ErrInvalidCredentials)
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, wrap("verify_login_code", ErrInvalidCredentials)
		}
		return nil, wrap("verify_login_code", err)
	}
	return s.signIn(ctx, user, "verify_login_code")
}

// GetUser returns the account of userID.
func (s *AccountService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	return user, wrap("get_user", err)
}

// UpdateProfile changes the display name and grade level.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, gradeLevel string) (*domain.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrap("update_profile", err)
	}
	fullName = strings.TrimSpace(fullName)
	gradeLevel = strings.TrimSpace(gradeLevel)
	if utf8.RuneCountInString(fullName) > domain.MaxFullNameLength {
		return nil, wrap("update_profile", invalid(domain.ErrFullNameTooLong))
	}
	if err := s.deps.Users.UpdateProfile(ctx, userID, fullName, gradeLevel); err != nil {
		return nil, wrap("update_profile", err)
	}
	user.FullName = fullName
	user.GradeLevel = gradeLevel
	return user, nil
}

func (s *AccountService) signIn(ctx context.Context, user *domain.User, op string) (*TokenPair, error) {
	switch user.Status {
	case domain.UserStatusPending:
		return nil, wrap(op, ErrAccountPending)
	case domain.UserStatusRejected:
		return nil, wrap(op, ErrAccountRejected)
	}

	access, err := s.deps.JWT.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, wrap(op, err)
	}
	refresh, err := s.deps.JWT.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().UTC().Add(s.deps.JWT.AccessTokenLifetime()),
	}, nil
}

// allow consults the limiter. A limiter error refuses the attempt.
func (s *AccountService) allow(ctx context.Context, key string) error {
	if s.deps.Limiter == nil {
		return nil
	}
	ok, err := s.deps.Limiter.Allow(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limiter unavailable", "error", err)
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

func (s *AccountService) emit(ctx context.Context, eventType string, payload any) {
	emit(ctx, s.deps.Events, s.logger, eventType, payload)
}

func emit(ctx context.Context, emitter events.EventEmitter, log *slog.Logger, eventType string, payload any) {
	if emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, payload)
	if err == nil {
		err = emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to emit event", "event_type", eventType, "error", err)
	}
}

func reviewedPayload(user *domain.User) events.UserReviewedPayload {
	return events.UserReviewedPayload{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}
}
