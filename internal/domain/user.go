package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes regular students from platform administrators.
type UserRole string

// Possible user roles.
const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// UserStatus tracks admin-gated account approval.
type UserStatus string

// Possible user status values.
const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusRejected UserStatus = "rejected"
)

// Password bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MaxFullNameLength = 120
)

// User validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrFullNameTooLong     = errors.New("full name is too long")
	ErrInvalidUserRole     = errors.New("invalid user role")
	ErrInvalidUserStatus   = errors.New("invalid user status")
	ErrUserNotActive       = errors.New("user account is not active")
	ErrUserAlreadyReviewed = errors.New("user account has already been reviewed")
)

// User is a Nextudy account (the "profile" row).
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	GradeLevel     string     `json:"grade_level,omitempty"`
	Role           UserRole   `json:"role"`
	Status         UserStatus `json:"status"`
	Password       string     `json:"-"` // plaintext, only present during registration
	HashedPassword string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewUser creates a pending student account. The caller is responsible for
// hashing Password before the user is stored.
func NewUser(email, fullName, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		FullName:  strings.TrimSpace(fullName),
		Role:      RoleStudent,
		Status:    UserStatusPending,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !ValidEmail(u.Email) {
		return ErrInvalidEmail
	}
	if len(u.FullName) > MaxFullNameLength {
		return ErrFullNameTooLong
	}
	if u.Password != "" {
		if err := ValidatePassword(u.Password); err != nil {
			return err
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyPassword
	}
	switch u.Role {
	case RoleStudent, RoleAdmin:
	default:
		return ErrInvalidUserRole
	}
	switch u.Status {
	case UserStatusPending, UserStatusActive, UserStatusRejected:
	default:
		return ErrInvalidUserStatus
	}
	return nil
}

// IsActive reports whether the user may sign in.
func (u *User) IsActive() bool { return u.Status == UserStatusActive }

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Activate approves a pending account.
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return ErrUserAlreadyReviewed
	}
	u.Status = UserStatusActive
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Reject refuses a pending account.
func (u *User) Reject() error {
	if u.Status != UserStatusPending {
		return ErrUserAlreadyReviewed
	}
	u.Status = UserStatusRejected
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ValidatePassword checks the plaintext password length bounds.
func ValidatePassword(password string) error {
	switch n := len(password); {
	case n == 0:
		return ErrEmptyPassword
	case n < MinPasswordLength:
		return ErrPasswordTooShort
	case n > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare address with a dotted domain.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domainPart := email[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
