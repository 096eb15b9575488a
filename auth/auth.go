// Package auth owns account credentials: registration, password
// verification and change, and the API token scheme. It is the only place
// that touches password hashes.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"todoweb/domain"
)

const (
	defaultTokenTTL   = time.Hour
	minPasswordLength = 8
	// bcrypt rejects passwords over 72 bytes, so the limit is enforced as a
	// field error up front.
	maxPasswordLength = 72
	maxUsernameLength = 30
)

// ErrInvalidCredentials reports a failed username/password check. It never
// distinguishes an unknown account from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the account persistence the service runs on.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (domain.User, error)
	UserByName(ctx context.Context, username string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
}

// Service authenticates and manages accounts.
type Service struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	parser   *jwt.Parser
}

// NewService creates a Service. secret signs API bearer tokens; tokenTTL
// bounds their lifetime and defaults to an hour when non-positive.
func NewService(users UserStore, secret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Service{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Authenticate verifies a username/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.users.UserByName(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Register validates and creates a new account. Duplicate usernames and weak
// passwords surface as field-level validation errors.
func (s *Service) Register(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	errs := &domain.ValidationError{}
	if username == "" {
		errs.Add("username", "this field is required")
	} else if len(username) > maxUsernameLength {
		errs.Add("username", "must be at most 30 characters")
	}
	if len(password) < minPasswordLength {
		errs.Add("password", "must be at least 8 characters")
	} else if len(password) > maxPasswordLength {
		errs.Add("password", "must be at most 72 characters")
	}
	if len(errs.Fields) > 0 {
		return domain.User{}, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return domain.User{}, domain.NewValidationError("username", "this username is already taken")
		}
		return domain.User{}, err
	}
	return user, nil
}

// ChangePassword replaces an account's password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, replacement string) error {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.NewValidationError("current_password", "the current password is incorrect")
	}
	if len(replacement) < minPasswordLength {
		return domain.NewValidationError("new_password", "must be at least 8 characters")
	}
	if len(replacement) > maxPasswordLength {
		return domain.NewValidationError("new_password", "must be at most 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(replacement), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, userID, string(hash))
}
