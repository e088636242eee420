package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/waldemarhermann/netchat/internal/store"
)

var (
	// ErrUnknownUser is returned when logging in with an unregistered username.
	ErrUnknownUser = errors.New("user does not exist")
	// ErrBadCredential is returned when the password does not match.
	ErrBadCredential = errors.New("wrong password")
	// ErrInvalidRegistration is returned when a registration field is empty.
	ErrInvalidRegistration = errors.New("username, email and password must not be empty")
)

// Service provides registration and credential verification on top of a
// UserStore.
type Service struct {
	users store.UserStore
}

// NewService creates a new authentication service.
func NewService(users store.UserStore) *Service {
	return &Service{users: users}
}

// Register creates a new user with a hashed password. The existence pre-checks
// give precise duplicate errors; the store's uniqueness constraints remain the
// authority under concurrent registration.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return ErrInvalidRegistration
	}

	taken, err := s.users.UserExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return store.ErrDuplicateUsername
	}

	taken, err = s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return store.ErrDuplicateEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.AddUser(ctx, username, email, hash); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) || errors.Is(err, store.ErrDuplicateEmail) {
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login verifies the credentials for a username. It does not touch session
// state; binding the username to a live connection is the caller's concern.
func (s *Service) Login(ctx context.Context, username, password string) error {
	hash, err := s.users.PasswordHash(ctx, username)
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("load password hash: %w", err)
	}

	if ComparePassword(hash, password) != nil {
		return ErrBadCredential
	}
	return nil
}
