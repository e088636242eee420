package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateUsername is returned when a username is already registered.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrUserNotFound is returned when no user exists under the given name.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account. Created once via registration, never mutated
// or deleted afterwards.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	JoinedAt     time.Time
}

// Message is a persisted chat message. The log is append-only.
type Message struct {
	ID        int64
	Sender    string
	Receiver  string
	Text      string
	CreatedAt time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// AddUser creates a new user. Returns ErrDuplicateUsername or
	// ErrDuplicateEmail when a uniqueness constraint is violated.
	AddUser(ctx context.Context, username, email, passwordHash string) error

	// UserExists reports whether a username is registered.
	UserExists(ctx context.Context, username string) (bool, error)

	// EmailExists reports whether an email is registered.
	EmailExists(ctx context.Context, email string) (bool, error)

	// PasswordHash returns the stored hash for a username, or ErrUserNotFound.
	PasswordHash(ctx context.Context, username string) (string, error)

	// ListUsernames returns all registered usernames, newest first.
	ListUsernames(ctx context.Context) ([]string, error)
}

// MessageStore handles the durable message log.
type MessageStore interface {
	// AddMessage appends a message to the log.
	AddMessage(ctx context.Context, sender, receiver, text string) error

	// Conversation returns all messages exchanged between a and b in either
	// direction, ordered by timestamp ascending.
	Conversation(ctx context.Context, a, b string) ([]Message, error)
}

// Store combines all persistence concerns behind one handle.
type Store interface {
	UserStore
	MessageStore

	Close() error
}
