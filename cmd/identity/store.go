// Package identity persists registered users for the registration side
// channel. The chat engine never consults it: joining the chat is
// deliberately unauthenticated.
package identity

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a registered account.
type User struct {
	ID       string
	Username string
}

// CreateUserInput describes a registration request.
type CreateUserInput struct {
	Username string
	Password string
	Now      time.Time
}

// Store persists registered users.
//
// CreateUser hashes the password before storing it and fails with a
// ConflictError when the username is already taken.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
}

// NewULID returns a new ULID string (26 chars, lexicographically sortable).
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NormalizeUsername lowercases and trims a username for uniqueness checks.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
