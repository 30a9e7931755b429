package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a Store used when no database is configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User // normalized username -> user
}

// NewMemoryStore constructs an in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// CreateUser registers a new user, enforcing username uniqueness.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := NormalizeUsername(in.Username)
	if username == "" {
		return User{}, invalid(op, "username is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, invalid(op, "password is required")
	}

	// Hash even though the in-memory store never reads it back: the dev mode
	// must not behave more permissively than the real store.
	if _, err := HashPassword(in.Password, DefaultArgon2idParams()); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[username]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	u := User{ID: id, Username: username}
	s.users[username] = u
	return u, nil
}
