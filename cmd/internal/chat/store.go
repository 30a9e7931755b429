// Package chat contains the realtime chat engine: presence registry,
// broadcast bus, message router, connection sessions, and message history
// persistence primitives.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StoredMessage is the canonical persisted message representation.
// Recipient is nil for public messages.
type StoredMessage struct {
	Sender    string
	Body      string
	Recipient *string
	SentAt    time.Time
}

// HistoryStore persists chat messages and replays the slice of history a
// given user is allowed to see.
//
// Requirements:
//   - Save failures are non-fatal to sessions; callers log and continue.
//   - LoadVisible returns messages where the recipient is absent (public),
//     or the user is the sender, or the user is the recipient, ordered by
//     original send time ascending.
type HistoryStore interface {
	Save(ctx context.Context, sender, body string, recipient *string) error
	LoadVisible(ctx context.Context, username string) ([]StoredMessage, error)
	Close() error
}

// StorageError marks a persistence failure. Sessions treat it as advisory:
// a failed save does not stop the broadcast and a failed load means
// "no history".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
