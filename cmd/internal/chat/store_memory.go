package chat

import (
	"context"
	"sync"
	"time"
)

const memMaxMessages = 10_000

// MemoryStore is a HistoryStore used when no database is configured and in
// tests. Messages are held in send order; the visibility filter runs in Go.
type MemoryStore struct {
	now func() time.Time

	mu   sync.Mutex
	msgs []StoredMessage
}

// MemoryOption configures MemoryStore behavior.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the store's wall clock (tests).
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore constructs an in-memory HistoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:  func() time.Time { return time.Now().UTC() },
		msgs: make([]StoredMessage, 0, 256),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// Save appends a message stamped with the store clock.
func (s *MemoryStore) Save(ctx context.Context, sender, body string, recipient *string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("memory.save", err)
	}

	var rcpt *string
	if recipient != nil {
		r := *recipient
		rcpt = &r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = append(s.msgs, StoredMessage{
		Sender:    sender,
		Body:      body,
		Recipient: rcpt,
		SentAt:    s.now(),
	})

	// Bound memory to avoid unbounded growth in long dev runs.
	if len(s.msgs) > memMaxMessages {
		s.msgs = s.msgs[len(s.msgs)-memMaxMessages:]
	}
	return nil
}

// LoadVisible returns public messages plus private messages sent by or
// addressed to username, in original send order.
func (s *MemoryStore) LoadVisible(ctx context.Context, username string) ([]StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("memory.load", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StoredMessage, 0, len(s.msgs))
	for _, m := range s.msgs {
		if !visibleTo(m, username) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// visibleTo is the history visibility rule: public, or username is the
// sender, or username is the recipient.
func visibleTo(m StoredMessage, username string) bool {
	if m.Recipient == nil {
		return true
	}
	return m.Sender == username || *m.Recipient == username
}
