package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_LoadVisibleFilter(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ctx := context.Background()
	s := NewMemoryStore()

	req.NoError(s.Save(ctx, "alice", "hello everyone", nil))
	req.NoError(s.Save(ctx, "alice", "secret for bob", strPtr("bob")))
	req.NoError(s.Save(ctx, "dave", "hi carol", strPtr("carol")))

	got, err := s.LoadVisible(ctx, "carol")
	req.NoError(err)

	// Carol sees the public message and the one addressed to her, in send
	// order; the alice->bob private message is filtered out.
	req.Len(got, 2)
	req.Equal("alice", got[0].Sender)
	req.Equal("hello everyone", got[0].Body)
	req.Nil(got[0].Recipient)
	req.Equal("dave", got[1].Sender)
	req.Equal("hi carol", got[1].Body)
}

func TestMemoryStore_SenderSeesOwnPrivateMessages(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ctx := context.Background()
	s := NewMemoryStore()

	req.NoError(s.Save(ctx, "alice", "secret for bob", strPtr("bob")))

	forAlice, err := s.LoadVisible(ctx, "alice")
	req.NoError(err)
	req.Len(forAlice, 1)

	forBob, err := s.LoadVisible(ctx, "bob")
	req.NoError(err)
	req.Len(forBob, 1)

	forCarol, err := s.LoadVisible(ctx, "carol")
	req.NoError(err)
	req.Empty(forCarol)
}

func TestMemoryStore_OrderAndClock(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s := NewMemoryStore(WithMemoryClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))

	req.NoError(s.Save(ctx, "alice", "first", nil))
	req.NoError(s.Save(ctx, "bob", "second", nil))
	req.NoError(s.Save(ctx, "alice", "third", nil))

	got, err := s.LoadVisible(ctx, "anyone")
	req.NoError(err)
	req.Len(got, 3)
	req.Equal("first", got[0].Body)
	req.Equal("second", got[1].Body)
	req.Equal("third", got[2].Body)
	req.True(got[0].SentAt.Before(got[1].SentAt))
	req.True(got[1].SentAt.Before(got[2].SentAt))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, "alice", "x", nil)
	req.Error(err)
	req.True(IsStorage(err))

	_, err = s.LoadVisible(ctx, "alice")
	req.Error(err)
	req.True(IsStorage(err))
}
