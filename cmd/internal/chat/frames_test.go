package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnapshotFrame(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	req.Equal(`ACTIVE_USERS: []`, SnapshotFrame([]string{}))
	req.Equal(`ACTIVE_USERS: ["alice"]`, SnapshotFrame([]string{"alice"}))
	req.Equal(`ACTIVE_USERS: ["alice","bob"]`, SnapshotFrame([]string{"alice", "bob"}))
}

func TestReplayFrame(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	at := time.Date(2024, 3, 1, 7, 42, 59, 0, time.UTC)

	pub := StoredMessage{Sender: "alice", Body: "hi", SentAt: at}
	req.Equal("[07:42] [alice] hi", ReplayFrame(pub))

	priv := StoredMessage{Sender: "alice", Body: "psst", Recipient: strPtr("bob"), SentAt: at}
	req.Equal("[07:42] [PM] From alice to bob: psst", ReplayFrame(priv))
}

func TestPresenceFrames(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	req.Equal("alice joined the chat", JoinedFrame("alice"))
	req.Equal("alice left the chat", LeftFrame("alice"))
}
