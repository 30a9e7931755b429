package chat

import (
	"encoding/json"
	"fmt"
)

// Wire frames are plain text, one per transport message. The shape is part of
// the client contract:
//
//	[HH:MM] [<user>] <body>
//	[HH:MM] [PM] From <sender> to <recipient>: <body>
//	<user> joined the chat
//	<user> left the chat
//	ACTIVE_USERS: <JSON array of usernames>

const wireClock = "15:04"

// PublicFrame formats a public chat line.
func PublicFrame(ts, sender, body string) string {
	return fmt.Sprintf("[%s] [%s] %s", ts, sender, body)
}

// PrivateFrame formats a directed chat line.
func PrivateFrame(ts, sender, recipient, body string) string {
	return fmt.Sprintf("[%s] [PM] From %s to %s: %s", ts, sender, recipient, body)
}

// JoinedFrame announces a presence join.
func JoinedFrame(username string) string {
	return username + " joined the chat"
}

// LeftFrame announces a presence departure.
func LeftFrame(username string) string {
	return username + " left the chat"
}

// SnapshotFrame renders the presence snapshot as an ACTIVE_USERS frame.
func SnapshotFrame(users []string) string {
	b, err := json.Marshal(users)
	if err != nil {
		// Unreachable for []string; keep the frame shape anyway.
		b = []byte("[]")
	}
	return "ACTIVE_USERS: " + string(b)
}

// ReplayFrame formats a stored message for targeted history replay, using the
// message's original send time at minute resolution.
func ReplayFrame(m StoredMessage) string {
	ts := m.SentAt.Format(wireClock)
	if m.Recipient != nil {
		return PrivateFrame(ts, m.Sender, *m.Recipient, m.Body)
	}
	return PublicFrame(ts, m.Sender, m.Body)
}
