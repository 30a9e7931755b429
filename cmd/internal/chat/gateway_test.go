package chat

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv   *httptest.Server
	store *MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clock := fixedClock(9, 5)
	store := NewMemoryStore(WithMemoryClock(clock))
	presence := NewPresence()
	bus := NewBus(testLogger(), 64)
	router := NewRouter(testLogger(), store, WithClock(clock))

	gw := NewGateway(testLogger(), presence, bus, router, store)

	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		bus.Close()
		srv.Close()
	})

	return &testServer{srv: srv, store: store}
}

func (ts *testServer) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, ts.srv.URL+"/ws?username="+url.QueryEscape(username), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	return string(data)
}

func writeFrame(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(text)))
}

// readUntil skips frames until one equals want, failing the test on timeout.
// It returns every frame skipped along the way.
func readUntil(t *testing.T, conn *websocket.Conn, want string) []string {
	t.Helper()

	var skipped []string
	for i := 0; i < 32; i++ {
		f := readFrame(t, conn)
		if f == want {
			return skipped
		}
		skipped = append(skipped, f)
	}
	t.Fatalf("frame %q never arrived", want)
	return nil
}

func TestGateway_JoinReplayAndFanout(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ts := newTestServer(t)

	alice := ts.dial(t, "alice")

	// First frame is the targeted snapshot; the join announcement was
	// published before this session subscribed, so it is not echoed back.
	req.Equal(`ACTIVE_USERS: ["alice"]`, readFrame(t, alice))

	// Round-trip one public message. Receiving our own broadcast proves the
	// write loop's subscription is live before anyone else connects.
	writeFrame(t, alice, "hello room")
	req.Equal("[09:05] [alice] hello room", readFrame(t, alice))

	bob := ts.dial(t, "bob")

	// Bob's replay precedes his snapshot; both bypass the bus.
	req.Equal("[09:05] [alice] hello room", readFrame(t, bob))
	req.Equal(`ACTIVE_USERS: ["alice","bob"]`, readFrame(t, bob))

	// Alice observes bob's join and the refreshed snapshot, in publish order.
	req.Equal("bob joined the chat", readFrame(t, alice))
	req.Equal(`ACTIVE_USERS: ["alice","bob"]`, readFrame(t, alice))

	// Private messages fan out to every subscriber; only history replay is
	// filtered by recipient.
	writeFrame(t, alice, "@bob psst")
	req.Equal("[09:05] [PM] From alice to bob: psst", readFrame(t, bob))
	req.Equal("[09:05] [PM] From alice to bob: psst", readFrame(t, alice))

	// The private message was persisted with its recipient: a third user's
	// replay never includes it.
	visible, err := ts.store.LoadVisible(context.Background(), "carol")
	req.NoError(err)
	req.Len(visible, 1)
	req.Equal("hello room", visible[0].Body)
}

func TestGateway_DisconnectAnnouncesOnce(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ts := newTestServer(t)

	alice := ts.dial(t, "alice")
	readUntil(t, alice, `ACTIVE_USERS: ["alice"]`)

	bob := ts.dial(t, "bob")
	readUntil(t, alice, `ACTIVE_USERS: ["alice","bob"]`)

	req.NoError(bob.Close(websocket.StatusNormalClosure, "done"))

	req.Equal("bob left the chat", readFrame(t, alice))
	req.Equal(`ACTIVE_USERS: ["alice"]`, readFrame(t, alice))

	// Both session loops observe the closed transport, but the leave
	// sequence must run exactly once: everything between the snapshot above
	// and alice's own next echo is inspected for duplicates.
	writeFrame(t, alice, "done")
	skipped := readUntil(t, alice, "[09:05] [alice] done")
	for _, f := range skipped {
		req.NotEqual("bob left the chat", f)
	}
}

func TestGateway_DuplicateUsernamesShareOneEntry(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ts := newTestServer(t)

	obs := ts.dial(t, "obs")
	readUntil(t, obs, `ACTIVE_USERS: ["obs"]`)

	first := ts.dial(t, "dup")
	readUntil(t, obs, `ACTIVE_USERS: ["dup","obs"]`)

	second := ts.dial(t, "dup")
	// The set keeps a single entry, so the snapshot is unchanged.
	readUntil(t, obs, `ACTIVE_USERS: ["dup","obs"]`)
	_ = second

	// Closing one of the two sessions removes the shared entry: the other
	// "dup" session is still connected but no longer listed. Documented
	// permissive behavior, preserved on purpose.
	req.NoError(first.Close(websocket.StatusNormalClosure, "bye"))
	readUntil(t, obs, "dup left the chat")
	readUntil(t, obs, `ACTIVE_USERS: ["obs"]`)
}

func TestGateway_EmptyUsernameAccepted(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ts := newTestServer(t)

	conn := ts.dial(t, "")
	req.Equal(`ACTIVE_USERS: [""]`, readFrame(t, conn))

	writeFrame(t, conn, "anonymous hello")
	req.Equal("[09:05] [] anonymous hello", readFrame(t, conn))
}

func TestGateway_IgnoresNonTextFrames(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	ts := newTestServer(t)

	conn := ts.dial(t, "alice")
	readUntil(t, conn, `ACTIVE_USERS: ["alice"]`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.NoError(conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02}))

	// The binary frame produced no broadcast: the next frame alice sees is
	// her own subsequent text message.
	writeFrame(t, conn, "after binary")
	req.Equal("[09:05] [alice] after binary", readFrame(t, conn))

	// And nothing was persisted for it.
	visible, err := ts.store.LoadVisible(context.Background(), "alice")
	req.NoError(err)
	req.Len(visible, 1)
	req.True(strings.HasSuffix(visible[0].Body, "after binary"))
}
