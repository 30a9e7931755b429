package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// session is the per-client unit bridging one websocket to the presence
// registry and the broadcast bus.
//
// Lifecycle: Connecting -> Active -> Draining -> Closed.
// Active runs two goroutines, a read loop and a write loop, which share
// nothing but the bus subscription and immutable handles. Whichever loop
// observes transport failure first triggers teardown; teardown runs exactly
// once even when both loops fail concurrently.
type session struct {
	id       string
	username string

	log      *slog.Logger
	conn     *websocket.Conn
	presence *Presence
	bus      *Bus
	router   *Router
	store    HistoryStore

	writeTimeout time.Duration

	sub      *Subscription
	teardown sync.Once
}

// run drives the session to completion. It returns when both loops have
// stopped and cleanup has run.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	activeConnections.Inc()
	defer activeConnections.Dec()

	// Enter Active: presence join, join announcement, targeted history
	// replay, then the snapshot (direct first, broadcast second).
	users := s.presence.Join(s.username)
	s.bus.Publish(JoinedFrame(s.username))

	s.replayHistory(ctx)

	snapshot := SnapshotFrame(users)
	if err := s.write(ctx, snapshot); err != nil {
		s.log.Info("ws.snapshot.fail", "session_id", s.id, "err", err)
	}
	s.bus.Publish(snapshot)

	// Subscribed only now: history never arrives twice and the session's own
	// join traffic is not echoed back through the bus.
	s.sub = s.bus.Subscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel)
	}()

	s.readLoop(ctx, cancel)

	<-writerDone
}

// replayHistory sends the user's visible history directly to this socket,
// bypassing the bus. A load failure means "no history", never a dead session.
func (s *session) replayHistory(ctx context.Context) {
	msgs, err := s.store.LoadVisible(ctx, s.username)
	if err != nil {
		s.log.Error("history.load.fail", "username", s.username, "err", err)
		return
	}

	for _, m := range msgs {
		if err := s.write(ctx, ReplayFrame(m)); err != nil {
			// Transport already failing; the read loop will notice and drain.
			s.log.Info("ws.replay.fail", "session_id", s.id, "err", err)
			return
		}
	}
}

// readLoop pulls raw frames off the socket in arrival order. Text frames go
// through the router and onto the bus; other frame types are ignored.
func (s *session) readLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			s.drain(cancel, "read", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		s.bus.Publish(s.router.Route(ctx, s.username, string(data)))
	}
}

// writeLoop forwards every bus frame to the socket. A write failure drains
// the session; a closed subscription (bus shutdown) ends the loop silently.
func (s *session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-s.sub.C:
			if !ok {
				return
			}
			if err := s.write(ctx, frame); err != nil {
				s.drain(cancel, "write", err)
				return
			}
		}
	}
}

func (s *session) write(ctx context.Context, frame string) error {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, []byte(frame))
}

// drain runs the leave sequence exactly once: presence removal, departure
// announcement, fresh snapshot, subscription cancel, socket close.
func (s *session) drain(cancel context.CancelFunc, loop string, cause error) {
	s.teardown.Do(func() {
		status := websocket.CloseStatus(cause)
		s.log.Info("ws.session.drain",
			"session_id", s.id,
			"username", s.username,
			"loop", loop,
			"close_status", status,
		)

		s.presence.Leave(s.username)
		s.bus.Publish(LeftFrame(s.username))
		s.bus.Publish(SnapshotFrame(s.presence.Snapshot()))

		s.sub.Cancel()
		cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}
