package chat

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Gateway is the WebSocket entrypoint for the chat engine. It upgrades HTTP
// requests, claims the username from the join request, and hands the socket
// to a session.
type Gateway struct {
	log      *slog.Logger
	presence *Presence
	bus      *Bus
	router   *Router
	store    HistoryStore

	writeTimeout   time.Duration
	originPatterns []string
	devInsecure    bool
}

// GatewayOption configures optional Gateway behavior.
type GatewayOption func(*Gateway)

// WithWriteTimeout sets the per-frame socket write deadline.
func WithWriteTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// WithOriginPatterns sets host patterns authorized for cross-origin upgrades.
func WithOriginPatterns(patterns []string) GatewayOption {
	return func(g *Gateway) { g.originPatterns = patterns }
}

// WithDevInsecure disables origin verification entirely. Dev-only knob.
func WithDevInsecure(v bool) GatewayOption {
	return func(g *Gateway) { g.devInsecure = v }
}

// NewGateway constructs a Gateway over shared presence, bus, router, and
// history handles.
func NewGateway(log *slog.Logger, presence *Presence, bus *Bus, router *Router, store HistoryStore, opts ...GatewayOption) *Gateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	g := &Gateway{
		log:          log,
		presence:     presence,
		bus:          bus,
		router:       router,
		store:        store,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// ServeHTTP adapter so the gateway can be mounted as http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and runs the session until the transport
// errors or closes. There is no idle timeout: an idle connection persists.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	q := r.URL.Query()
	username := q.Get("username")
	// The password parameter is part of the join convention but is never
	// verified on the chat path; authentication lives outside this engine.
	_ = q.Get("password")

	s := &session{
		id:           uuid.NewString(),
		username:     username,
		log:          g.log,
		conn:         conn,
		presence:     g.presence,
		bus:          g.bus,
		router:       g.router,
		store:        g.store,
		writeTimeout: g.writeTimeout,
	}

	g.log.Info("ws.session.start", "session_id", s.id, "username", username, "remote", r.RemoteAddr)
	s.run(r.Context())
	g.log.Info("ws.session.end", "session_id", s.id, "username", username)
}
