package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// IntentKind discriminates parsed inbound messages.
type IntentKind uint8

const (
	// IntentPublic is an undirected message visible to all.
	IntentPublic IntentKind = iota
	// IntentPrivate is a directed message for one named recipient.
	IntentPrivate
)

// Intent is the explicit form of one inbound text frame. The "@recipient"
// convention is parsed exactly once, here, instead of being re-inspected at
// each call site.
type Intent struct {
	Kind      IntentKind
	Recipient string
	Body      string
}

// ParseInbound classifies raw inbound text.
//
// A leading '@' marks a private message: the first whitespace-delimited token
// (minus the '@') is the recipient and everything after the first space is
// the body. "@bob" with no trailing space is a valid private message with an
// empty body, never an error.
func ParseInbound(raw string) Intent {
	if !strings.HasPrefix(raw, "@") {
		return Intent{Kind: IntentPublic, Body: raw}
	}

	recipient, body, found := strings.Cut(raw, " ")
	recipient = strings.TrimPrefix(recipient, "@")
	if !found {
		body = ""
	}
	return Intent{Kind: IntentPrivate, Recipient: recipient, Body: body}
}

// Router turns raw inbound text into a persisted message plus the formatted
// outbound frame the caller publishes.
type Router struct {
	log   *slog.Logger
	store HistoryStore
	now   func() time.Time
}

// RouterOption configures Router behavior.
type RouterOption func(*Router)

// WithClock overrides the router's wall clock (tests).
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRouter constructs a Router over the given history store.
func NewRouter(log *slog.Logger, store HistoryStore, opts ...RouterOption) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		log:   log,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Route parses raw, persists the message, and returns the frame to publish.
//
// A save failure is logged and otherwise ignored: broadcast proceeds so one
// storage hiccup never silences the room. Given the same sender, raw text,
// and clock reading, Route always produces the same frame.
func (r *Router) Route(ctx context.Context, sender, raw string) string {
	intent := ParseInbound(raw)
	ts := r.now().Format(wireClock)

	var recipient *string
	if intent.Kind == IntentPrivate {
		recipient = &intent.Recipient
	}

	if err := r.store.Save(ctx, sender, intent.Body, recipient); err != nil {
		r.log.Error("history.save.fail", "sender", sender, "err", err)
	}

	if intent.Kind == IntentPrivate {
		messagesRouted.WithLabelValues("private").Inc()
		return PrivateFrame(ts, sender, intent.Recipient, intent.Body)
	}
	messagesRouted.WithLabelValues("public").Inc()
	return PublicFrame(ts, sender, intent.Body)
}
