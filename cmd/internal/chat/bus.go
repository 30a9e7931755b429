package chat

import (
	"log/slog"
	"sync"
)

// Bus is the shared fan-out channel carrying formatted outbound frames to
// every connected session.
//
// Delivery policy:
// - Publish never blocks. A subscriber whose queue is full misses the frame
//   (best-effort, lossy under backpressure).
// - A subscription observes only frames published after Subscribe.
// - Close terminates every subscriber channel; receivers drain and stop.
type Bus struct {
	log       *slog.Logger
	queueSize int

	mu     sync.Mutex
	closed bool
	subs   map[*Subscription]struct{}
}

// Subscription is one receive handle on the Bus. C is closed when the
// subscription is cancelled or the bus shuts down.
type Subscription struct {
	C <-chan string

	bus  *Bus
	c    chan string
	once sync.Once
}

// NewBus constructs a Bus whose subscribers buffer up to queueSize frames.
func NewBus(log *slog.Logger, queueSize int) *Bus {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultBusQueueSize
	}
	return &Bus{
		log:       log,
		queueSize: queueSize,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Subscribe returns a fresh receive handle. Frames published before this call
// are never delivered through it; history replay is a separate mechanism.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{bus: b, c: make(chan string, b.queueSize)}
	s.C = s.c

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(s.c)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish fans frame out to every current subscriber without blocking.
func (b *Bus) Publish(frame string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	framesPublished.Inc()
	for s := range b.subs {
		select {
		case s.c <- frame:
		default:
			// Slow subscriber: drop rather than block every publisher.
			framesDropped.Inc()
			b.log.Debug("bus.frame.drop", "queue", b.queueSize)
		}
	}
}

// Close detaches all subscribers and closes their channels. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for s := range b.subs {
		delete(b.subs, s)
		s.closeOnce()
	}
}

// Cancel detaches the subscription and closes its channel. Idempotent.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()

	s.closeOnce()
}

func (s *Subscription) closeOnce() {
	s.once.Do(func() { close(s.c) })
}
