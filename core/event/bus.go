package event

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/scriptorium/clientkit/core/logger"
)

// DefaultSubscriberBuffer is the per-subscriber channel buffer size.
// Auth lifecycle events are low-volume; a small buffer absorbs bursts
// around sign-in/sign-out transitions.
const DefaultSubscriberBuffer = 8

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Subscription is one subscriber's receive side. C is closed when the
// subscription is canceled or the bus shuts down.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscription from the bus and closes C.
// Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Bus is a fan-out broadcaster for auth lifecycle events.
// Safe for concurrent publishers and subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
	closed bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger configures structured logging for the bus.
func WithLogger(log *slog.Logger) BusOption {
	return func(b *Bus) {
		if log != nil {
			b.logger = log
		}
	}
}

// NewBus creates an event bus with no subscribers.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber. Events published before Subscribe
// returns are not delivered to it.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, DefaultSubscriberBuffer)
	sub := &Subscription{C: ch, ch: ch}
	sub.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(ch)
		}
	}

	if b.closed {
		close(ch)
		return sub
	}

	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every current subscriber. A subscriber whose buffer
// is full is skipped, not blocked on.
func (b *Bus) Publish(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("subscriber buffer full, event dropped",
				logger.Event(ev.Name))
		}
	}
	return nil
}

// Close shuts the bus down: all subscriber channels are closed and further
// publishes return ErrBusClosed. Safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
