// Package broadcast implements the live event channel: an observer registry that
// re-emits every published event to the subscribers registered at that moment.
//
// There is no replay: a subscriber sees only events published after it subscribed.
// Close completes every current subscriber and any subscriber added afterwards.
package broadcast

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/id"
)

// Broadcaster fans events out to subscribers in registration order.
type Broadcaster struct {
	logger *slog.Logger
	subs   []*Subscription
	mu     sync.Mutex
	closed bool
}

// New creates an open broadcaster.
func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// Subscription is a registered callback. Done is closed once the subscription
// has completed, either because the broadcaster closed or because it was cancelled.
type Subscription struct {
	fn         func(event.Event)
	onComplete func()
	b          *Broadcaster
	done       chan struct{}
	ID         string
	once       sync.Once
}

// Subscribe registers fn to be called with every event published from now on.
// Calls happen on the publishing goroutine, one at a time, in publish order.
// Subscribing to a closed broadcaster returns an already completed subscription.
func (b *Broadcaster) Subscribe(fn func(event.Event)) *Subscription {
	return b.subscribe(fn, nil)
}

func (b *Broadcaster) subscribe(fn func(event.Event), onComplete func()) *Subscription {
	sub := &Subscription{
		ID:         id.MustShort("sub"),
		fn:         fn,
		onComplete: onComplete,
		b:          b,
		done:       make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.complete()
		return sub
	}
	b.subs = append(b.subs, sub)
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		slog.String("subscription_id", sub.ID),
		slog.Int("total_subscribers", total))
	return sub
}

// Publish delivers e to every current subscriber. It is a no-op once closed.
func (b *Broadcaster) Publish(e event.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug("event not published, channel closed", slog.Any("event", e))
		return
	}
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(e)
	}

	b.logger.Debug("event published",
		slog.Any("event", e),
		slog.Int("delivered", len(subs)))
}

// Close completes all subscribers. Later Publish calls are dropped and later
// subscribers complete immediately. Close is idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.complete()
	}

	b.logger.Debug("live channel completed", slog.Int("subscribers", len(subs)))
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Done returns a channel closed when the subscription completes.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops delivery to s and completes it.
func (s *Subscription) Unsubscribe() {
	b := s.b

	b.mu.Lock()
	if i := slices.Index(b.subs, s); i >= 0 {
		b.subs = slices.Delete(b.subs, i, i+1)
	}
	b.mu.Unlock()

	s.complete()
}

func (s *Subscription) complete() {
	s.once.Do(func() {
		close(s.done)
		if s.onComplete != nil {
			s.onComplete()
		}
	})
}
