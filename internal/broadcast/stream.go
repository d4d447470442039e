package broadcast

import (
	"sync"

	"github.com/listenupapp/watchstate/internal/event"
)

// Stream is a channel view of a subscription. Events are queued without bound so
// a slow reader never blocks the publisher and never misses an event. After the
// broadcaster closes, queued events are still delivered and then C is closed.
type Stream struct {
	sub       *Subscription
	out       chan event.Event
	wake      chan struct{}
	quit      chan struct{}
	queue     []event.Event
	mu        sync.Mutex
	quitOnce  sync.Once
	completed bool
}

// Observe returns a stream of every event published from now on.
func (b *Broadcaster) Observe() *Stream {
	s := &Stream{
		out:  make(chan event.Event),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	s.sub = b.subscribe(s.push, s.finish)

	go s.run()
	return s
}

// C returns the channel of events. It is closed when the stream completes.
func (s *Stream) C() <-chan event.Event {
	return s.out
}

// ID returns the identifier of the underlying subscription.
func (s *Stream) ID() string {
	return s.sub.ID
}

// Close unsubscribes and closes C without delivering queued events.
func (s *Stream) Close() {
	s.sub.Unsubscribe()
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *Stream) push(e event.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) finish() {
	s.mu.Lock()
	s.completed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run moves queued events to the output channel in order.
func (s *Stream) run() {
	defer close(s.out)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.completed {
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.quit:
				return
			}
			s.mu.Lock()
		}
		if len(s.queue) == 0 {
			// Completed and drained.
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.quit:
			return
		}
	}
}
