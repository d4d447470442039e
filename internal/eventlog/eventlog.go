// Package eventlog implements the append-only ordered log of filesystem events.
package eventlog

import (
	"slices"
	"sync"

	"github.com/listenupapp/watchstate/internal/event"
)

// Log is an append-only, arrival-ordered sequence of events.
// Appended events are never reordered or dropped; Reset discards all of them at once.
type Log struct {
	events []event.Event
	mu     sync.RWMutex
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Append records e after every previously appended event.
func (l *Log) Append(e event.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Events returns a copy of the log content, oldest first.
// The returned slice is never shared with the log.
func (l *Log) Events() []event.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.events)
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.events)
}

// Reset discards every recorded event.
func (l *Log) Reset() {
	l.mu.Lock()
	// Drop the backing array so copies handed out earlier stay independent.
	l.events = nil
	l.mu.Unlock()
}

// Counts returns the number of recorded events per kind.
func (l *Log) Counts() map[event.Kind]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[event.Kind]int, 3)
	for _, e := range l.events {
		counts[e.Kind]++
	}
	return counts
}
