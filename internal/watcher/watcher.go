// Package watcher records filesystem activity under a root and answers
// questions about its net effect since observation began.
//
// Two variants share one lifecycle (idle, watching, stopped):
//   - DirectoryWatcher watches a directory subtree and answers per-path queries.
//   - FileWatcher watches a single path, which need not exist yet.
//
// Every notification received while watching becomes exactly one entry in an
// append-only log and is broadcast to live subscribers. Queries are folds over
// a snapshot of the log and never fail.
package watcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/listenupapp/watchstate/internal/broadcast"
	"github.com/listenupapp/watchstate/internal/errors"
	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/eventlog"
	"github.com/listenupapp/watchstate/internal/lifecycle"
	"github.com/listenupapp/watchstate/internal/notifier"
	"github.com/listenupapp/watchstate/internal/pathutil"
)

// core is the state shared by both watcher variants.
type core struct {
	logger   *slog.Logger
	log      *eventlog.Log
	live     *broadcast.Broadcaster
	machine  *lifecycle.Machine
	notifier *notifier.Notifier
	root     string
	held     []event.Event
	opts     Options
	// pubMu orders publishing and is always taken before mu.
	pubMu    sync.Mutex
	mu       sync.Mutex
	starting bool
}

func newCore(root string, logger *slog.Logger, opts Options, component string) (*core, error) {
	resolved, err := pathutil.Resolve(root)
	if err != nil {
		return nil, errors.ValidationWithDetails("invalid root", map[string]string{"root": root}).WithCause(err)
	}

	logger = logger.With("component", component, "root", resolved)

	return &core{
		logger:  logger,
		log:     eventlog.New(),
		live:    broadcast.New(logger),
		machine: lifecycle.New(),
		root:    resolved,
		opts:    opts,
	}, nil
}

// Root returns the absolute, normalized root path.
func (c *core) Root() string {
	return c.root
}

// State returns the current lifecycle state.
func (c *core) State() lifecycle.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// start acquires a notifier in mode and transitions to watching once it is ready.
// On failure the watcher stays idle.
func (c *core) start(ctx context.Context, mode notifier.Mode, h notifier.Handler) error {
	c.mu.Lock()
	if _, err := c.machine.Next(lifecycle.Start); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.starting {
		c.mu.Unlock()
		return errors.InvalidState("cannot start while starting").
			WithDetails(map[string]string{"from": "starting", "transition": string(lifecycle.Start)})
	}
	c.starting = true
	c.log.Reset()
	c.mu.Unlock()

	n, err := c.acquire(ctx, mode, h)
	if err != nil {
		c.abandon()
		c.logger.Warn("failed to start watching", "error", err)
		return errors.Acquisitionf(err, "watch %s", c.root)
	}

	if err := c.commit(n); err != nil {
		_ = n.Close()
		return err
	}

	c.logger.Info("watching started", "mode", n.Mode())
	return nil
}

// commit enters the watching state and publishes the events recorded while
// starting, ahead of anything recorded afterwards.
func (c *core) commit(n *notifier.Notifier) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	c.starting = false
	held := c.held
	c.held = nil
	if err := c.machine.Send(lifecycle.Start); err != nil {
		c.mu.Unlock()
		return err
	}
	c.notifier = n
	c.mu.Unlock()

	for _, e := range held {
		c.live.Publish(e)
	}
	return nil
}

// abandon returns to idle after a failed start. Events recorded while starting
// are discarded without ever being published.
func (c *core) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.starting = false
	c.held = nil
	c.log.Reset()
}

// acquire opens the notifier and waits for it to become ready.
func (c *core) acquire(ctx context.Context, mode notifier.Mode, h notifier.Handler) (*notifier.Notifier, error) {
	if c.opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ReadyTimeout)
		defer cancel()
	}

	n, err := notifier.Open(ctx, c.logger, c.opts.notifierOptions(c.root, mode), h)
	if err != nil {
		return nil, err
	}

	select {
	case <-n.Ready():
		return n, nil
	case <-ctx.Done():
		// Readiness wins a tie with cancellation.
		select {
		case <-n.Ready():
			return n, nil
		default:
		}
		_ = n.Close()
		return nil, ctx.Err()
	}
}

// Stop releases the notifier and completes the live channel. It fails unless
// the watcher is watching. A stopped watcher cannot be restarted, but its log
// can still be queried.
func (c *core) Stop() error {
	c.mu.Lock()
	if err := c.machine.Send(lifecycle.Stop); err != nil {
		c.mu.Unlock()
		return err
	}
	n := c.notifier
	c.notifier = nil
	c.mu.Unlock()

	// Outside the lock: Close waits for in-flight callbacks, which take it.
	err := n.Close()
	c.live.Close()

	c.logger.Info("watching stopped", "events", c.log.Len())

	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "release notifier")
	}
	return nil
}

// Reset clears the log. The lifecycle state is unchanged.
func (c *core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Reset()
	c.held = nil
}

// Events returns a copy of the log in arrival order.
func (c *core) Events() []event.Event {
	return c.log.Events()
}

// Counts returns how many events of each kind the log holds.
func (c *core) Counts() map[event.Kind]int {
	return c.log.Counts()
}

// Observe returns a stream of events appended from now on. The stream
// completes when the watcher stops.
func (c *core) Observe() *broadcast.Stream {
	return c.live.Observe()
}

// Subscribe calls fn with every event appended from now on, on the notifier's
// goroutine. fn must not call Stop.
func (c *core) Subscribe(fn func(event.Event)) *broadcast.Subscription {
	return c.live.Subscribe(fn)
}

// record appends e and broadcasts it. Events arriving while not watching are
// dropped. Events arriving while starting are logged but held back from
// subscribers until the start commits.
func (c *core) record(e event.Event) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	if c.starting {
		c.log.Append(e)
		c.held = append(c.held, e)
		c.mu.Unlock()
		c.logger.Debug("event held until started", "event", e)
		return
	}
	if state := c.machine.State(); state != lifecycle.Watching {
		c.mu.Unlock()
		c.logger.Debug("dropping event", "event", e, "state", state)
		return
	}
	c.log.Append(e)
	c.mu.Unlock()

	c.logger.Debug("event recorded", "event", e)
	c.live.Publish(e)
}
