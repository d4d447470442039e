package watcher

import (
	"time"

	"github.com/listenupapp/watchstate/internal/notifier"
)

// Options configures how a watcher acquires its notifier.
type Options struct {
	// Backend selects the OS notification mechanism. Empty means auto.
	Backend notifier.BackendKind

	// SettleDelay is how long a path must stay quiet before the notifier
	// reports it. Zero uses the notifier default.
	SettleDelay time.Duration

	// ReadyTimeout bounds how long Start waits for the notifier to become
	// ready. Zero waits as long as the Start context allows.
	ReadyTimeout time.Duration
}

// notifierOptions builds the notifier options for root in mode.
func (o Options) notifierOptions(root string, mode notifier.Mode) notifier.Options {
	return notifier.Options{
		Root:        root,
		Mode:        mode,
		Backend:     o.Backend,
		SettleDelay: o.SettleDelay,
	}
}
