package providers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/watchstate/internal/broadcast"
	"github.com/listenupapp/watchstate/internal/config"
	"github.com/listenupapp/watchstate/internal/errors"
	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/lifecycle"
	"github.com/listenupapp/watchstate/internal/logger"
	"github.com/listenupapp/watchstate/internal/notifier"
	"github.com/listenupapp/watchstate/internal/watcher"
)

// Watcher is the part of the watcher API both variants share.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
	Root() string
	State() lifecycle.State
	Events() []event.Event
	Counts() map[event.Kind]int
	Observe() *broadcast.Stream
}

// WatcherHandle wraps the running watcher with shutdown capability.
type WatcherHandle struct {
	Watcher
	// Mode is the resolved watch mode, config.ModeFile or config.ModeDirectory.
	Mode string
	done chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	err := h.Stop()
	if errors.Is(err, errors.ErrInvalidState) {
		// Already stopped.
		err = nil
	}

	// The stream completes on stop; wait for the last events to be logged.
	select {
	case <-h.done:
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("timed out waiting for event logger after %s", shutdownTimeout)
	}

	return err
}

// Summary returns how many events of each kind were recorded.
func (h *WatcherHandle) Summary() map[string]int {
	counts := h.Counts()
	summary := make(map[string]int, len(counts))
	for kind, n := range counts {
		summary[kind.String()] = n
	}
	return summary
}

// ProvideWatcher provides a started watcher for the configured root.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	mode := resolveMode(cfg.Watch)
	opts := watcher.Options{
		Backend:      notifier.BackendKind(cfg.Watch.Backend),
		SettleDelay:  cfg.Watch.SettleDelay,
		ReadyTimeout: cfg.Watch.ReadyTimeout,
	}

	var (
		w   Watcher
		err error
	)
	if mode == config.ModeDirectory {
		w, err = watcher.NewDirectoryWatcher(cfg.Watch.Root, log.Logger, opts)
	} else {
		w, err = watcher.NewFileWatcher(cfg.Watch.Root, log.Logger, opts)
	}
	if err != nil {
		return nil, err
	}

	// Subscribe before starting so nothing between ready and the first event is missed.
	stream := w.Observe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		eventLog := log.WithComponent("events")
		for e := range stream.C() {
			eventLog.Info("filesystem event", "event", e)
		}
	}()

	if err := w.Start(context.Background()); err != nil {
		stream.Close()
		return nil, err
	}

	log.Info("Watcher started", "root", w.Root(), "mode", mode)

	return &WatcherHandle{
		Watcher: w,
		Mode:    mode,
		done:    done,
	}, nil
}

// resolveMode picks file or directory for the auto mode by looking at the root.
func resolveMode(cfg config.WatchConfig) string {
	if cfg.Mode != config.ModeAuto {
		return cfg.Mode
	}
	if info, err := os.Stat(cfg.Root); err == nil && info.IsDir() {
		return config.ModeDirectory
	}
	return config.ModeFile
}
