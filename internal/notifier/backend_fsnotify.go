package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyBackend implements Backend using fsnotify.
type fsnotifyBackend struct {
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	ops       chan RawOp
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// newFSNotifyBackend creates a backend using fsnotify.
func newFSNotifyBackend(logger *slog.Logger) (*fsnotifyBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	b := &fsnotifyBackend{
		logger:  logger,
		watcher: watcher,
		ops:     make(chan RawOp, 1024),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	b.wg.Add(1)
	go b.processEvents()

	return b, nil
}

// Add watches dir.
func (b *fsnotifyBackend) Add(dir string) error {
	if err := b.watcher.Add(dir); err != nil {
		return fmt.Errorf("fsnotify add %s: %w", dir, err)
	}
	b.logger.Debug("added watch", "path", dir)
	return nil
}

// Remove stops watching dir.
func (b *fsnotifyBackend) Remove(dir string) error {
	err := b.watcher.Remove(dir)
	if err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		// The directory is usually gone already; nothing left to release.
		b.logger.Debug("failed to remove watch", "path", dir, "error", err)
		return nil
	}
	b.logger.Debug("removed watch", "path", dir)
	return nil
}

// processEvents translates fsnotify events into raw ops.
func (b *fsnotifyBackend) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if op := translateFSNotifyOp(event.Op); op != 0 {
				select {
				case b.ops <- RawOp{Path: event.Name, Op: op, At: time.Now()}:
				case <-b.done:
					return
				}
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = ErrOverflow
			}
			select {
			case b.errors <- err:
			default:
			}
		}
	}
}

// translateFSNotifyOp maps fsnotify operations to Op bits.
// A rename is reported on the old name only, so it is a removal there.
func translateFSNotifyOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		out |= OpRemove
	}
	if op.Has(fsnotify.Chmod) {
		out |= OpChmod
	}
	return out
}

// Ops returns the ops channel.
func (b *fsnotifyBackend) Ops() <-chan RawOp {
	return b.ops
}

// Errors returns the errors channel.
func (b *fsnotifyBackend) Errors() <-chan error {
	return b.errors
}

// Close closes the fsnotify watcher and waits for the translation loop.
func (b *fsnotifyBackend) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		close(b.done)

		closeErr = b.watcher.Close()

		b.wg.Wait()

		close(b.ops)
		close(b.errors)
	})
	return closeErr
}
