//go:build linux

package notifier

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// nameMax is the longest file name the kernel reports.
const nameMax = 255

// pollTimeout bounds how long Close waits for the read loop to notice shutdown.
const pollTimeout = 100 * time.Millisecond

// watchMask covers everything that can change which entries exist or their contents.
const watchMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_MODIFY | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_ATTRIB |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_ONLYDIR

// inotifyBackend implements Backend directly on Linux inotify.
type inotifyBackend struct {
	logger    *slog.Logger
	watches   map[string]int
	wdPaths   map[int]string
	ops       chan RawOp
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	fd        int
	mu        sync.RWMutex
	closeOnce sync.Once
}

// newInotifyBackend initializes inotify and starts the read loop.
func newInotifyBackend(logger *slog.Logger) (*inotifyBackend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	b := &inotifyBackend{
		logger:  logger,
		fd:      fd,
		watches: make(map[string]int),
		wdPaths: make(map[int]string),
		ops:     make(chan RawOp, 1024),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	b.wg.Add(1)
	go b.readEvents()

	return b, nil
}

// Add adds an inotify watch for dir.
func (b *inotifyBackend) Add(dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.watches[dir]; exists {
		return nil
	}

	wd, err := unix.InotifyAddWatch(b.fd, dir, watchMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", dir, err)
	}

	// The kernel returns the existing descriptor when the inode is already
	// watched under another name, e.g. after a rename.
	if old, ok := b.wdPaths[wd]; ok {
		delete(b.watches, old)
	}

	b.watches[dir] = wd
	b.wdPaths[wd] = dir
	b.logger.Debug("added watch", "path", dir, "wd", wd)

	return nil
}

// Remove removes the inotify watch for dir.
func (b *inotifyBackend) Remove(dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wd, exists := b.watches[dir]
	if !exists {
		return nil
	}

	delete(b.watches, dir)
	delete(b.wdPaths, wd)

	// The directory may already be gone, in which case the kernel dropped the watch.
	//nolint:gosec // G115: wd is always a small non-negative int from inotify
	_, _ = unix.InotifyRmWatch(b.fd, uint32(wd))
	b.logger.Debug("removed watch", "path", dir, "wd", wd)

	return nil
}

// readEvents polls the inotify descriptor until Close.
func (b *inotifyBackend) readEvents() {
	defer b.wg.Done()

	buf := make([]byte, (unix.SizeofInotifyEvent+nameMax+1)*64)
	fds := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}

	for {
		select {
		case <-b.done:
			return
		default:
		}

		n, err := unix.Poll(fds, int(pollTimeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			b.reportError(fmt.Errorf("failed to poll inotify: %w", err))
			return
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(b.fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			b.reportError(fmt.Errorf("failed to read inotify events: %w", err))
			return
		}

		if n < unix.SizeofInotifyEvent {
			continue
		}

		b.parseEvents(buf[:n], time.Now())
	}
}

// parseEvents parses raw inotify events.
func (b *inotifyBackend) parseEvents(buf []byte, at time.Time) {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: Legitimate use of unsafe for syscall interface with inotify
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameStart := offset + unix.SizeofInotifyEvent
		offset = nameStart + int(raw.Len)

		if raw.Mask&unix.IN_Q_OVERFLOW != 0 {
			b.reportError(ErrOverflow)
			continue
		}

		b.mu.RLock()
		dir, ok := b.wdPaths[int(raw.Wd)]
		b.mu.RUnlock()

		if !ok {
			continue
		}

		// The kernel dropped the watch (directory deleted or unmounted).
		if raw.Mask&unix.IN_IGNORED != 0 {
			b.forget(int(raw.Wd))
			continue
		}

		path := dir
		if raw.Len > 0 {
			name := buf[nameStart:offset]
			path = filepath.Join(dir, string(name[:clen(name)]))
		}

		if op := translateMask(raw.Mask); op != 0 {
			b.emit(RawOp{Path: path, Op: op, At: at})
		}
	}
}

// translateMask maps an inotify mask to Op bits.
func translateMask(mask uint32) Op {
	var op Op
	if mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 {
		op |= OpCreate
	}
	if mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
		op |= OpWrite
	}
	if mask&(unix.IN_DELETE|unix.IN_MOVED_FROM|unix.IN_DELETE_SELF|unix.IN_MOVE_SELF) != 0 {
		op |= OpRemove
	}
	if mask&unix.IN_ATTRIB != 0 {
		op |= OpChmod
	}
	return op
}

// forget drops bookkeeping for a watch descriptor the kernel already removed.
func (b *inotifyBackend) forget(wd int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir, ok := b.wdPaths[wd]; ok {
		if b.watches[dir] == wd {
			delete(b.watches, dir)
		}
		delete(b.wdPaths, wd)
	}
}

// emit sends an op to the ops channel.
func (b *inotifyBackend) emit(op RawOp) {
	select {
	case b.ops <- op:
	case <-b.done:
	}
}

// reportError sends an error without blocking the read loop.
func (b *inotifyBackend) reportError(err error) {
	select {
	case b.errors <- err:
	default:
	}
}

// Ops returns the ops channel.
func (b *inotifyBackend) Ops() <-chan RawOp {
	return b.ops
}

// Errors returns the errors channel.
func (b *inotifyBackend) Errors() <-chan error {
	return b.errors
}

// Close stops the read loop and closes the inotify descriptor.
func (b *inotifyBackend) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		close(b.done)

		// Wait for the read loop to finish.
		b.wg.Wait()

		closeErr = unix.Close(b.fd)

		close(b.ops)
		close(b.errors)
	})
	return closeErr
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}
