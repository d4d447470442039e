package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// ErrOverflow is reported when the OS event queue overflowed and events were lost.
var ErrOverflow = errors.New("event queue overflow")

// Op is a bit set of raw operations reported by a backend for one path.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpChmod
)

// String returns a compact representation such as "create|write".
func (o Op) String() string {
	if o == 0 {
		return "none"
	}
	var s string
	for _, part := range []struct {
		op   Op
		name string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpChmod, "chmod"},
	} {
		if o&part.op == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += part.name
	}
	return s
}

// RawOp is one undeduplicated operation as read from the OS.
type RawOp struct {
	At   time.Time
	Path string
	Op   Op
}

// Backend defines the platform-specific watching implementation.
// Watches are never recursive; the notifier adds one per directory.
type Backend interface {
	// Add starts watching the entries of dir.
	Add(dir string) error

	// Remove stops watching dir. Removing an unknown directory is not an error.
	Remove(dir string) error

	// Ops returns the channel of raw operations. It is closed by Close.
	Ops() <-chan RawOp

	// Errors returns the channel of asynchronous backend errors. It is closed by Close.
	Errors() <-chan error

	// Close releases all OS resources.
	Close() error
}

// newBackend creates the backend selected by kind.
// BackendAuto uses inotify on Linux and fsnotify everywhere else.
func newBackend(logger *slog.Logger, kind BackendKind) (Backend, error) {
	if kind == BackendAuto {
		kind = BackendFSNotify
		if runtime.GOOS == "linux" {
			kind = BackendInotify
		}
	}

	switch kind {
	case BackendInotify:
		return newInotifyBackend(logger)
	case BackendFSNotify:
		return newFSNotifyBackend(logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
