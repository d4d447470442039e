//go:build !linux

package notifier

import (
	"fmt"
	"log/slog"
)

// newInotifyBackend is a stub for platforms without inotify.
func newInotifyBackend(_ *slog.Logger) (Backend, error) {
	return nil, fmt.Errorf("inotify backend not available on this platform")
}
