package watcher

import (
	"context"
	"log/slog"

	"github.com/listenupapp/watchstate/internal/derive"
	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/notifier"
	"github.com/listenupapp/watchstate/internal/pathutil"
)

// FileWatcher watches a single path. The path itself may not exist yet, but
// its parent directory must exist when Start is called.
type FileWatcher struct {
	*core
}

// NewFileWatcher creates an idle watcher for the file at path.
func NewFileWatcher(path string, logger *slog.Logger, opts Options) (*FileWatcher, error) {
	c, err := newCore(path, logger, opts, "file_watcher")
	if err != nil {
		return nil, err
	}
	return &FileWatcher{core: c}, nil
}

// Start clears the log, watches the parent directory for changes to the path
// and blocks until the notifier is ready. A path that is an existing directory
// is rejected.
func (w *FileWatcher) Start(ctx context.Context) error {
	return w.start(ctx, notifier.ModeFile, fileHandler{w.core})
}

// IsCreated reports whether the most recent of created and deleted is created.
func (w *FileWatcher) IsCreated() bool {
	return derive.Created(w.Events())
}

// IsModified reports whether the most recent of modified and deleted is modified.
func (w *FileWatcher) IsModified() bool {
	return derive.Modified(w.Events())
}

// IsDeleted reports whether the most recent of deleted and created is deleted.
func (w *FileWatcher) IsDeleted() bool {
	return derive.Deleted(w.Events())
}

// fileHandler turns notifier callbacks into single-path events. Directory
// notifications are not about a file and are ignored.
type fileHandler struct {
	c *core
}

func (h fileHandler) Add(path string) {
	h.recordFor(path, event.Created)
}

func (h fileHandler) AddDir(path string) {
	h.c.logger.Debug("ignoring directory notification", "path", path)
}

func (h fileHandler) Change(path string) {
	h.recordFor(path, event.Modified)
}

func (h fileHandler) Unlink(path string) {
	h.recordFor(path, event.Deleted)
}

func (h fileHandler) UnlinkDir(path string) {
	h.c.logger.Debug("ignoring directory notification", "path", path)
}

func (h fileHandler) recordFor(path string, kind event.Kind) {
	if pathutil.MustResolve(path) != h.c.root {
		h.c.logger.Debug("ignoring notification for other path", "path", path)
		return
	}
	h.c.record(event.Event{Kind: kind})
}
