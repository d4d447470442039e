package watcher

import (
	"context"
	"log/slog"

	"github.com/listenupapp/watchstate/internal/derive"
	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/notifier"
	"github.com/listenupapp/watchstate/internal/pathutil"
)

// DirectoryWatcher watches a directory subtree.
type DirectoryWatcher struct {
	*core
}

// NewDirectoryWatcher creates an idle watcher for the subtree at root.
// The filesystem is not touched until Start.
func NewDirectoryWatcher(root string, logger *slog.Logger, opts Options) (*DirectoryWatcher, error) {
	c, err := newCore(root, logger, opts, "directory_watcher")
	if err != nil {
		return nil, err
	}
	return &DirectoryWatcher{core: c}, nil
}

// Start clears the log, watches root recursively and blocks until the
// notifier is ready. Only changes made after Start returns are guaranteed
// to be observed. Root must be an existing directory.
func (w *DirectoryWatcher) Start(ctx context.Context) error {
	return w.start(ctx, notifier.ModeTree, treeHandler{w.core})
}

// IsChanged reports whether anything has been recorded.
func (w *DirectoryWatcher) IsChanged() bool {
	return w.log.Len() > 0
}

// IsFileCreated reports whether a file at path was created and has not been
// deleted since, directly or through an ancestor directory.
func (w *DirectoryWatcher) IsFileCreated(path string) bool {
	return derive.FileCreated(w.Events(), pathutil.MustResolve(path))
}

// IsDirectoryCreated reports whether a directory at path was created and has
// not been deleted since.
func (w *DirectoryWatcher) IsDirectoryCreated(path string) bool {
	return derive.DirectoryCreated(w.Events(), pathutil.MustResolve(path))
}

// IsFileModified reports whether the file at path was modified and has not
// been deleted since.
func (w *DirectoryWatcher) IsFileModified(path string) bool {
	return derive.FileModified(w.Events(), pathutil.MustResolve(path))
}

// IsDirectoryModified reports whether anything beneath path changed and path
// has not been deleted since.
func (w *DirectoryWatcher) IsDirectoryModified(path string) bool {
	return derive.DirectoryModified(w.Events(), pathutil.MustResolve(path))
}

// IsFileDeleted reports whether the file at path is gone, directly or through
// an ancestor, and was not created again.
func (w *DirectoryWatcher) IsFileDeleted(path string) bool {
	return derive.FileDeleted(w.Events(), pathutil.MustResolve(path))
}

// IsDirectoryDeleted reports whether the directory at path is gone and was not
// created again.
func (w *DirectoryWatcher) IsDirectoryDeleted(path string) bool {
	return derive.DirectoryDeleted(w.Events(), pathutil.MustResolve(path))
}

// treeHandler turns notifier callbacks into subtree events.
type treeHandler struct {
	c *core
}

func (h treeHandler) Add(path string) {
	h.c.record(event.NewCreated(event.File, pathutil.MustResolve(path)))
}

func (h treeHandler) AddDir(path string) {
	h.c.record(event.NewCreated(event.Directory, pathutil.MustResolve(path)))
}

func (h treeHandler) Change(path string) {
	h.c.record(event.NewModified(pathutil.MustResolve(path)))
}

func (h treeHandler) Unlink(path string) {
	h.c.record(event.NewDeleted(event.File, pathutil.MustResolve(path)))
}

func (h treeHandler) UnlinkDir(path string) {
	h.c.record(event.NewDeleted(event.Directory, pathutil.MustResolve(path)))
}
