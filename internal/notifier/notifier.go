// Package notifier binds OS filesystem notifications to the five callbacks the
// watchers consume: add, addDir, change, unlink and unlinkDir.
//
// Raw operations are collected per path and resolved once the path has been
// quiet for the settle delay. Resolution compares what the notifier last knew
// about the path with a fresh lstat, so a burst such as create+write+close on a
// new file becomes a single add, and a file created and removed within the
// window produces nothing. Nothing that existed before Ready is reported.
package notifier

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/watchstate/internal/pathutil"
)

// entry is what the notifier knows about an existing path.
type entry struct {
	// seen is when the entry was indexed; writes observed before it are
	// already reflected in the add that announced it.
	seen  time.Time
	info  fs.FileInfo
	isDir bool
}

func newEntry(info fs.FileInfo, seen time.Time) entry {
	return entry{seen: seen, info: info, isDir: info.IsDir()}
}

// replacedBy reports whether info describes a different inode than the one indexed.
func (e entry) replacedBy(info fs.FileInfo) bool {
	return e.info != nil && !os.SameFile(e.info, info)
}

// pending accumulates the raw operations on one path until it settles.
type pending struct {
	deadline  time.Time
	lastWrite time.Time
	seq       uint64
	op        Op
}

// Notifier watches a file or a directory tree and reports resolved changes.
type Notifier struct {
	handler   Handler
	backend   Backend
	logger    *slog.Logger
	index     map[string]entry
	pending   map[string]*pending
	ready     chan struct{}
	done      chan struct{}
	root      string
	parent    string
	mode      Mode
	opts      Options
	errLog    rate.Sometimes
	wg        sync.WaitGroup
	seq       uint64
	closeOnce sync.Once
}

// Open acquires a backend, indexes the current state of the root and starts
// delivering notifications to handler. Ready is closed once the notifier is
// listening; only changes made after that are reported.
//
// In file mode only the parent directory has to exist. In tree mode the root
// must be an existing directory.
func Open(ctx context.Context, logger *slog.Logger, opts Options, handler Handler) (*Notifier, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	backend, err := newBackend(logger, opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return newNotifier(ctx, logger, opts, handler, backend)
}

// newNotifier attaches backend to the root described by opts. The backend is
// closed if attaching fails.
func newNotifier(ctx context.Context, logger *slog.Logger, opts Options, handler Handler, backend Backend) (*Notifier, error) {
	root, err := pathutil.Resolve(opts.Root)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	mode, err := resolveMode(root, opts.Mode)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	n := &Notifier{
		handler: handler,
		backend: backend,
		logger:  logger,
		index:   make(map[string]entry),
		pending: make(map[string]*pending),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		root:    root,
		parent:  filepath.Dir(root),
		mode:    mode,
		opts:    opts,
		errLog:  rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}

	if err := n.attach(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}

	logger.Debug("notifier attached",
		"root", root,
		"mode", mode,
		"backend", opts.Backend,
		"indexed", len(n.index))

	n.wg.Add(1)
	go n.run()

	return n, nil
}

// resolveMode decides between file and tree mode and checks that the root fits it.
func resolveMode(root string, mode Mode) (Mode, error) {
	info, err := os.Stat(root)

	switch mode {
	case ModeTree:
		if err != nil {
			return "", fmt.Errorf("failed to stat root: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", root)
		}
		return ModeTree, nil
	case ModeFile:
		if err == nil && info.IsDir() {
			return "", fmt.Errorf("%s is a directory", root)
		}
		return ModeFile, nil
	default:
		if err == nil && info.IsDir() {
			return ModeTree, nil
		}
		return ModeFile, nil
	}
}

// attach adds the initial watches and indexes existing entries.
func (n *Notifier) attach(ctx context.Context) error {
	now := time.Now()

	if n.mode == ModeFile {
		if err := n.backend.Add(n.parent); err != nil {
			return fmt.Errorf("failed to watch parent directory: %w", err)
		}
		if info, err := os.Lstat(n.root); err == nil {
			n.index[n.root] = newEntry(info, now)
		}
		return nil
	}

	return filepath.WalkDir(n.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if p == n.root {
				return fmt.Errorf("failed to access root: %w", err)
			}
			n.logger.Warn("failed to access path", "path", p, "error", err)
			return nil // Continue walking
		}

		info, err := d.Info()
		if err != nil {
			if p == n.root {
				return fmt.Errorf("failed to access root: %w", err)
			}
			// Removed while walking.
			return nil
		}

		if !d.IsDir() {
			n.index[p] = newEntry(info, now)
			return nil
		}

		if err := n.backend.Add(p); err != nil {
			if p == n.root {
				return fmt.Errorf("failed to watch root: %w", err)
			}
			n.logger.Error("failed to add watch", "path", p, "error", err)
			return filepath.SkipDir
		}
		n.index[p] = newEntry(info, now)

		return nil
	})
}

// Ready returns a channel that is closed once notifications are being delivered.
func (n *Notifier) Ready() <-chan struct{} {
	return n.ready
}

// Root returns the resolved root path.
func (n *Notifier) Root() string {
	return n.root
}

// Mode returns the resolved mode, ModeFile or ModeTree.
func (n *Notifier) Mode() Mode {
	return n.mode
}

// Close stops delivery and releases the backend. No handler call happens after
// Close returns. Close is idempotent.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)

		// Wait for the delivery loop.
		n.wg.Wait()

		err = n.backend.Close()
		n.logger.Debug("notifier closed", "root", n.root)
	})
	return err
}

// run is the delivery loop. All handler calls happen here.
func (n *Notifier) run() {
	defer n.wg.Done()

	close(n.ready)

	ticker := time.NewTicker(max(n.opts.SettleDelay/2, 5*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case op, ok := <-n.backend.Ops():
			if !ok {
				return
			}
			n.record(op)
		case err, ok := <-n.backend.Errors():
			if !ok {
				return
			}
			n.errLog.Do(func() {
				n.logger.Warn("notifier backend error", "root", n.root, "error", err)
			})
			if errors.Is(err, ErrOverflow) {
				n.resync()
			}
		case now := <-ticker.C:
			n.flush(now)
		}
	}
}

// record adds a raw operation to the pending set of its path.
func (n *Notifier) record(op RawOp) {
	path := filepath.Clean(op.Path)

	if n.mode == ModeFile {
		switch {
		case path == n.root:
		case path == n.parent && op.Op&OpRemove != 0:
			// The target cannot outlive its parent.
			n.logger.Warn("parent directory removed, further changes are not observable", "path", path)
			path = n.root
		default:
			return
		}
	} else if path != n.root && !pathutil.IsSubPathOf(path, n.root) {
		return
	}

	p, ok := n.pending[path]
	if !ok {
		n.seq++
		p = &pending{seq: n.seq}
		n.pending[path] = p
	}

	p.op |= op.Op
	p.deadline = time.Now().Add(n.opts.SettleDelay)
	if op.Op&(OpCreate|OpWrite) != 0 && op.At.After(p.lastWrite) {
		p.lastWrite = op.At
	}
}

// flush resolves every pending path whose settle deadline has passed, in the
// order the paths were first touched.
func (n *Notifier) flush(now time.Time) {
	var due []string
	for path, p := range n.pending {
		if !p.deadline.After(now) {
			due = append(due, path)
		}
	}
	if len(due) == 0 {
		return
	}

	slices.SortFunc(due, func(a, b string) int {
		return cmp.Compare(n.pending[a].seq, n.pending[b].seq)
	})

	for _, path := range due {
		select {
		case <-n.done:
			return
		default:
		}

		p, ok := n.pending[path]
		if !ok {
			// Already covered by a directory scan earlier in this flush.
			continue
		}
		delete(n.pending, path)
		n.resolve(path, p)
	}
}

// resolve compares the indexed state of path with the filesystem and notifies.
func (n *Notifier) resolve(path string, p *pending) {
	info, err := os.Lstat(path)
	exists := err == nil
	isDir := exists && info.IsDir()
	known, ok := n.index[path]

	n.logger.Debug("resolving path", "path", path, "op", p.op, "exists", exists, "known", ok)

	switch {
	case !ok && exists:
		n.appear(path, info)
	case ok && !exists:
		n.disappear(path, known.isDir)
	case ok && known.isDir != isDir:
		n.disappear(path, known.isDir)
		n.appear(path, info)
	case ok && isDir && (p.op&OpRemove != 0 || known.replacedBy(info)):
		// Removed and recreated within the window. The old watch went with the
		// old directory, so the new one is announced and watched afresh.
		n.disappear(path, true)
		n.appear(path, info)
	case ok && exists && p.lastWrite.After(known.seen):
		n.index[path] = entry{seen: known.seen, info: info}
		n.handler.Change(path)
	}
}

// resync reconciles the index with the filesystem after the backend lost
// notifications. Pending operations are subsumed by the rescan.
func (n *Notifier) resync() {
	n.logger.Warn("notifications lost, rescanning", "root", n.root, "indexed", len(n.index))
	clear(n.pending)

	for _, path := range slices.Sorted(maps.Keys(n.index)) {
		known, ok := n.index[path]
		if !ok {
			// Forgotten along with a removed ancestor.
			continue
		}
		n.reconcile(path, known)
	}

	if n.mode == ModeFile {
		if _, ok := n.index[n.root]; !ok {
			if info, err := os.Lstat(n.root); err == nil && !info.IsDir() {
				n.appear(n.root, info)
			}
		}
		return
	}

	err := filepath.WalkDir(n.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking
		}
		if _, known := n.index[p]; known {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		n.appear(p, info)
		return nil
	})
	if err != nil {
		n.logger.Error("failed to rescan root", "root", n.root, "error", err)
	}
}

// reconcile compares one indexed path with the filesystem. A file whose inode,
// size or modification time differs is reported as changed.
func (n *Notifier) reconcile(path string, known entry) {
	info, err := os.Lstat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			n.logger.Warn("failed to stat indexed path", "path", path, "error", err)
			return
		}
		n.disappear(path, known.isDir)
		return
	}

	switch {
	case known.isDir != info.IsDir():
		n.disappear(path, known.isDir)
		n.appear(path, info)
	case known.isDir:
		if known.replacedBy(info) {
			n.disappear(path, true)
			n.appear(path, info)
		}
	case known.replacedBy(info) || modified(known.info, info):
		n.index[path] = entry{seen: known.seen, info: info}
		n.handler.Change(path)
	}
}

func modified(old, cur fs.FileInfo) bool {
	if old == nil {
		return false
	}
	return old.Size() != cur.Size() || !old.ModTime().Equal(cur.ModTime())
}

// appear indexes a new path and notifies. New directories in tree mode are
// watched and their existing contents announced.
func (n *Notifier) appear(path string, info fs.FileInfo) {
	n.index[path] = newEntry(info, time.Now())

	if !info.IsDir() {
		n.handler.Add(path)
		return
	}

	n.handler.AddDir(path)

	if n.mode != ModeTree {
		return
	}

	if err := n.backend.Add(path); err != nil {
		n.logger.Warn("failed to watch new directory", "path", path, "error", err)
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		n.logger.Warn("failed to read new directory", "path", path, "error", err)
		return
	}

	for _, de := range entries {
		child := filepath.Join(path, de.Name())
		if _, known := n.index[child]; known {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Gone again; its pending remove resolves to nothing.
			continue
		}
		// The scan reports the child's current state; earlier raw ops are subsumed.
		delete(n.pending, child)
		n.appear(child, info)
	}
}

// disappear forgets a path and notifies. Descendants of a removed directory are
// forgotten silently; the removal of their ancestor already implies theirs.
func (n *Notifier) disappear(path string, wasDir bool) {
	delete(n.index, path)

	if !wasDir {
		n.handler.Unlink(path)
		return
	}

	for p, e := range n.index {
		if !pathutil.IsSubPathOf(p, path) {
			continue
		}
		delete(n.index, p)
		if e.isDir {
			_ = n.backend.Remove(p)
		}
	}
	_ = n.backend.Remove(path)

	n.handler.UnlinkDir(path)
}
