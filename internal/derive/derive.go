// Package derive answers point-in-time questions about a path by folding over an
// ordered event log.
//
// Every predicate is a strict left-to-right reduction: events are visited oldest
// first and each rule that matches replaces the accumulated answer, so the most
// recent relevant event always wins. Predicates never fail; a path that never
// appears in the log is neither created, modified nor deleted.
package derive

import (
	"github.com/listenupapp/watchstate/internal/event"
	"github.com/listenupapp/watchstate/internal/pathutil"
)

// step maps the accumulated answer and the next event to a new answer.
type step func(acc bool, e event.Event) bool

// fold reduces events with fn, starting from false.
func fold(events []event.Event, fn step) bool {
	acc := false
	for _, e := range events {
		acc = fn(acc, e)
	}
	return acc
}

// deletedVia reports whether e deletes path through one of its ancestor directories.
func deletedVia(e event.Event, path string) bool {
	return e.Is(event.Deleted, event.Directory) && pathutil.IsSubPathOf(path, e.Path)
}

// FileCreated reports whether a file was created at path and has not been
// deleted since, directly or through an ancestor directory.
// Renaming or moving a file to path counts as creating it.
func FileCreated(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case e.Is(event.Created, event.File) && e.Path == path:
			return true
		case e.Is(event.Deleted, event.File) && e.Path == path:
			return false
		case deletedVia(e, path):
			return false
		}
		return acc
	})
}

// DirectoryCreated reports whether a directory was created at path and has not
// been deleted since, directly or through an ancestor directory.
func DirectoryCreated(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case e.Is(event.Created, event.Directory) && e.Path == path:
			return true
		case e.Is(event.Deleted, event.Directory) && e.Path == path:
			return false
		case deletedVia(e, path):
			return false
		}
		return acc
	})
}

// FileModified reports whether the file at path was modified and has not been
// deleted since, directly or through an ancestor directory.
func FileModified(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case e.Is(event.Modified, event.File) && e.Path == path:
			return true
		case e.Is(event.Deleted, event.File) && e.Path == path:
			return false
		case deletedVia(e, path):
			return false
		}
		return acc
	})
}

// DirectoryModified reports whether anything beneath the directory at path was
// created, modified or deleted, and the directory itself has not been deleted
// since, directly or through an ancestor. Events on path itself never count as
// modifications of it.
func DirectoryModified(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case pathutil.IsSubPathOf(e.Path, path):
			return true
		case e.Is(event.Deleted, event.Directory) && e.Path == path:
			return false
		case deletedVia(e, path):
			return false
		}
		return acc
	})
}

// FileDeleted reports whether the file at path was deleted, directly or through
// an ancestor directory, and no file has been created at path since.
func FileDeleted(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case e.Is(event.Deleted, event.File) && e.Path == path:
			return true
		case deletedVia(e, path):
			return true
		case e.Is(event.Created, event.File) && e.Path == path:
			return false
		}
		return acc
	})
}

// DirectoryDeleted reports whether the directory at path was deleted, directly
// or through an ancestor directory, and no directory has been created at path since.
func DirectoryDeleted(events []event.Event, path string) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch {
		case e.Is(event.Deleted, event.Directory) && e.Path == path:
			return true
		case deletedVia(e, path):
			return true
		case e.Is(event.Created, event.Directory) && e.Path == path:
			return false
		}
		return acc
	})
}

// Single-path predicates. The watched path is implicit, so only Kind is consulted.

// Created reports whether the most recent creation or deletion was a creation.
func Created(events []event.Event) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch e.Kind {
		case event.Created:
			return true
		case event.Deleted:
			return false
		}
		return acc
	})
}

// Modified reports whether the most recent modification or deletion was a modification.
func Modified(events []event.Event) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch e.Kind {
		case event.Modified:
			return true
		case event.Deleted:
			return false
		}
		return acc
	})
}

// Deleted reports whether the most recent deletion or creation was a deletion.
func Deleted(events []event.Event) bool {
	return fold(events, func(acc bool, e event.Event) bool {
		switch e.Kind {
		case event.Deleted:
			return true
		case event.Created:
			return false
		}
		return acc
	})
}
