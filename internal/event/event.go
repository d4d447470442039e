// Package event defines the typed filesystem events recorded in the event log.
package event

import "log/slog"

// Kind represents what happened to a path.
type Kind int

const (
	// Created is recorded when a file or directory appears at a path,
	// including when something is renamed or moved to it.
	Created Kind = iota
	// Modified is recorded when the contents of an existing file change.
	// Directories are never modified directly.
	Modified
	// Deleted is recorded when a file or directory disappears from a path,
	// including when it is renamed or moved away.
	Deleted
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Target tells whether an event concerns a file or a directory.
type Target int

const (
	// None is used by single-path watchers, whose target is implicit.
	None Target = iota
	// File is a regular file (or anything that is not a directory).
	File
	// Directory is a directory.
	Directory
)

// String returns the string representation of the target.
func (t Target) String() string {
	switch t {
	case None:
		return "none"
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

// Event is an immutable record of one notifier callback.
// Single-path watchers leave Target and Path zero.
type Event struct {
	Path   string
	Kind   Kind
	Target Target
}

// NewCreated returns a created event for target at path.
func NewCreated(target Target, path string) Event {
	return Event{Kind: Created, Target: target, Path: path}
}

// NewModified returns a file modification event at path.
func NewModified(path string) Event {
	return Event{Kind: Modified, Target: File, Path: path}
}

// NewDeleted returns a deleted event for target at path.
func NewDeleted(target Target, path string) Event {
	return Event{Kind: Deleted, Target: target, Path: path}
}

// Is reports whether e has the given kind and target.
func (e Event) Is(kind Kind, target Target) bool {
	return e.Kind == kind && e.Target == target
}

// String returns a compact form such as "created file /tmp/a".
func (e Event) String() string {
	if e.Target == None {
		return e.Kind.String()
	}
	return e.Kind.String() + " " + e.Target.String() + " " + e.Path
}

// LogValue implements slog.LogValuer.
func (e Event) LogValue() slog.Value {
	if e.Target == None {
		return slog.GroupValue(slog.String("kind", e.Kind.String()))
	}
	return slog.GroupValue(
		slog.String("kind", e.Kind.String()),
		slog.String("target", e.Target.String()),
		slog.String("path", e.Path),
	)
}
