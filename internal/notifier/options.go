package notifier

import (
	"fmt"
	"time"
)

// Mode selects how the root is watched.
type Mode string

const (
	// ModeAuto watches a directory root as a tree and anything else as a file.
	ModeAuto Mode = "auto"
	// ModeFile watches exactly one path through its parent directory.
	// The path itself does not need to exist.
	ModeFile Mode = "file"
	// ModeTree watches a directory and everything beneath it.
	ModeTree Mode = "tree"
)

// BackendKind selects the OS notification mechanism.
type BackendKind string

const (
	BackendAuto     BackendKind = "auto"
	BackendInotify  BackendKind = "inotify"
	BackendFSNotify BackendKind = "fsnotify"
)

// Options configures a Notifier.
type Options struct {
	Root    string
	Mode    Mode
	Backend BackendKind
	// SettleDelay is how long a path must stay quiet before its raw
	// operations are resolved into one notification.
	SettleDelay time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	if o.Backend == "" {
		o.Backend = BackendAuto
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
}

// validate rejects options that cannot be acted on.
func (o *Options) validate() error {
	if o.Root == "" {
		return fmt.Errorf("root is required")
	}
	switch o.Mode {
	case ModeAuto, ModeFile, ModeTree:
	default:
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	if o.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative")
	}
	return nil
}
