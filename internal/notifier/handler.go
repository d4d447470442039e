package notifier

// Handler receives resolved notifications, one call at a time, from the
// notifier's own goroutine. Handlers must not call Close.
type Handler interface {
	Add(path string)
	AddDir(path string)
	Change(path string)
	Unlink(path string)
	UnlinkDir(path string)
}

// Funcs adapts plain functions to Handler. Nil fields ignore the notification.
type Funcs struct {
	OnAdd       func(path string)
	OnAddDir    func(path string)
	OnChange    func(path string)
	OnUnlink    func(path string)
	OnUnlinkDir func(path string)
}

// Add implements Handler.
func (f Funcs) Add(path string) {
	if f.OnAdd != nil {
		f.OnAdd(path)
	}
}

// AddDir implements Handler.
func (f Funcs) AddDir(path string) {
	if f.OnAddDir != nil {
		f.OnAddDir(path)
	}
}

// Change implements Handler.
func (f Funcs) Change(path string) {
	if f.OnChange != nil {
		f.OnChange(path)
	}
}

// Unlink implements Handler.
func (f Funcs) Unlink(path string) {
	if f.OnUnlink != nil {
		f.OnUnlink(path)
	}
}

// UnlinkDir implements Handler.
func (f Funcs) UnlinkDir(path string) {
	if f.OnUnlinkDir != nil {
		f.OnUnlinkDir(path)
	}
}
