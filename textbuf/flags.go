package textbuf

import "sync/atomic"

// Flags is a ViewStateFlags implementation backed by atomics.
type Flags struct {
	enabled atomic.Bool
	active  atomic.Bool
}

// SetEnabled implements completer.ViewStateFlags.
func (f *Flags) SetEnabled(on bool) { f.enabled.Store(on) }

// SetActive implements completer.ViewStateFlags.
func (f *Flags) SetActive(on bool) { f.active.Store(on) }

// Enabled implements completer.ViewStateFlags.
func (f *Flags) Enabled() bool { return f.enabled.Load() }

// Active implements completer.ViewStateFlags.
func (f *Flags) Active() bool { return f.active.Load() }
