package model

import (
	"sync"

	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// Completer is a headless display. It shows itself while its model holds
// matching items, tracks the highlighted item and emits the chosen value on
// SelectActive. Rendering is left to the host.
type Completer struct {
	model *Model

	mu       sync.Mutex
	editor   completer.Editor
	active   int
	hidden   bool
	disposed bool
	attached bool
	conn     *signal.Connection

	selected          *signal.Signal[string]
	visibilityChanged *signal.Signal[bool]
	updated           *signal.Signal[struct{}]
}

var _ completer.Display = (*Completer)(nil)

// NewCompleter creates a hidden display over model. A nil model gives a
// display with no model, which keeps its handler's gating disabled.
func NewCompleter(model *Model) *Completer {
	c := &Completer{
		model:             model,
		hidden:            true,
		selected:          signal.New[string](),
		visibilityChanged: signal.New[bool](),
		updated:           signal.New[struct{}](),
	}
	if model != nil {
		c.conn = model.Changed().Connect(func(struct{}) { c.refresh() })
	}

	return c
}

// Model implements completer.Display.
func (c *Completer) Model() completer.Model {
	if c.model == nil {
		return nil
	}

	return c.model
}

// State returns the concrete model, or nil.
func (c *Completer) State() *Model { return c.model }

// Selected implements completer.Display.
func (c *Completer) Selected() *signal.Signal[string] { return c.selected }

// VisibilityChanged implements completer.Display.
func (c *Completer) VisibilityChanged() *signal.Signal[bool] { return c.visibilityChanged }

// Updated fires after the visible items or the highlight change.
func (c *Completer) Updated() *signal.Signal[struct{}] { return c.updated }

// Items returns the visible items.
func (c *Completer) Items() []completer.Item {
	if c.model == nil || c.IsHidden() {
		return nil
	}

	return c.model.Items()
}

// Active returns the index of the highlighted item.
func (c *Completer) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}

// Cycle moves the highlight by delta, wrapping around.
func (c *Completer) Cycle(delta int) {
	n := len(c.Items())
	if n == 0 {
		return
	}

	c.mu.Lock()
	c.active = ((c.active+delta)%n + n) % n
	c.mu.Unlock()

	c.updated.Emit(struct{}{})
}

// SelectActive implements completer.Display. It emits the highlighted
// item's text and ends the session.
func (c *Completer) SelectActive() {
	items := c.Items()
	if len(items) == 0 {
		return
	}

	c.mu.Lock()
	active := min(c.active, len(items)-1)
	c.mu.Unlock()

	c.selected.Emit(items[active].Text())
	c.reset()
}

// SetEditor implements completer.Display.
func (c *Completer) SetEditor(editor completer.Editor) {
	c.mu.Lock()
	c.editor = editor
	c.mu.Unlock()
}

// Editor returns the editor the display is anchored to.
func (c *Completer) Editor() completer.Editor {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.editor
}

// Hide implements completer.Display.
func (c *Completer) Hide() { c.setHidden(true) }

// IsHidden implements completer.Display.
func (c *Completer) IsHidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hidden
}

// SetAttached records whether an overlay hosts the display.
func (c *Completer) SetAttached(on bool) {
	c.mu.Lock()
	c.attached = on
	c.mu.Unlock()
}

// Attached reports whether an overlay hosts the display.
func (c *Completer) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attached
}

// Dispose implements completer.Display. A visible display announces that it
// is going away before its signals are cleared.
func (c *Completer) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	wasVisible := !c.hidden
	c.hidden = true
	c.attached = false
	conn := c.conn
	c.mu.Unlock()

	conn.Disconnect()
	if wasVisible {
		c.visibilityChanged.Emit(false)
	}
	c.selected.Clear()
	c.visibilityChanged.Clear()
	c.updated.Clear()
}

// IsDisposed implements completer.Display.
func (c *Completer) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.disposed
}

func (c *Completer) reset() {
	c.mu.Lock()
	c.active = 0
	c.mu.Unlock()

	if c.model != nil {
		c.model.Reset(true)
	}
}

// refresh follows the model: show while a session has matching items, hide
// otherwise.
func (c *Completer) refresh() {
	if c.IsDisposed() {
		return
	}

	var n int
	if c.model.Original() != nil {
		n = len(c.model.Items())
	}

	c.mu.Lock()
	if n == 0 {
		c.active = 0
	} else if c.active >= n {
		c.active = n - 1
	}
	c.mu.Unlock()

	c.setHidden(n == 0)
	c.updated.Emit(struct{}{})
}

func (c *Completer) setHidden(hidden bool) {
	c.mu.Lock()
	if c.disposed || c.hidden == hidden {
		c.mu.Unlock()
		return
	}
	c.hidden = hidden
	c.mu.Unlock()

	c.visibilityChanged.Emit(!hidden)
}
