// Package handler runs completion sessions for a single editor.
//
// A Handler owns one display and, at any time, at most one editor. Its
// Tracker gates completion from editor signals; Invoke opens a session and
// fans the request out to every provider; choosing an item splices it back
// into the editor as a single undoable edit.
package handler

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// ProviderSource supplies the providers a handler fans out to. It is read at
// fan-out time, so providers registered later take part in later sessions.
type ProviderSource interface {
	Providers() []completer.Provider
}

// ProviderList is a fixed ProviderSource.
type ProviderList []completer.Provider

// Providers implements ProviderSource.
func (l ProviderList) Providers() []completer.Provider { return l }

// Scheduler runs fn on the host's event loop.
type Scheduler func(fn func())

// Immediate runs fn synchronously.
func Immediate(fn func()) { fn() }

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithProviders sets the providers consulted on Invoke.
func WithProviders(source ProviderSource) Option {
	return func(h *Handler) {
		h.providers = source
	}
}

// WithScheduler sets how invoke requests are posted. Requests posted while
// one is already queued are collapsed into it.
func WithScheduler(s Scheduler) Option {
	return func(h *Handler) {
		if s != nil {
			h.schedule = s
		}
	}
}

// Handler is the completion session handler for one display.
type Handler struct {
	display   completer.Display
	tracker   *Tracker
	providers ProviderSource
	schedule  Scheduler
	logger    *zap.Logger

	pending    atomic.Bool
	generation atomic.Uint64
	disposed   atomic.Bool
	conns      signal.Bag
}

// New creates a handler driving display. The handler starts without an
// editor; bind one with SetEditor.
func New(display completer.Display, opts ...Option) *Handler {
	h := &Handler{
		display:  display,
		schedule: Immediate,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.providers == nil {
		h.providers = ProviderList(nil)
	}
	h.tracker = NewTracker(display, h.logger)

	h.conns.Add(display.Selected().Connect(h.onSelected))
	h.conns.Add(display.VisibilityChanged().Connect(h.onVisibilityChanged))

	return h
}

// Display returns the display the handler drives.
func (h *Handler) Display() completer.Display { return h.display }

// Editor returns the bound editor or nil.
func (h *Handler) Editor() completer.Editor { return h.tracker.Editor() }

// SetEditor rebinds the handler to editor. See Tracker.Bind.
func (h *Handler) SetEditor(editor completer.Editor) {
	if h.IsDisposed() {
		return
	}
	h.tracker.Bind(editor)
}

// State returns the gating state.
func (h *Handler) State() State { return h.tracker.State() }

// Invoke asks the handler to start a completion session at the cursor.
//
// The request is posted through the handler's scheduler. Invokes posted
// before the first one runs collapse into it. Nothing happens when a session
// is already open. Failures are logged, never returned.
func (h *Handler) Invoke() {
	if h.IsDisposed() {
		return
	}
	if !h.pending.CompareAndSwap(false, true) {
		return
	}

	h.schedule(func() {
		h.pending.Store(false)
		h.processInvoke()
	})
}

// SelectActive commits the display's highlighted item.
func (h *Handler) SelectActive() {
	if h.IsDisposed() {
		return
	}
	h.display.SelectActive()
}

// Dispose disconnects the handler from its display and editor. Calling it
// again is a no-op.
func (h *Handler) Dispose() {
	if !h.disposed.CompareAndSwap(false, true) {
		return
	}

	h.conns.DisconnectAll()
	h.tracker.Close()
}

// IsDisposed reports whether Dispose was called.
func (h *Handler) IsDisposed() bool {
	return h.disposed.Load()
}

func (h *Handler) processInvoke() {
	if h.IsDisposed() {
		return
	}

	model := h.display.Model()
	if model == nil {
		return
	}
	if model.Original() != nil {
		return
	}

	if err := h.makeRequest(model); err != nil {
		h.logger.Warn("invoke request bailed", zap.Error(err))
	}
}

func (h *Handler) makeRequest(model completer.Model) error {
	editor := h.tracker.Editor()
	if editor == nil {
		return completer.ErrNoActiveEditor
	}

	model.Reset(true)

	text := editor.Text()
	pos := editor.CursorPosition()
	state := textState(editor, pos)
	req := completer.Request{
		Text:       text,
		Offset:     completer.CharIndex(text, editor.OffsetAt(pos)),
		Generation: h.generation.Add(1),
	}
	model.Open(req, state)

	providers := h.providers.Providers()
	h.logger.Debug("fetching completions",
		zap.Int("offset", req.Offset),
		zap.Uint64("generation", req.Generation),
		zap.Int("providers", len(providers)),
	)
	for _, p := range providers {
		p.Fetch(state, req)
	}

	return nil
}

func (h *Handler) onSelected(value string) {
	model := h.display.Model()
	editor := h.tracker.Editor()
	if model == nil || editor == nil {
		return
	}

	patch := model.CreatePatch(value)
	if patch == nil {
		return
	}

	text := editor.Text()
	editor.UpdateSource(
		completer.ByteIndex(text, patch.Start),
		completer.ByteIndex(text, patch.End),
		patch.Value,
	)
}

func (h *Handler) onVisibilityChanged(bool) {
	editor := h.tracker.Editor()
	if editor == nil {
		return
	}

	if h.display.IsDisposed() || h.display.IsHidden() {
		editor.Flags().SetActive(false)
		editor.Focus()
		return
	}

	editor.Flags().SetActive(true)
}
