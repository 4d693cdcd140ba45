package handler

import (
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// State is the gating state of a Tracker.
type State int

const (
	// Disabled means no session may start.
	Disabled State = iota
	// EnabledIdle means a session may start but none is open.
	EnabledIdle
	// EnabledActive means a session is open.
	EnabledActive
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case EnabledIdle:
		return "enabled-idle"
	case EnabledActive:
		return "enabled-active"
	default:
		return "unknown"
	}
}

// Tracker watches one editor and decides, from its selection and text
// signals alone, whether completion is allowed at the cursor.
//
// Cursor moves are forwarded to the display model while completion is
// allowed; text edits are forwarded so an open list can narrow. The tracker
// never starts a fetch itself.
type Tracker struct {
	display completer.Display
	logger  *zap.Logger

	mu      sync.Mutex
	editor  completer.Editor
	enabled bool
	conns   signal.Bag
}

// NewTracker creates a tracker that gates completion for display.
func NewTracker(display completer.Display, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		display: display,
		logger:  logger,
	}
}

// Editor returns the bound editor or nil.
func (t *Tracker) Editor() completer.Editor {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.editor
}

// Enabled reports whether completion is currently allowed.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.enabled
}

// State returns the current gating state.
func (t *Tracker) State() State {
	if !t.Enabled() {
		return Disabled
	}
	if model := t.display.Model(); model != nil && model.Original() != nil {
		return EnabledActive
	}

	return EnabledIdle
}

// Bind attaches the tracker to editor, detaching it from the previous one.
// Binding the current editor again is a no-op. Passing nil leaves the
// tracker unbound.
//
// The old editor loses its view flags and listeners, the display model is
// reset and gating is evaluated immediately for the new editor.
func (t *Tracker) Bind(editor completer.Editor) {
	t.mu.Lock()
	old := t.editor
	if old == editor {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.conns.DisconnectAll()
	if old != nil && !old.IsDisposed() {
		flags := old.Flags()
		flags.SetEnabled(false)
		flags.SetActive(false)
	}

	if model := t.display.Model(); model != nil {
		model.Reset(true)
	}
	t.display.SetEditor(editor)

	t.mu.Lock()
	t.editor = editor
	t.enabled = false
	t.mu.Unlock()

	if editor == nil {
		return
	}

	t.conns.Add(editor.SelectionChanged().Connect(func(completer.Range) { t.Evaluate() }))
	t.conns.Add(editor.TextChanged().Connect(func(string) { t.textChanged() }))

	t.Evaluate()
}

// Close disconnects the tracker from its editor without touching the
// editor's view flags.
func (t *Tracker) Close() {
	t.conns.DisconnectAll()
}

// Evaluate recomputes the gating decision for the cursor of the bound
// editor. It runs on every selection change.
func (t *Tracker) Evaluate() {
	editor := t.Editor()
	if editor == nil {
		return
	}

	model := t.display.Model()
	if model == nil {
		t.disable(editor, nil, "no model")
		return
	}

	// Narrowing an open list moves the cursor; leave the session alone.
	if model.SubsetMatch() {
		return
	}

	pos := editor.CursorPosition()
	line, ok := editor.Line(pos.Line)
	if !ok || line == "" {
		t.disable(editor, model, "empty line")
		return
	}

	if !editor.Selection().Collapsed() {
		t.disable(editor, model, "selection")
		return
	}

	if isBlank(prefix(line, pos.Column)) {
		t.disable(editor, model, "whitespace")
		return
	}

	t.mu.Lock()
	edge := !t.enabled
	t.enabled = true
	t.mu.Unlock()

	if edge {
		editor.Flags().SetEnabled(true)
		t.logger.Debug("completion enabled", zap.Int("line", pos.Line), zap.Int("column", pos.Column))
	}

	model.HandleCursorChange(textState(editor, editor.CursorPosition()))
}

func (t *Tracker) textChanged() {
	model := t.display.Model()
	if model == nil || !t.Enabled() {
		return
	}

	editor := t.Editor()
	if editor == nil {
		return
	}
	if !editor.Selection().Collapsed() {
		return
	}

	model.HandleTextChange(textState(editor, editor.CursorPosition()))
}

func (t *Tracker) disable(editor completer.Editor, model completer.Model, reason string) {
	t.mu.Lock()
	was := t.enabled
	t.enabled = false
	t.mu.Unlock()

	if model != nil {
		model.Reset(true)
	}
	editor.Flags().SetEnabled(false)

	if was {
		t.logger.Debug("completion disabled", zap.String("reason", reason))
	}
}

// textState snapshots editor at pos.
func textState(editor completer.Editor, pos completer.Position) completer.TextState {
	return completer.TextState{
		Text:       editor.Text(),
		Line:       pos.Line,
		Column:     pos.Column,
		LineHeight: editor.LineHeight(),
		CharWidth:  editor.CharWidth(),
	}
}

// prefix returns the first column characters of line.
func prefix(line string, column int) string {
	return line[:completer.ByteIndex(line, column)]
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
