package completer

import "github.com/rlch/completer/signal"

// Editor is the text editor capability the engine consumes.
type Editor interface {
	// Text returns the full buffer text.
	Text() string

	// CursorPosition returns the primary cursor.
	CursorPosition() Position

	// Line returns the text of line n, or false when n is out of range.
	Line(n int) (string, bool)

	// Selection returns the primary selection.
	Selection() Range

	// OffsetAt converts a position to the editor's native index into Text,
	// which is a byte offset.
	OffsetAt(pos Position) int

	LineHeight() int
	CharWidth() int

	// UpdateSource replaces the byte range [start, end) with value as one
	// undoable edit.
	UpdateSource(start, end int, value string)

	// Focus gives input focus back to the editor.
	Focus()

	// Flags returns the view state flags of the editor host.
	Flags() ViewStateFlags

	// SelectionChanged fires after the selection or cursor moves.
	SelectionChanged() *signal.Signal[Range]

	// TextChanged fires after the buffer text changes, before the
	// SelectionChanged caused by the same edit.
	TextChanged() *signal.Signal[string]

	IsDisposed() bool
}

// ViewStateFlags are the two presentation flags the engine drives. A
// rendering layer maps them onto its own styling.
type ViewStateFlags interface {
	// SetEnabled marks the editor as able to host a completer.
	SetEnabled(on bool)

	// SetActive marks the editor as having a visible completer.
	SetActive(on bool)

	Enabled() bool
	Active() bool
}

// Model is the completion state shared by a handler and its display.
type Model interface {
	// Original returns the state captured when the session opened, or nil
	// when no session is open.
	Original() *TextState

	// SubsetMatch reports whether the model is narrowing an open list.
	SubsetMatch() bool

	// Reset clears the session. A hard reset also drops an in-progress
	// subset match.
	Reset(hard bool)

	// Open starts a session for req at state.
	Open(req Request, state TextState)

	// HandleCursorChange is a cursor moved notification.
	HandleCursorChange(state TextState)

	// HandleTextChange narrows the open list after an edit.
	HandleTextChange(state TextState)

	// CreatePatch returns the edit that inserts value, or nil when no
	// session is open.
	CreatePatch(value string) *Patch

	// AddItems merges a reply produced for req into the session.
	AddItems(req Request, state TextState, reply Reply)
}

// Display is the completer widget a handler drives. Rendering and keyboard
// navigation are its own business.
type Display interface {
	// Model returns the bound model or nil.
	Model() Model

	// Selected fires with the value to insert when the user picks an item.
	Selected() *signal.Signal[string]

	// VisibilityChanged fires with the new visibility.
	VisibilityChanged() *signal.Signal[bool]

	// SelectActive commits the highlighted item.
	SelectActive()

	SetEditor(editor Editor)
	Hide()
	IsHidden() bool

	Dispose()
	IsDisposed() bool
}
