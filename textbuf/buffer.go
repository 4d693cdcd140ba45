// Package textbuf implements an in-memory editor that satisfies
// completer.Editor. Hosts without a real editor widget (the CLI, tests) use
// it as the editable region of a surface.
package textbuf

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// Buffer is an in-memory editor with a single cursor and selection.
//
// Buffer is safe for concurrent use. Signals are emitted after the buffer's
// lock is released, so slots may call back into the buffer.
type Buffer struct {
	mu       sync.Mutex
	text     string
	anchor   completer.Position
	cursor   completer.Position
	undo     []edit
	disposed bool
	focused  bool

	lineHeight int
	charWidth  int

	flags            *Flags
	selectionChanged *signal.Signal[completer.Range]
	textChanged      *signal.Signal[string]
}

// edit records the inverse of one UpdateSource call.
type edit struct {
	start  int
	end    int
	value  string
	cursor completer.Position
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMetrics sets the line height and character width reported to display
// layers.
func WithMetrics(lineHeight, charWidth int) Option {
	return func(b *Buffer) {
		b.lineHeight = lineHeight
		b.charWidth = charWidth
	}
}

// New creates a buffer holding text with the cursor at the end.
func New(text string, opts ...Option) *Buffer {
	b := &Buffer{
		text:             text,
		lineHeight:       1,
		charWidth:        1,
		flags:            &Flags{},
		selectionChanged: signal.New[completer.Range](),
		textChanged:      signal.New[string](),
	}
	b.cursor = completer.PositionOf(text, utf8.RuneCountInString(text))
	b.anchor = b.cursor

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Text returns the buffer contents.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.text
}

// CursorPosition returns the cursor.
func (b *Buffer) CursorPosition() completer.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cursor
}

// Line returns line n without its newline.
func (b *Buffer) Line(n int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := strings.Split(b.text, "\n")
	if n < 0 || n >= len(lines) {
		return "", false
	}

	return lines[n], true
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.Count(b.text, "\n") + 1
}

// Selection returns the selection from anchor to cursor.
func (b *Buffer) Selection() completer.Range {
	b.mu.Lock()
	defer b.mu.Unlock()

	return completer.Range{Start: b.anchor, End: b.cursor}
}

// OffsetAt returns the byte offset of pos.
func (b *Buffer) OffsetAt(pos completer.Position) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return completer.ByteIndex(b.text, completer.OffsetOf(b.text, pos))
}

// LineHeight implements completer.Editor.
func (b *Buffer) LineHeight() int { return b.lineHeight }

// CharWidth implements completer.Editor.
func (b *Buffer) CharWidth() int { return b.charWidth }

// UpdateSource replaces the byte range [start, end) with value and leaves
// the cursor after the inserted text. The change is one undo step.
func (b *Buffer) UpdateSource(start, end int, value string) {
	b.mu.Lock()
	start, end = clampRange(b.text, start, end)
	b.undo = append(b.undo, edit{
		start:  start,
		end:    start + len(value),
		value:  b.text[start:end],
		cursor: b.cursor,
	})
	b.text = b.text[:start] + value + b.text[end:]
	b.cursor = completer.PositionOf(b.text, completer.CharIndex(b.text, start+len(value)))
	b.anchor = b.cursor
	text, sel := b.text, completer.Range{Start: b.anchor, End: b.cursor}
	b.mu.Unlock()

	b.textChanged.Emit(text)
	b.selectionChanged.Emit(sel)
}

// Undo reverts the most recent UpdateSource. It reports whether there was
// anything to undo.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	if len(b.undo) == 0 {
		b.mu.Unlock()
		return false
	}
	e := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	b.text = b.text[:e.start] + e.value + b.text[e.end:]
	b.cursor = e.cursor
	b.anchor = e.cursor
	text, sel := b.text, completer.Range{Start: b.anchor, End: b.cursor}
	b.mu.Unlock()

	b.textChanged.Emit(text)
	b.selectionChanged.Emit(sel)

	return true
}

// Insert types s at the cursor, replacing any selection.
func (b *Buffer) Insert(s string) {
	b.mu.Lock()
	start := completer.ByteIndex(b.text, completer.OffsetOf(b.text, b.anchor))
	end := completer.ByteIndex(b.text, completer.OffsetOf(b.text, b.cursor))
	if start > end {
		start, end = end, start
	}
	b.mu.Unlock()

	b.UpdateSource(start, end, s)
}

// Backspace deletes the selection, or the character before the cursor.
func (b *Buffer) Backspace() {
	b.mu.Lock()
	start := completer.ByteIndex(b.text, completer.OffsetOf(b.text, b.anchor))
	end := completer.ByteIndex(b.text, completer.OffsetOf(b.text, b.cursor))
	if start > end {
		start, end = end, start
	}
	if start == end {
		if start == 0 {
			b.mu.Unlock()
			return
		}
		_, size := utf8.DecodeLastRuneInString(b.text[:start])
		start -= size
	}
	b.mu.Unlock()

	b.UpdateSource(start, end, "")
}

// SetCursor collapses the selection onto pos.
func (b *Buffer) SetCursor(pos completer.Position) {
	b.Select(pos, pos)
}

// Select sets the selection from anchor to cursor.
func (b *Buffer) Select(anchor, cursor completer.Position) {
	b.mu.Lock()
	b.anchor = b.clamp(anchor)
	b.cursor = b.clamp(cursor)
	sel := completer.Range{Start: b.anchor, End: b.cursor}
	b.mu.Unlock()

	b.selectionChanged.Emit(sel)
}

// MoveCursor moves the cursor by dx characters on the current line and dy
// lines, collapsing the selection.
func (b *Buffer) MoveCursor(dx, dy int) {
	b.mu.Lock()
	pos := b.cursor
	if dx != 0 {
		off := completer.OffsetOf(b.text, pos) + dx
		if off < 0 {
			off = 0
		}
		pos = completer.PositionOf(b.text, off)
	}
	pos.Line += dy
	b.mu.Unlock()

	b.SetCursor(pos)
}

// Focus implements completer.Editor.
func (b *Buffer) Focus() {
	b.mu.Lock()
	b.focused = true
	b.mu.Unlock()
}

// Focused reports whether Focus was called since the last Blur.
func (b *Buffer) Focused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.focused
}

// Blur drops focus.
func (b *Buffer) Blur() {
	b.mu.Lock()
	b.focused = false
	b.mu.Unlock()
}

// Flags implements completer.Editor.
func (b *Buffer) Flags() completer.ViewStateFlags { return b.flags }

// SelectionChanged implements completer.Editor.
func (b *Buffer) SelectionChanged() *signal.Signal[completer.Range] { return b.selectionChanged }

// TextChanged implements completer.Editor.
func (b *Buffer) TextChanged() *signal.Signal[string] { return b.textChanged }

// Dispose marks the buffer disposed and drops all listeners.
func (b *Buffer) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	b.mu.Unlock()

	b.selectionChanged.Clear()
	b.textChanged.Clear()
}

// IsDisposed implements completer.Editor.
func (b *Buffer) IsDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.disposed
}

// clamp keeps pos inside the text. Callers hold b.mu.
func (b *Buffer) clamp(pos completer.Position) completer.Position {
	lines := strings.Split(b.text, "\n")
	if pos.Line < 0 {
		pos.Line = 0
	}
	if pos.Line >= len(lines) {
		pos.Line = len(lines) - 1
	}
	if pos.Column < 0 {
		pos.Column = 0
	}
	if n := utf8.RuneCountInString(lines[pos.Line]); pos.Column > n {
		pos.Column = n
	}

	return pos
}

func clampRange(text string, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}

	return start, end
}
