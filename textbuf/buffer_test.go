package textbuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/completer"
	"github.com/rlch/completer/textbuf"
)

func TestBuffer_New(t *testing.T) {
	t.Parallel()

	b := textbuf.New("ab\ncdé")
	assert.Equal(t, completer.Position{Line: 1, Column: 3}, b.CursorPosition())
	assert.True(t, b.Selection().Collapsed())
	assert.Equal(t, 2, b.LineCount())

	line, ok := b.Line(1)
	require.True(t, ok)
	assert.Equal(t, "cdé", line)

	_, ok = b.Line(2)
	assert.False(t, ok)

	assert.Equal(t, 7, b.OffsetAt(completer.Position{Line: 1, Column: 3}))
}

func TestBuffer_UpdateSourceAndUndo(t *testing.T) {
	t.Parallel()

	b := textbuf.New("x = pri")
	b.UpdateSource(4, 7, "print")

	assert.Equal(t, "x = print", b.Text())
	assert.Equal(t, completer.Position{Line: 0, Column: 9}, b.CursorPosition())

	require.True(t, b.Undo())
	assert.Equal(t, "x = pri", b.Text())
	assert.Equal(t, completer.Position{Line: 0, Column: 7}, b.CursorPosition())
	assert.False(t, b.Undo())
}

func TestBuffer_SignalOrder(t *testing.T) {
	t.Parallel()

	b := textbuf.New("")
	var events []string
	b.TextChanged().Connect(func(text string) { events = append(events, "text:"+text) })
	b.SelectionChanged().Connect(func(completer.Range) {
		// Text must already be updated when the selection signal fires.
		events = append(events, "sel:"+b.Text())
	})

	b.Insert("a")
	assert.Equal(t, []string{"text:a", "sel:a"}, events)
}

func TestBuffer_Backspace(t *testing.T) {
	t.Parallel()

	b := textbuf.New("naïve é")
	b.Backspace()
	assert.Equal(t, "naïve ", b.Text())

	b.SetCursor(completer.Position{Line: 0, Column: 3})
	b.Backspace()
	assert.Equal(t, "nave ", b.Text())
	assert.Equal(t, completer.Position{Line: 0, Column: 2}, b.CursorPosition())

	b.SetCursor(completer.Position{})
	b.Backspace()
	assert.Equal(t, "nave ", b.Text())
}

func TestBuffer_SelectAndInsert(t *testing.T) {
	t.Parallel()

	b := textbuf.New("hello world")
	b.Select(completer.Position{Line: 0, Column: 6}, completer.Position{Line: 0, Column: 99})
	assert.Equal(t, completer.Range{
		Start: completer.Position{Line: 0, Column: 6},
		End:   completer.Position{Line: 0, Column: 11},
	}, b.Selection())

	b.Insert("there")
	assert.Equal(t, "hello there", b.Text())
	assert.True(t, b.Selection().Collapsed())
}

func TestBuffer_MoveCursor(t *testing.T) {
	t.Parallel()

	b := textbuf.New("abc\ndef")
	b.MoveCursor(-2, 0)
	assert.Equal(t, completer.Position{Line: 1, Column: 1}, b.CursorPosition())

	b.MoveCursor(0, -1)
	assert.Equal(t, completer.Position{Line: 0, Column: 1}, b.CursorPosition())

	b.MoveCursor(-10, 0)
	assert.Equal(t, completer.Position{}, b.CursorPosition())
}

func TestBuffer_Dispose(t *testing.T) {
	t.Parallel()

	b := textbuf.New("a")
	calls := 0
	b.TextChanged().Connect(func(string) { calls++ })

	b.Dispose()
	b.Dispose()
	b.Insert("b")

	assert.True(t, b.IsDisposed())
	assert.Zero(t, calls)
}

func TestFlags(t *testing.T) {
	t.Parallel()

	b := textbuf.New("")
	f := b.Flags()
	f.SetEnabled(true)
	f.SetActive(true)

	assert.True(t, f.Enabled())
	assert.True(t, f.Active())

	b.Focus()
	assert.True(t, b.Focused())
	b.Blur()
	assert.False(t, b.Focused())
}
