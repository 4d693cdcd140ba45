package completer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlch/completer"
)

func TestCharIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		offset int
		want   int
	}{
		{"hello", 0, 0},
		{"hello", 3, 3},
		{"hello", 99, 5},
		{"héllo", 3, 2},
		{"héllo", 2, 1}, // inside é
		{"héllo", -1, 0},
		{"日本語", 6, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, completer.CharIndex(tt.text, tt.offset), "CharIndex(%q, %d)", tt.text, tt.offset)
	}
}

func TestByteIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, completer.ByteIndex("héllo", 0))
	assert.Equal(t, 3, completer.ByteIndex("héllo", 2))
	assert.Equal(t, 6, completer.ByteIndex("héllo", 5))
	assert.Equal(t, 6, completer.ByteIndex("héllo", 50))
	assert.Equal(t, 6, completer.ByteIndex("日本語", 2))

	for _, text := range []string{"plain", "héllo wörld", "日本語 text", "a😀b"} {
		for i := range []rune(text) {
			assert.Equal(t, i, completer.CharIndex(text, completer.ByteIndex(text, i)), "round trip %q at %d", text, i)
		}
	}
}

func TestUTF16Column(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, completer.UTF16Column("a😀b", 1))
	assert.Equal(t, 3, completer.UTF16Column("a😀b", 2))
	assert.Equal(t, 4, completer.UTF16Column("a😀b", 3))
	assert.Equal(t, 4, completer.UTF16Column("a😀b", 10))

	assert.Equal(t, 2, completer.CharColumnFromUTF16("a😀b", 3))
	assert.Equal(t, 3, completer.CharColumnFromUTF16("a😀b", 4))
}

func TestPositionOffset(t *testing.T) {
	t.Parallel()

	text := "ab\ncdé\n\nf"

	assert.Equal(t, completer.Position{Line: 0, Column: 0}, completer.PositionOf(text, 0))
	assert.Equal(t, completer.Position{Line: 1, Column: 1}, completer.PositionOf(text, 4))
	assert.Equal(t, completer.Position{Line: 3, Column: 1}, completer.PositionOf(text, 10))

	assert.Equal(t, 4, completer.OffsetOf(text, completer.Position{Line: 1, Column: 1}))
	assert.Equal(t, 2, completer.OffsetOf(text, completer.Position{Line: 0, Column: 9}))
	assert.Equal(t, 7, completer.OffsetOf(text, completer.Position{Line: 2, Column: 0}))
	assert.Equal(t, 9, completer.OffsetOf(text, completer.Position{Line: 9, Column: 0}))

	for off := 0; off <= 9; off++ {
		assert.Equal(t, off, completer.OffsetOf(text, completer.PositionOf(text, off)))
	}
}
