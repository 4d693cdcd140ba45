package completer

import (
	"unicode/utf8"
)

// CharIndex converts a byte offset into text to a character (rune) offset.
// Offsets past the end clamp to the character length of text; an offset in
// the middle of a multi-byte rune counts that rune as not yet reached.
func CharIndex(text string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(text) {
		return utf8.RuneCountInString(text)
	}

	n := 0
	for i := range text {
		if i >= byteOffset {
			break
		}
		n++
	}

	// A byteOffset inside a rune stops before that rune.
	if !utf8.RuneStart(text[byteOffset]) {
		n--
	}

	return n
}

// ByteIndex converts a character (rune) offset into text to a byte offset,
// clamping to [0, len(text)].
func ByteIndex(text string, charOffset int) int {
	if charOffset <= 0 {
		return 0
	}

	n := 0
	for i := range text {
		if n == charOffset {
			return i
		}
		n++
	}

	return len(text)
}

// UTF16Column returns the number of UTF-16 code units in the first column
// characters of line. Language servers count columns this way.
func UTF16Column(line string, column int) int {
	units := 0
	n := 0
	for _, r := range line {
		if n == column {
			break
		}
		units += utf16Len(r)
		n++
	}

	return units
}

// CharColumnFromUTF16 is the inverse of UTF16Column.
func CharColumnFromUTF16(line string, units int) int {
	seen := 0
	n := 0
	for _, r := range line {
		if seen >= units {
			break
		}
		seen += utf16Len(r)
		n++
	}

	return n
}

// PositionOf returns the line/column of the character offset in text.
func PositionOf(text string, charOffset int) Position {
	var pos Position
	n := 0
	for _, r := range text {
		if n == charOffset {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Column = 0
		} else {
			pos.Column++
		}
		n++
	}

	return pos
}

// OffsetOf returns the character offset of pos in text. Columns past the end
// of a line clamp to the line end.
func OffsetOf(text string, pos Position) int {
	line, col, n := 0, 0, 0
	for _, r := range text {
		if line == pos.Line && (col == pos.Column || r == '\n') {
			return n
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		n++
	}

	return n
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}

	return 1
}
