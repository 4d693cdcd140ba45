// Package sources implements completion sources: a backend kernel, the
// editor buffer, the files of a workspace and a language server.
package sources

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/completer"
)

var wordLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Number", Pattern: `\p{N}+`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

var identType = wordLexer.Symbols()["Ident"]

// word is an identifier found in a text. Offset is in bytes.
type word struct {
	value  string
	offset int
}

func (w word) end() int { return w.offset + len(w.value) }

// words returns the identifiers of text in document order.
func words(text string) ([]word, error) {
	lex, err := wordLexer.LexString("", text)
	if err != nil {
		return nil, fmt.Errorf("lexing: %w", err)
	}

	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("lexing: %w", err)
	}

	out := make([]word, 0, len(tokens)/2)
	for _, tok := range tokens {
		if tok.Type == identType {
			out = append(out, word{value: tok.Value, offset: tok.Pos.Offset})
		}
	}

	return out, nil
}

// wordAt returns the part of the identifier that ends at the character
// offset of req, and that identifier's start as a character offset. An
// empty prefix means the cursor is not at the end of an identifier.
func wordAt(ws []word, req completer.Request) (prefix string, start int) {
	cursor := completer.ByteIndex(req.Text, req.Offset)
	for _, w := range ws {
		if w.offset < cursor && cursor <= w.end() {
			return w.value[:cursor-w.offset], completer.CharIndex(req.Text, w.offset)
		}
	}

	return "", req.Offset
}

// uniqueItems turns candidate labels into items, keeping the first
// occurrence of each label.
func uniqueItems(labels []string, typ string) []completer.Item {
	seen := make(map[string]struct{}, len(labels))
	items := make([]completer.Item, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		items = append(items, completer.Item{Label: label, Type: typ})
	}

	return items
}
