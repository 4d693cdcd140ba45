package sources

import (
	"context"
	"strings"

	"github.com/rlch/completer"
)

// ContextSource completes the identifier at the cursor from the other
// identifiers in the same buffer.
type ContextSource struct {
	editor completer.Editor
}

var _ completer.Source = (*ContextSource)(nil)

// NewContext creates a source over editor.
func NewContext(editor completer.Editor) *ContextSource {
	return &ContextSource{editor: editor}
}

// Fetch implements completer.Source. Candidates are identifiers of
// req.Text that extend the one at the cursor, in document order. The reply
// replaces the identifier prefix up to the cursor.
func (s *ContextSource) Fetch(ctx context.Context, req completer.Request) (completer.Reply, error) {
	if s.editor == nil {
		return completer.Reply{}, completer.ErrNoActiveEditor
	}
	if err := ctx.Err(); err != nil {
		return completer.Reply{}, err
	}

	ws, err := words(req.Text)
	if err != nil {
		return completer.Reply{}, err
	}

	prefix, start := wordAt(ws, req)
	reply := completer.Reply{Start: start, End: req.Offset}
	if prefix == "" {
		return reply, nil
	}

	var labels []string
	for _, w := range ws {
		if w.value != prefix && strings.HasPrefix(w.value, prefix) {
			labels = append(labels, w.value)
		}
	}
	reply.Items = uniqueItems(labels, "text")

	return reply, nil
}
