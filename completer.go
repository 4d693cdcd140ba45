// Package completer defines the data model and collaborator interfaces of the
// editor completion engine.
//
// The engine decides from editor signals whether completion may run
// (see package handler), fans requests out to registered providers, merges
// their replies (MergeReplies) and binds one handler to every live editor
// surface (see packages registry and manager).
package completer

// Item is a single completion candidate.
type Item struct {
	// Label is the user facing text. It is also the identity used for
	// deduplication.
	Label string `json:"label" yaml:"label"`

	// InsertText is spliced into the buffer instead of Label when set.
	InsertText string `json:"insertText,omitempty" yaml:"insert_text,omitempty"`

	// Type is a source defined category tag (e.g. "function", "keyword").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Documentation is free text shown next to the item.
	Documentation string `json:"documentation,omitempty" yaml:"documentation,omitempty"`

	// Deprecated marks the item as deprecated.
	Deprecated bool `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Text returns the text to insert when the item is chosen.
func (i Item) Text() string {
	if i.InsertText != "" {
		return i.InsertText
	}

	return i.Label
}

// Reply is the result of one fetch.
//
// Start and End form the half-open character range of the request text that
// the chosen item replaces. Items never contain two entries with the same
// label.
type Reply struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Items []Item `json:"items"`
}

// Labels returns the labels of r's items in order.
func (r Reply) Labels() []string {
	labels := make([]string, len(r.Items))
	for i, item := range r.Items {
		labels[i] = item.Label
	}

	return labels
}

// Request is the text and cursor a fetch is made against.
type Request struct {
	// Text is the full text of the editable buffer.
	Text string `json:"text"`

	// Offset is the cursor offset within Text, in characters (runes).
	Offset int `json:"offset"`

	// Generation identifies the session that issued the request. It
	// increases monotonically per handler.
	Generation uint64 `json:"generation,omitempty"`
}

// Position is a zero based line/column pair. Columns count characters.
type Position struct {
	Line   int
	Column int
}

// Range is a selection span.
type Range struct {
	Start Position
	End   Position
}

// Collapsed reports whether the range is a plain cursor.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// TextState is an immutable snapshot of an editor.
type TextState struct {
	Text   string
	Line   int
	Column int

	// LineHeight and CharWidth are only used by display layers.
	LineHeight int
	CharWidth  int
}

// Patch replaces the character range [Start, End) of the current text with
// Value.
type Patch struct {
	Start int
	End   int
	Value string
}
