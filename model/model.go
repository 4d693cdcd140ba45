// Package model provides the reference completion state and a headless
// completer display built on it.
package model

import (
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// Option configures a Model.
type Option func(*Model)

// WithStaleGuard makes the model drop replies whose request generation does
// not match the open session, and replies that arrive after the session was
// reset. Without it a late reply from an earlier session lands in the
// current one or reopens a session.
func WithStaleGuard() Option {
	return func(m *Model) { m.staleGuard = true }
}

// WithMaxItems caps the number of items returned by Items.
func WithMaxItems(n int) Option {
	return func(m *Model) { m.maxItems = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Model holds one completion session: the text state it opened at, the
// merged reply and the query typed since.
//
// Model is safe for concurrent use; sources deliver replies from their own
// goroutines. Changed is emitted without the lock held.
type Model struct {
	staleGuard bool
	maxItems   int
	logger     *zap.Logger

	mu       sync.Mutex
	original *completer.TextState
	current  *completer.TextState
	request  completer.Request
	reply    completer.Reply
	replied  bool
	query    string
	subset   bool

	changed *signal.Signal[struct{}]
}

var _ completer.Model = (*Model)(nil)

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		logger:  zap.NewNop(),
		changed: signal.New[struct{}](),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Changed fires whenever the session, items or query change.
func (m *Model) Changed() *signal.Signal[struct{}] { return m.changed }

// Original implements completer.Model.
func (m *Model) Original() *completer.TextState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.original
}

// Current returns the latest text state seen by the session.
func (m *Model) Current() *completer.TextState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// Request returns the request the session was opened for.
func (m *Model) Request() completer.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.request
}

// SubsetMatch implements completer.Model.
func (m *Model) SubsetMatch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.subset
}

// Query returns the text typed between the reply start and the cursor.
func (m *Model) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.query
}

// Reply returns the merged reply of the session.
func (m *Model) Reply() completer.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reply
}

// Items returns the session's items whose label starts with the query,
// ignoring case, capped at the configured maximum.
func (m *Model) Items() []completer.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.original == nil {
		return nil
	}

	items := filterByPrefix(m.reply.Items, m.query)
	if m.maxItems > 0 && len(items) > m.maxItems {
		items = items[:m.maxItems]
	}

	return slices.Clone(items)
}

// Reset implements completer.Model. A soft reset is ignored while a subset
// match is in progress.
func (m *Model) Reset(hard bool) {
	m.mu.Lock()
	if !hard && m.subset {
		m.mu.Unlock()
		return
	}
	dirty := m.original != nil || len(m.reply.Items) > 0
	m.clear()
	m.mu.Unlock()

	if dirty {
		m.changed.Emit(struct{}{})
	}
}

// Open implements completer.Model.
func (m *Model) Open(req completer.Request, state completer.TextState) {
	m.mu.Lock()
	m.clear()
	m.open(req, state)
	m.mu.Unlock()

	m.changed.Emit(struct{}{})
}

// HandleCursorChange implements completer.Model. The session ends when the
// cursor leaves the original line, moves before the original column or
// moves past the end of the text typed since the session opened.
func (m *Model) HandleCursorChange(state completer.TextState) {
	m.mu.Lock()
	original, current := m.original, m.current
	if original == nil {
		m.mu.Unlock()
		return
	}

	reset := state.Line != original.Line || state.Column < original.Column
	if !reset && m.replied && current != nil {
		index := completer.OffsetOf(state.Text, completer.Position{Line: state.Line, Column: state.Column})
		end := m.reply.End + runeDelta(current.Text, original.Text)
		reset = index > end
	}
	m.mu.Unlock()

	if reset {
		m.Reset(true)
	}
}

// HandleTextChange implements completer.Model. A non-whitespace edit, or one
// at or after the original column, narrows the list; anything else ends the
// session.
func (m *Model) HandleTextChange(state completer.TextState) {
	m.mu.Lock()
	original := m.original
	if original == nil {
		m.mu.Unlock()
		return
	}

	last, ok := charBefore(state)
	if (ok && !unicode.IsSpace(last)) || state.Column >= original.Column {
		m.current = &state
		m.query = m.queryLocked()
		m.subset = true
		m.mu.Unlock()

		m.changed.Emit(struct{}{})

		m.mu.Lock()
		m.subset = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.Reset(false)
}

// CreatePatch implements completer.Model. The patch replaces the reply
// range, widened by whatever was typed since the session opened.
func (m *Model) CreatePatch(value string) *completer.Patch {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.original == nil || m.current == nil || !m.replied {
		return nil
	}

	return &completer.Patch{
		Start: m.reply.Start,
		End:   m.reply.End + runeDelta(m.current.Text, m.original.Text),
		Value: value,
	}
}

// AddItems implements completer.Model. The reply is merged behind the items
// already held, so earlier replies win label conflicts. A reply arriving
// with no session open opens one for its request unless the stale guard is
// on, in which case it is dropped.
func (m *Model) AddItems(req completer.Request, state completer.TextState, reply completer.Reply) {
	m.mu.Lock()
	switch {
	case m.staleGuard && (m.original == nil || req.Generation != m.request.Generation):
		session := m.request.Generation
		m.mu.Unlock()
		m.logger.Debug("dropping stale reply",
			zap.Uint64("generation", req.Generation),
			zap.Uint64("session", session),
		)
		return
	case m.original == nil:
		m.open(req, state)
	}

	if m.replied {
		m.reply = completer.MergeReplies(m.reply, reply)
	} else {
		m.reply = reply
		m.replied = true
	}
	m.query = m.queryLocked()
	m.mu.Unlock()

	m.changed.Emit(struct{}{})
}

func (m *Model) open(req completer.Request, state completer.TextState) {
	s := state
	m.original = &s
	m.current = &s
	m.request = req
}

func (m *Model) clear() {
	m.original = nil
	m.current = nil
	m.request = completer.Request{}
	m.reply = completer.Reply{}
	m.replied = false
	m.query = ""
	m.subset = false
}

// queryLocked returns the text of the current state between the reply start
// and the cursor. Callers hold m.mu.
func (m *Model) queryLocked() string {
	if !m.replied || m.current == nil || m.original == nil {
		return ""
	}

	text := m.current.Text
	start := m.reply.Start
	end := m.reply.End + runeDelta(text, m.original.Text)
	if start < 0 || end < start {
		return ""
	}

	return text[completer.ByteIndex(text, start):completer.ByteIndex(text, end)]
}

func charBefore(state completer.TextState) (rune, bool) {
	lines := strings.Split(state.Text, "\n")
	if state.Line < 0 || state.Line >= len(lines) || state.Column <= 0 {
		return 0, false
	}

	line := lines[state.Line]
	head := line[:completer.ByteIndex(line, state.Column)]
	r, size := utf8.DecodeLastRuneInString(head)
	if size == 0 {
		return 0, false
	}

	return r, true
}

func runeDelta(current, original string) int {
	return utf8.RuneCountInString(current) - utf8.RuneCountInString(original)
}

func filterByPrefix(items []completer.Item, prefix string) []completer.Item {
	if prefix == "" {
		return items
	}

	prefix = strings.ToLower(prefix)
	filtered := make([]completer.Item, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item.Label), prefix) {
			filtered = append(filtered, item)
		}
	}

	return filtered
}
