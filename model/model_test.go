package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/completer"
	"github.com/rlch/completer/model"
)

func state(text string, col int) completer.TextState {
	return completer.TextState{Text: text, Line: 0, Column: col}
}

func priReply() completer.Reply {
	return completer.Reply{
		Start: 4,
		End:   7,
		Items: []completer.Item{
			{Label: "print", Type: "function"},
			{Label: "private", Type: "keyword"},
			{Label: "printf", Type: "function"},
		},
	}
}

// openPri opens a session on "x = pri" and delivers priReply.
func openPri(m *model.Model) completer.Request {
	req := completer.Request{Text: "x = pri", Offset: 7, Generation: 1}
	m.Open(req, state("x = pri", 7))
	m.AddItems(req, state("x = pri", 7), priReply())

	return req
}

func labels(items []completer.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestModel_OpenAndAddItems(t *testing.T) {
	t.Parallel()

	m := model.New()
	assert.Nil(t, m.Original())
	assert.Nil(t, m.Items())

	changes := 0
	m.Changed().Connect(func(struct{}) { changes++ })

	openPri(m)
	require.NotNil(t, m.Original())
	assert.Equal(t, 7, m.Original().Column)
	assert.Equal(t, "pri", m.Query())
	assert.Equal(t, []string{"print", "private", "printf"}, labels(m.Items()))
	assert.Equal(t, 2, changes)
}

func TestModel_AddItemsMergesBehindExisting(t *testing.T) {
	t.Parallel()

	m := model.New()
	req := openPri(m)
	m.AddItems(req, state("x = pri", 7), completer.Reply{
		Start: 0,
		End:   7,
		Items: []completer.Item{{Label: "print", Type: "text"}, {Label: "prism"}},
	})

	reply := m.Reply()
	assert.Equal(t, 4, reply.Start)
	assert.Equal(t, []string{"print", "private", "printf", "prism"}, reply.Labels())
	assert.Equal(t, "function", reply.Items[0].Type)
}

func TestModel_LateReplyOpensSession(t *testing.T) {
	t.Parallel()

	m := model.New()
	req := completer.Request{Text: "x = pri", Offset: 7}
	m.AddItems(req, state("x = pri", 7), priReply())

	require.NotNil(t, m.Original())
	assert.Equal(t, req, m.Request())
	assert.Len(t, m.Items(), 3)
}

func TestModel_StaleGuard(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m := model.New(model.WithStaleGuard(), model.WithLogger(zap.New(core)))

	m.Open(completer.Request{Text: "x = pri", Offset: 7, Generation: 2}, state("x = pri", 7))
	m.AddItems(completer.Request{Generation: 1}, state("x = pri", 7), priReply())

	assert.Empty(t, m.Items())
	assert.Equal(t, 1, logs.FilterMessage("dropping stale reply").Len())

	m.AddItems(completer.Request{Generation: 2}, state("x = pri", 7), priReply())
	assert.Len(t, m.Items(), 3)
}

func TestModel_StaleGuardAfterReset(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m := model.New(model.WithStaleGuard(), model.WithLogger(zap.New(core)))

	var changes int
	m.Changed().Connect(func(struct{}) { changes++ })

	req := completer.Request{Text: "x = pri", Offset: 7, Generation: 1}
	m.Open(req, state("x = pri", 7))
	m.Reset(true)
	changes = 0

	m.AddItems(req, state("x = pri", 7), priReply())

	assert.Nil(t, m.Original(), "a late reply must not reopen the session")
	assert.Empty(t, m.Items())
	assert.Zero(t, changes)
	assert.Equal(t, 1, logs.FilterMessage("dropping stale reply").Len())
}

func TestModel_NoStaleGuardLateReplyReopens(t *testing.T) {
	t.Parallel()

	m := model.New()
	req := completer.Request{Text: "x = pri", Offset: 7, Generation: 1}
	m.Open(req, state("x = pri", 7))
	m.Reset(true)
	m.AddItems(req, state("x = pri", 7), priReply())

	assert.NotNil(t, m.Original())
	assert.Len(t, m.Items(), 3)
}

func TestModel_NoStaleGuardMergesEarlierGeneration(t *testing.T) {
	t.Parallel()

	m := model.New()
	m.Open(completer.Request{Text: "x = pri", Offset: 7, Generation: 2}, state("x = pri", 7))
	m.AddItems(completer.Request{Generation: 1}, state("x = pri", 7), priReply())

	assert.Len(t, m.Items(), 3)
}

func TestModel_HandleTextChangeNarrows(t *testing.T) {
	t.Parallel()

	m := model.New()
	openPri(m)

	m.HandleTextChange(state("x = prin", 8))
	assert.Equal(t, "prin", m.Query())
	assert.Equal(t, []string{"print", "printf"}, labels(m.Items()))
	assert.False(t, m.SubsetMatch())

	m.HandleTextChange(state("x = printf", 10))
	assert.Equal(t, []string{"printf"}, labels(m.Items()))
}

func TestModel_HandleTextChangeWhitespaceBeforeOriginEnds(t *testing.T) {
	t.Parallel()

	m := model.New()
	openPri(m)

	m.HandleTextChange(state("x ", 2))
	assert.Nil(t, m.Original())
}

func TestModel_SoftResetIgnoredDuringSubsetMatch(t *testing.T) {
	t.Parallel()

	m := model.New()
	openPri(m)

	var during bool
	m.Changed().Connect(func(struct{}) {
		during = m.SubsetMatch()
		m.Reset(false)
	})

	m.HandleTextChange(state("x = prin", 8))
	assert.True(t, during)
	assert.NotNil(t, m.Original())
	assert.False(t, m.SubsetMatch())
}

func TestModel_HandleCursorChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state completer.TextState
		reset bool
	}{
		{"same position", state("x = pri", 7), false},
		{"before original column", state("x = pri", 6), true},
		{"other line", completer.TextState{Text: "x = pri\n", Line: 1, Column: 0}, true},
		{"past typed text", state("x = prix", 8), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := model.New()
			openPri(m)

			m.HandleCursorChange(tt.state)
			assert.Equal(t, tt.reset, m.Original() == nil)
		})
	}
}

func TestModel_CursorWithinTypedText(t *testing.T) {
	t.Parallel()

	m := model.New()
	openPri(m)

	m.HandleTextChange(state("x = prin", 8))
	m.HandleCursorChange(state("x = prin", 8))
	assert.NotNil(t, m.Original())
}

func TestModel_CreatePatch(t *testing.T) {
	t.Parallel()

	m := model.New()
	assert.Nil(t, m.CreatePatch("print"))

	req := completer.Request{Text: "x = pri", Offset: 7}
	m.Open(req, state("x = pri", 7))
	assert.Nil(t, m.CreatePatch("print"), "no reply yet")

	m.AddItems(req, state("x = pri", 7), priReply())
	m.HandleTextChange(state("x = prin", 8))

	assert.Equal(t, &completer.Patch{Start: 4, End: 8, Value: "print"}, m.CreatePatch("print"))
}

func TestModel_MaxItems(t *testing.T) {
	t.Parallel()

	m := model.New(model.WithMaxItems(2))
	openPri(m)

	assert.Equal(t, []string{"print", "private"}, labels(m.Items()))
}

func TestModel_ItemsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := model.New()
	req := completer.Request{Text: "PR", Offset: 2}
	m.Open(req, state("PR", 2))
	m.AddItems(req, state("PR", 2), completer.Reply{Start: 0, End: 2, Items: []completer.Item{{Label: "print"}, {Label: "len"}}})

	assert.Equal(t, []string{"print"}, labels(m.Items()))
}

func TestModel_ResetEmitsOnlyWhenDirty(t *testing.T) {
	t.Parallel()

	m := model.New()
	changes := 0
	m.Changed().Connect(func(struct{}) { changes++ })

	m.Reset(true)
	assert.Zero(t, changes)

	openPri(m)
	m.Reset(true)
	assert.Equal(t, 3, changes)
	assert.Nil(t, m.Original())
	assert.Empty(t, m.Query())
}
