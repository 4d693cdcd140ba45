package manager_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/completer"
	"github.com/rlch/completer/kernel"
	"github.com/rlch/completer/manager"
	"github.com/rlch/completer/model"
	"github.com/rlch/completer/provider"
	"github.com/rlch/completer/signal"
	"github.com/rlch/completer/textbuf"
)

type baseSurface struct {
	id            string
	editor        completer.Editor
	editorChanged *signal.Signal[completer.Editor]
	disposed      *signal.Signal[struct{}]
}

func newBase(id string, editor completer.Editor) baseSurface {
	return baseSurface{
		id:            id,
		editor:        editor,
		editorChanged: signal.New[completer.Editor](),
		disposed:      signal.New[struct{}](),
	}
}

func (s *baseSurface) ID() string                                            { return s.id }
func (s *baseSurface) ActiveEditor() completer.Editor                        { return s.editor }
func (s *baseSurface) ActiveEditorChanged() *signal.Signal[completer.Editor] { return s.editorChanged }
func (s *baseSurface) Disposed() *signal.Signal[struct{}]                    { return s.disposed }

func (s *baseSurface) setEditor(editor completer.Editor) {
	s.editor = editor
	s.editorChanged.Emit(editor)
}

type notebook struct {
	baseSurface
	session        completer.Session
	sessionChanged *signal.Signal[completer.Session]
}

func newNotebook(id string, editor completer.Editor, session completer.Session) *notebook {
	return &notebook{
		baseSurface:    newBase(id, editor),
		session:        session,
		sessionChanged: signal.New[completer.Session](),
	}
}

func (n *notebook) Session() completer.Session                        { return n.session }
func (n *notebook) SessionChanged() *signal.Signal[completer.Session] { return n.sessionChanged }

type fileEditor struct {
	baseSurface
	path string
}

func newFileEditor(id, path string, editor completer.Editor) *fileEditor {
	return &fileEditor{baseSurface: newBase(id, editor), path: path}
}

func (f *fileEditor) Path() string { return f.path }

type fakeSession struct {
	id, path string
	kernel   completer.Kernel
	disposed int
}

func (s *fakeSession) ID() string               { return s.id }
func (s *fakeSession) Path() string             { return s.path }
func (s *fakeSession) Kernel() completer.Kernel { return s.kernel }
func (s *fakeSession) Dispose()                 { s.disposed++ }

type fakeKernel struct {
	reply *completer.CompleteReply
}

func (k fakeKernel) RequestComplete(context.Context, string, int) (*completer.CompleteReply, error) {
	return k.reply, nil
}

// recorder is a provider that records the contexts it is handed.
type recorder struct {
	mu       sync.Mutex
	contexts []completer.Context
	fetches  int
}

func (r *recorder) ID() string { return "recorder" }

func (r *recorder) SetContext(cc completer.Context) {
	r.mu.Lock()
	r.contexts = append(r.contexts, cc)
	r.mu.Unlock()
}

func (r *recorder) IsApplicable(context.Context, completer.Request, completer.Context) (bool, error) {
	return true, nil
}

func (r *recorder) Fetch(completer.TextState, completer.Request) {
	r.mu.Lock()
	r.fetches++
	r.mu.Unlock()
}

func (r *recorder) last() completer.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.contexts[len(r.contexts)-1]
}

type overlay struct {
	displays []completer.Display
}

func (o *overlay) Attach(d completer.Display) { o.displays = append(o.displays, d) }

func TestManager_NotebookLifecycle(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ov := &overlay{}
	m := manager.New(manager.Options{Overlay: ov})
	m.Register(rec)

	buf := textbuf.New("x = 1")
	session := &fakeSession{id: "s1", path: "nb.ipynb"}
	nb := newNotebook("nb", buf, session)

	h := m.AddNotebook(nb)
	require.NotNil(t, h)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, completer.Editor(buf), h.Editor())
	assert.True(t, buf.Flags().Enabled())

	require.Len(t, ov.displays, 1)
	assert.True(t, ov.displays[0].IsHidden())

	cc := rec.last()
	assert.Equal(t, completer.SurfaceInfo{ID: "nb", Kind: completer.SurfaceNotebook, Path: "nb.ipynb"}, cc.Surface)
	assert.Equal(t, completer.Session(session), cc.Session)
	assert.Equal(t, completer.Editor(buf), cc.Editor)
	assert.Equal(t, h.Display(), cc.Display)

	require.NoError(t, m.Invoke("nb"))
	assert.Equal(t, 1, rec.fetches)

	nb.disposed.Emit(struct{}{})

	assert.Zero(t, m.Len())
	_, ok := m.Handler("nb")
	assert.False(t, ok)
	assert.True(t, h.IsDisposed())
	assert.True(t, h.Display().IsDisposed())
	assert.Zero(t, buf.SelectionChanged().Len())
	assert.Zero(t, nb.editorChanged.Len())
	assert.Zero(t, session.disposed, "a notebook owns its session")

	err := m.Invoke("nb")
	require.ErrorIs(t, err, completer.ErrUnknownSurface)
	require.ErrorIs(t, m.SelectActive("nb"), completer.ErrUnknownSurface)

	assert.NotPanics(t, func() { nb.disposed.Emit(struct{}{}) })
}

func TestManager_DuplicateSurface(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	m := manager.New(manager.Options{Logger: zap.New(core)})

	nb := newNotebook("nb", textbuf.New("x"), nil)
	first := m.AddNotebook(nb)
	second := m.AddConsole(nb)

	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, logs.FilterMessage("surface already tracked").Len())
}

func TestManager_FollowsActiveEditorAndSession(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := manager.New(manager.Options{})
	m.Register(rec)

	first := textbuf.New("a = 1")
	console := newNotebook("console", first, nil)
	h := m.AddConsole(console)
	assert.Equal(t, completer.SurfaceConsole, rec.last().Surface.Kind)

	second := textbuf.New("b = 2")
	console.setEditor(second)

	assert.Equal(t, completer.Editor(second), h.Editor())
	assert.Equal(t, completer.Editor(second), rec.last().Editor)
	assert.False(t, first.Flags().Enabled())
	assert.True(t, second.Flags().Enabled())

	session := &fakeSession{id: "s", path: "console-1"}
	console.session = session
	console.sessionChanged.Emit(session)

	cc := rec.last()
	assert.Equal(t, completer.Session(session), cc.Session)
	assert.Equal(t, "console-1", cc.Surface.Path)
}

func TestManager_FileEditorSessions(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sessions := kernel.NewSessions()
	sessions.Start(manager.SessionModel{ID: "k1", Path: "/a.py"}, fakeKernel{})
	sessions.Start(manager.SessionModel{ID: "other", Path: "/b.py"}, fakeKernel{})

	m := manager.New(manager.Options{Sessions: sessions})
	m.Register(rec)

	fe := newFileEditor("file", "/a.py", textbuf.New("import os"))
	m.AddFileEditor(fe)

	cc := rec.last()
	require.NotNil(t, cc.Session)
	assert.Equal(t, "k1", cc.Session.ID())
	assert.Equal(t, completer.SurfaceInfo{ID: "file", Kind: completer.SurfaceFileEditor, Path: "/a.py"}, cc.Surface)
	assert.Equal(t, 1, sessions.Connections("k1"))

	// Same session still running: no reconnect.
	sessions.Start(manager.SessionModel{ID: "k1", Path: "/a.py"}, fakeKernel{})
	assert.Equal(t, 1, sessions.Connections("k1"))

	// Session gone: the old connection is dropped.
	sessions.Stop("k1")
	assert.Zero(t, sessions.Connections("k1"))
	assert.Nil(t, rec.last().Session)

	// A new session for the path is picked up.
	sessions.Start(manager.SessionModel{ID: "k2", Path: "/a.py"}, fakeKernel{})
	assert.Equal(t, "k2", rec.last().Session.ID())
	assert.Equal(t, 1, sessions.Connections("k2"))

	// Switching editors keeps the session.
	fe.setEditor(textbuf.New("import sys"))
	assert.Equal(t, "k2", rec.last().Session.ID())

	fe.disposed.Emit(struct{}{})
	assert.Zero(t, sessions.Connections("k2"))
	assert.Zero(t, sessions.RunningChanged().Len())
	assert.Zero(t, m.Len())
}

// failingSessions lists one session that cannot be connected to.
type failingSessions struct {
	changed *signal.Signal[[]manager.SessionModel]
}

func (f failingSessions) Running() []manager.SessionModel {
	return []manager.SessionModel{{ID: "broken", Path: "/a.py"}}
}

func (f failingSessions) RunningChanged() *signal.Signal[[]manager.SessionModel] { return f.changed }

func (f failingSessions) ConnectTo(manager.SessionModel) (completer.Session, error) {
	return nil, errors.New("refused")
}

func TestManager_FileEditorConnectFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{}
	m := manager.New(manager.Options{
		Logger:   zap.New(core),
		Sessions: failingSessions{changed: signal.New[[]manager.SessionModel]()},
	})
	m.Register(rec)

	m.AddFileEditor(newFileEditor("file", "/a.py", textbuf.New("x")))

	assert.Nil(t, rec.last().Session)
	entries := logs.FilterMessage("connecting to session").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["session"])
}

func TestManager_CompletesFromKernelAndBuffer(t *testing.T) {
	t.Parallel()

	p := provider.New(provider.Options{Merge: true})
	m := manager.New(manager.Options{})
	m.Register(p)

	buf := textbuf.New("printf(1)\nx = pri")
	session := &fakeSession{id: "s", path: "nb.ipynb", kernel: fakeKernel{reply: &completer.CompleteReply{
		Status:      "ok",
		Matches:     []string{"print", "private"},
		CursorStart: 14,
		CursorEnd:   17,
	}}}
	h := m.AddNotebook(newNotebook("nb", buf, session))

	require.NoError(t, m.Invoke("nb"))
	p.Wait()

	display, ok := h.Display().(*model.Completer)
	require.True(t, ok)

	var labels []string
	for _, item := range display.Items() {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"print", "private", "printf"}, labels)
	assert.True(t, buf.Flags().Active())

	require.NoError(t, m.SelectActive("nb"))
	assert.Equal(t, "printf(1)\nx = print", buf.Text())
	assert.False(t, buf.Flags().Active())
}
