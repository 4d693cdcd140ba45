// Package manager binds one completion handler to every live editor surface.
//
// For each notebook, console and file editor added, the manager builds a
// display and a handler, keeps the handler bound to the surface's active
// editor, broadcasts context to the provider registry whenever the editor or
// backend session changes, and tears everything down when the surface is
// disposed.
package manager

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/handler"
	"github.com/rlch/completer/model"
	"github.com/rlch/completer/registry"
	"github.com/rlch/completer/signal"
)

// Options configures a Manager.
type Options struct {
	// Registry holds the providers. A new empty registry is used when nil.
	Registry *registry.Registry

	Logger *zap.Logger

	// Overlay hosts the displays. Optional.
	Overlay Overlay

	// DisplayFactory builds displays. Defaults to a headless
	// model.Completer.
	DisplayFactory DisplayFactory

	// Sessions resolves backend sessions for file editors. Without it file
	// editors never get a session.
	Sessions SessionManager

	// Scheduler is passed to every handler.
	Scheduler handler.Scheduler
}

// Manager is the surface lifecycle manager.
type Manager struct {
	registry  *registry.Registry
	logger    *zap.Logger
	overlay   Overlay
	newDisp   DisplayFactory
	sessions  SessionManager
	scheduler handler.Scheduler

	mu       sync.Mutex
	handlers map[string]*handler.Handler
}

// New creates a manager.
func New(opts Options) *Manager {
	m := &Manager{
		registry:  opts.Registry,
		logger:    opts.Logger,
		overlay:   opts.Overlay,
		newDisp:   opts.DisplayFactory,
		sessions:  opts.Sessions,
		scheduler: opts.Scheduler,
		handlers:  make(map[string]*handler.Handler),
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.registry == nil {
		m.registry = registry.New(m.logger)
	}
	if m.newDisp == nil {
		m.newDisp = func() completer.Display {
			return model.NewCompleter(model.New(model.WithLogger(m.logger)))
		}
	}

	return m
}

// Registry returns the provider registry.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// Register installs a provider.
func (m *Manager) Register(p completer.Provider) { m.registry.Register(p) }

// OverrideProvider replaces a provider.
func (m *Manager) OverrideProvider(p completer.Provider) { m.registry.OverrideProvider(p) }

// Provider looks a provider up by ID.
func (m *Manager) Provider(id string) (completer.Provider, bool) { return m.registry.Provider(id) }

// Handler returns the handler bound to the surface id.
func (m *Manager) Handler(id string) (*handler.Handler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handlers[id]

	return h, ok
}

// Len returns the number of live surfaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.handlers)
}

// Invoke starts completion in the surface id.
func (m *Manager) Invoke(id string) error {
	h, ok := m.Handler(id)
	if !ok {
		return fmt.Errorf("invoke %q: %w", id, completer.ErrUnknownSurface)
	}
	h.Invoke()

	return nil
}

// SelectActive commits the highlighted item in the surface id.
func (m *Manager) SelectActive(id string) error {
	h, ok := m.Handler(id)
	if !ok {
		return fmt.Errorf("select %q: %w", id, completer.ErrUnknownSurface)
	}
	h.SelectActive()

	return nil
}

// AddNotebook starts completion for a notebook. The handler follows the
// active cell and the notebook's session.
func (m *Manager) AddNotebook(s SessionSurface) *handler.Handler {
	return m.addSessionSurface(s, completer.SurfaceNotebook)
}

// AddConsole starts completion for a console. The handler follows the
// prompt and the console's session.
func (m *Manager) AddConsole(s SessionSurface) *handler.Handler {
	return m.addSessionSurface(s, completer.SurfaceConsole)
}

// AddFileEditor starts completion for a file editor. The editor gets the
// session of whichever running session has the same path.
func (m *Manager) AddFileEditor(s FileSurface) *handler.Handler {
	b := m.bind(s, completer.SurfaceFileEditor, s.Path())
	if b == nil {
		h, _ := m.Handler(s.ID())
		return h
	}

	b.update(s.ActiveEditor(), nil)
	b.attach(s.ActiveEditor())

	b.conns.Add(s.ActiveEditorChanged().Connect(func(editor completer.Editor) {
		b.handler.SetEditor(editor)
		b.update(editor, b.currentSession())
	}))

	if m.sessions != nil {
		b.onRunningChanged(m.sessions.Running())
		b.conns.Add(m.sessions.RunningChanged().Connect(b.onRunningChanged))
	}

	return b.handler
}

func (m *Manager) addSessionSurface(s SessionSurface, kind completer.SurfaceKind) *handler.Handler {
	b := m.bind(s, kind, "")
	if b == nil {
		h, _ := m.Handler(s.ID())
		return h
	}

	b.update(s.ActiveEditor(), s.Session())
	b.attach(s.ActiveEditor())

	refresh := func() {
		editor := s.ActiveEditor()
		b.handler.SetEditor(editor)
		b.update(editor, s.Session())
	}
	b.conns.Add(s.ActiveEditorChanged().Connect(func(completer.Editor) { refresh() }))
	b.conns.Add(s.SessionChanged().Connect(func(completer.Session) { refresh() }))

	return b.handler
}

// bind creates the display and handler for s and hooks its disposal. It
// returns nil when s is already tracked.
func (m *Manager) bind(s Surface, kind completer.SurfaceKind, path string) *binding {
	id := s.ID()

	m.mu.Lock()
	if _, ok := m.handlers[id]; ok {
		m.mu.Unlock()
		m.logger.Warn("surface already tracked", zap.String("surface", id))
		return nil
	}

	display := m.newDisp()
	h := handler.New(display,
		handler.WithLogger(m.logger.With(zap.String("surface", id))),
		handler.WithProviders(m.registry),
		handler.WithScheduler(m.scheduler),
	)
	m.handlers[id] = h
	m.mu.Unlock()

	b := &binding{
		manager: m,
		info:    completer.SurfaceInfo{ID: id, Kind: kind, Path: path},
		display: display,
		handler: h,
	}
	if fs, ok := s.(FileSurface); ok {
		b.file = fs
	}
	b.conns.Add(s.Disposed().Connect(func(struct{}) { b.dispose() }))

	m.logger.Debug("surface added", zap.String("surface", id), zap.String("kind", string(kind)))

	return b
}

func (m *Manager) remove(id string, h *handler.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers[id] == h {
		delete(m.handlers, id)
	}
}

// binding is the per-surface state owned by the manager.
type binding struct {
	manager *Manager
	info    completer.SurfaceInfo
	display completer.Display
	handler *handler.Handler
	file    FileSurface
	conns   signal.Bag

	mu       sync.Mutex
	session  completer.Session
	disposed bool
}

// attach finishes construction: hide the display, bind the editor and hand
// the display to the overlay.
func (b *binding) attach(editor completer.Editor) {
	b.display.Hide()
	b.handler.SetEditor(editor)
	if b.manager.overlay != nil {
		b.manager.overlay.Attach(b.display)
	}
}

// update broadcasts a fresh context to every provider.
func (b *binding) update(editor completer.Editor, session completer.Session) {
	info := b.info
	if info.Path == "" && session != nil {
		info.Path = session.Path()
	}

	b.manager.registry.SetContext(completer.Context{
		Display: b.display,
		Editor:  editor,
		Surface: info,
		Session: session,
	})
}

func (b *binding) currentSession() completer.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.session
}

// onRunningChanged matches the file editor against running sessions by
// path.
func (b *binding) onRunningChanged(models []SessionModel) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	old := b.session
	b.mu.Unlock()

	path := b.file.Path()
	editor := b.file.ActiveEditor()
	logger := b.manager.logger.With(zap.String("surface", b.info.ID))

	var match *SessionModel
	for i := range models {
		if models[i].Path == path {
			match = &models[i]
			break
		}
	}

	if match == nil {
		b.update(editor, nil)
		b.dropSession(old)
		return
	}

	if old != nil && old.ID() == match.ID {
		return
	}
	b.dropSession(old)

	session, err := b.manager.sessions.ConnectTo(*match)
	if err != nil {
		logger.Warn("connecting to session", zap.String("session", match.ID), zap.Error(err))
		b.update(editor, nil)
		return
	}

	b.mu.Lock()
	b.session = session
	b.mu.Unlock()

	logger.Debug("session matched", zap.String("session", match.ID), zap.String("path", path))
	b.update(editor, session)
}

// dropSession disposes old if it is still the binding's session.
func (b *binding) dropSession(old completer.Session) {
	if old == nil {
		return
	}

	b.mu.Lock()
	if b.session == old {
		b.session = nil
	}
	b.mu.Unlock()

	old.Dispose()
}

func (b *binding) dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	session := b.session
	b.session = nil
	b.mu.Unlock()

	b.manager.remove(b.info.ID, b.handler)
	b.display.Dispose()
	b.handler.Dispose()
	b.conns.DisconnectAll()

	if session != nil {
		session.Dispose()
	}

	b.manager.logger.Debug("surface disposed", zap.String("surface", b.info.ID))
}
