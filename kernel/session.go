package kernel

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rlch/completer"
	"github.com/rlch/completer/manager"
	"github.com/rlch/completer/signal"
)

// Session is a connection to a running kernel session.
type Session struct {
	id       string
	path     string
	kernel   completer.Kernel
	disposed atomic.Bool
	onClose  func()
}

var _ completer.Session = (*Session)(nil)

// NewSession creates a session for path served by kernel.
func NewSession(id, path string, kernel completer.Kernel) *Session {
	return &Session{id: id, path: path, kernel: kernel}
}

// ID implements completer.Session.
func (s *Session) ID() string { return s.id }

// Path implements completer.Session.
func (s *Session) Path() string { return s.path }

// Kernel implements completer.Session. A disposed session has no kernel.
func (s *Session) Kernel() completer.Kernel {
	if s.disposed.Load() || s.kernel == nil {
		return nil
	}

	return s.kernel
}

// Dispose implements completer.Session.
func (s *Session) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	if s.onClose != nil {
		s.onClose()
	}
}

// IsDisposed reports whether Dispose was called.
func (s *Session) IsDisposed() bool { return s.disposed.Load() }

// Sessions tracks running kernel sessions and hands out connections to
// them. It implements manager.SessionManager.
type Sessions struct {
	mu          sync.Mutex
	running     []manager.SessionModel
	kernels     map[string]completer.Kernel
	connections map[string]int

	runningChanged *signal.Signal[[]manager.SessionModel]
}

var _ manager.SessionManager = (*Sessions)(nil)

// NewSessions creates an empty session list.
func NewSessions() *Sessions {
	return &Sessions{
		kernels:        make(map[string]completer.Kernel),
		connections:    make(map[string]int),
		runningChanged: signal.New[[]manager.SessionModel](),
	}
}

// Start adds a running session served by kernel.
func (s *Sessions) Start(model manager.SessionModel, kernel completer.Kernel) {
	s.mu.Lock()
	if _, ok := s.kernels[model.ID]; !ok {
		s.running = append(s.running, model)
	} else {
		for i := range s.running {
			if s.running[i].ID == model.ID {
				s.running[i] = model
			}
		}
	}
	s.kernels[model.ID] = kernel
	running := slices.Clone(s.running)
	s.mu.Unlock()

	s.runningChanged.Emit(running)
}

// Stop removes the session id. It reports whether it was running.
func (s *Sessions) Stop(id string) bool {
	s.mu.Lock()
	if _, ok := s.kernels[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.kernels, id)
	s.running = slices.DeleteFunc(s.running, func(m manager.SessionModel) bool { return m.ID == id })
	running := slices.Clone(s.running)
	s.mu.Unlock()

	s.runningChanged.Emit(running)

	return true
}

// Running implements manager.SessionManager.
func (s *Sessions) Running() []manager.SessionModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.running)
}

// RunningChanged implements manager.SessionManager.
func (s *Sessions) RunningChanged() *signal.Signal[[]manager.SessionModel] {
	return s.runningChanged
}

// ConnectTo implements manager.SessionManager.
func (s *Sessions) ConnectTo(model manager.SessionModel) (completer.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kernel, ok := s.kernels[model.ID]
	if !ok {
		return nil, fmt.Errorf("connect to %q: %w", model.ID, ErrSessionNotFound)
	}
	s.connections[model.ID]++

	session := NewSession(model.ID, model.Path, kernel)
	session.onClose = func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.connections[model.ID]--; s.connections[model.ID] <= 0 {
			delete(s.connections, model.ID)
		}
	}

	return session, nil
}

// Connections returns the number of open connections to session id.
func (s *Sessions) Connections(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connections[id]
}
