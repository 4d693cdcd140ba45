package manager

import (
	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
)

// Surface is a host widget containing editable regions.
type Surface interface {
	ID() string

	// ActiveEditor returns the editable region completion should act on,
	// or nil.
	ActiveEditor() completer.Editor

	// ActiveEditorChanged fires when the active region changes (active cell,
	// new prompt).
	ActiveEditorChanged() *signal.Signal[completer.Editor]

	// Disposed fires once when the surface goes away.
	Disposed() *signal.Signal[struct{}]
}

// SessionSurface is a surface with its own backend session: a notebook or a
// console.
type SessionSurface interface {
	Surface

	// Session returns the current backend session, or nil.
	Session() completer.Session

	SessionChanged() *signal.Signal[completer.Session]
}

// FileSurface is a file editor. It has no session of its own; one is found
// among the running sessions by path.
type FileSurface interface {
	Surface

	Path() string
}

// SessionModel describes a running backend session.
type SessionModel struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// SessionManager lists running backend sessions and connects to them.
type SessionManager interface {
	Running() []SessionModel
	RunningChanged() *signal.Signal[[]SessionModel]
	ConnectTo(model SessionModel) (completer.Session, error)
}

// Overlay hosts display widgets.
type Overlay interface {
	Attach(display completer.Display)
}

// DisplayFactory builds the display for a new surface.
type DisplayFactory func() completer.Display
