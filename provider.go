package completer

import "context"

// Provider is an installable completion source.
//
// Fetch is fire-and-forget: a provider delivers its results asynchronously
// through the Display in the last Context it was given.
type Provider interface {
	// ID is the unique registry key.
	ID() string

	// SetContext hands the provider the active surface bundle. Providers
	// rebuild their source connections from it.
	SetContext(cc Context)

	// IsApplicable reports whether the provider wants to serve req.
	// The engine treats the answer as advisory.
	IsApplicable(ctx context.Context, req Request, cc Context) (bool, error)

	// Fetch starts fetching completions for req.
	Fetch(state TextState, req Request)
}

// Resolver is implemented by providers and sources that can fill in lazy
// item details such as documentation.
type Resolver interface {
	Resolve(ctx context.Context, item Item) (Item, error)
}

// Source asynchronously produces a reply for a request.
type Source interface {
	Fetch(ctx context.Context, req Request) (Reply, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (Reply, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, req Request) (Reply, error) {
	return f(ctx, req)
}

// CompleteReply is the backend's answer to a complete request.
type CompleteReply struct {
	Status      string         `json:"status"`
	Matches     []string       `json:"matches"`
	CursorStart int            `json:"cursor_start"`
	CursorEnd   int            `json:"cursor_end"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Kernel is a code execution backend able to answer complete requests.
type Kernel interface {
	RequestComplete(ctx context.Context, code string, cursorPos int) (*CompleteReply, error)
}

// Session is a connection to a backend session.
type Session interface {
	ID() string

	// Path is the document path the session was started for.
	Path() string

	// Kernel returns the session's kernel, or nil when it has none.
	Kernel() Kernel

	Dispose()
}

// SurfaceKind identifies the kind of editor surface.
type SurfaceKind string

const (
	SurfaceNotebook   SurfaceKind = "notebook"
	SurfaceConsole    SurfaceKind = "console"
	SurfaceFileEditor SurfaceKind = "file"
)

// SurfaceInfo identifies the surface a context belongs to.
type SurfaceInfo struct {
	ID   string
	Kind SurfaceKind
	Path string
}

// Context is the bundle broadcast to providers whenever the active editor,
// display, backend session or surface changes.
type Context struct {
	Display Display
	Editor  Editor
	Surface SurfaceInfo
	Session Session
}
