package completer

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .completer.yaml is found.
	ErrConfigNotFound = errors.New("completer: no .completer.yaml found")

	// ErrNoKernel is returned by kernel backed sources when no backend
	// connection is available.
	ErrNoKernel = errors.New("completer: no kernel for completion request")

	// ErrFetchFailed is returned when the backend reports a non-ok status.
	ErrFetchFailed = errors.New("completer: completion fetch failed to return successfully")

	// ErrNoActiveEditor is returned when an operation needs an editor and
	// none is bound.
	ErrNoActiveEditor = errors.New("completer: no active editor")

	// ErrUnknownSurface is returned for surface ids with no handler.
	ErrUnknownSurface = errors.New("completer: unknown surface")
)
