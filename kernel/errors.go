package kernel

import "errors"

// ErrSessionNotFound is returned when connecting to a session that is not running.
var ErrSessionNotFound = errors.New("kernel: session not found")
