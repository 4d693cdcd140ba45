package main

import (
	"github.com/rlch/completer"
	"github.com/rlch/completer/signal"
	"github.com/rlch/completer/textbuf"
)

// fileSurface is a single-buffer file editor.
type fileSurface struct {
	id       string
	path     string
	buf      *textbuf.Buffer
	disposed *signal.Signal[struct{}]
	changed  *signal.Signal[completer.Editor]
}

func newFileSurface(id, path string, buf *textbuf.Buffer) *fileSurface {
	return &fileSurface{
		id:       id,
		path:     path,
		buf:      buf,
		disposed: signal.New[struct{}](),
		changed:  signal.New[completer.Editor](),
	}
}

func (s *fileSurface) ID() string                                            { return s.id }
func (s *fileSurface) Path() string                                          { return s.path }
func (s *fileSurface) ActiveEditor() completer.Editor                        { return s.buf }
func (s *fileSurface) ActiveEditorChanged() *signal.Signal[completer.Editor] { return s.changed }
func (s *fileSurface) Disposed() *signal.Signal[struct{}]                    { return s.disposed }

func (s *fileSurface) Dispose() {
	s.disposed.Emit(struct{}{})
	s.buf.Dispose()
}
