package sources

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"go.uber.org/zap"

	"github.com/rlch/completer"
)

// maxFileSize bounds the size of files read by the workspace index.
const maxFileSize = 1 << 20

// WorkspaceSource completes identifiers found anywhere under a directory.
// Files are walked once, on first use, honouring .gitignore and .ignore.
type WorkspaceSource struct {
	root       string
	extensions []string
	maxFiles   int
	logger     *zap.Logger

	once  sync.Once
	words []string
	err   error
}

var _ completer.Source = (*WorkspaceSource)(nil)

// WorkspaceOption configures a WorkspaceSource.
type WorkspaceOption func(*WorkspaceSource)

// WithExtensions restricts indexing to files with these extensions.
func WithExtensions(exts ...string) WorkspaceOption {
	return func(s *WorkspaceSource) { s.extensions = exts }
}

// WithMaxFiles stops indexing after n files.
func WithMaxFiles(n int) WorkspaceOption {
	return func(s *WorkspaceSource) { s.maxFiles = n }
}

// WithWorkspaceLogger sets the logger.
func WithWorkspaceLogger(logger *zap.Logger) WorkspaceOption {
	return func(s *WorkspaceSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewWorkspace creates a source indexing root.
func NewWorkspace(root string, opts ...WorkspaceOption) *WorkspaceSource {
	s := &WorkspaceSource{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Words returns the sorted identifiers of the workspace, indexing it first
// if needed.
func (s *WorkspaceSource) Words() ([]string, error) {
	s.once.Do(func() {
		s.words, s.err = s.index()
	})

	return s.words, s.err
}

// Fetch implements completer.Source.
func (s *WorkspaceSource) Fetch(ctx context.Context, req completer.Request) (completer.Reply, error) {
	index, err := s.Words()
	if err != nil {
		return completer.Reply{}, err
	}
	if err := ctx.Err(); err != nil {
		return completer.Reply{}, err
	}

	ws, err := words(req.Text)
	if err != nil {
		return completer.Reply{}, err
	}

	prefix, start := wordAt(ws, req)
	reply := completer.Reply{Start: start, End: req.Offset}
	if prefix == "" {
		return reply, nil
	}

	i := sort.SearchStrings(index, prefix)
	var labels []string
	for ; i < len(index) && strings.HasPrefix(index[i], prefix); i++ {
		if index[i] != prefix {
			labels = append(labels, index[i])
		}
	}
	reply.Items = uniqueItems(labels, "workspace")

	return reply, nil
}

func (s *WorkspaceSource) index() ([]string, error) {
	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(s.root, queue)
	if len(s.extensions) > 0 {
		walker.AllowListExtensions = s.extensions
	}

	var walkErr error
	walker.SetErrorHandler(func(e error) bool {
		walkErr = e
		return true
	})

	seen := make(map[string]struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)

		files := 0
		for f := range queue {
			if s.maxFiles > 0 && files >= s.maxFiles {
				continue
			}
			files++
			s.indexFile(f.Location, seen)
		}
	}()

	if err := walker.Start(); err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}
	<-done

	if walkErr != nil {
		s.logger.Warn("workspace walk", zap.String("root", s.root), zap.Error(walkErr))
	}

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)

	s.logger.Debug("workspace indexed", zap.String("root", s.root), zap.Int("words", len(out)))

	return out, nil
}

func (s *WorkspaceSource) indexFile(path string, seen map[string]struct{}) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxFileSize {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("reading file", zap.String("path", path), zap.Error(err))
		return
	}

	ws, err := words(string(data))
	if err != nil {
		return
	}
	for _, w := range ws {
		seen[w.value] = struct{}{}
	}
}
