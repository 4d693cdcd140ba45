package sources

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/rlch/completer"
)

// LSPSource asks a language server for completions on one document.
//
// The server sees the document as the request text. When the text differs
// from what the server last saw, the document is closed and reopened with a
// new version before the completion request.
type LSPSource struct {
	server     protocol.Server
	uri        uri.URI
	languageID protocol.LanguageIdentifier
	logger     *zap.Logger

	// reqMu holds a document sync and its completion request together.
	reqMu sync.Mutex

	mu      sync.Mutex
	version int32
	opened  bool
	text    string
}

var _ completer.Source = (*LSPSource)(nil)

// LSPOption configures an LSPSource.
type LSPOption func(*LSPSource)

// WithLanguageID sets the language identifier sent with the document.
func WithLanguageID(id string) LSPOption {
	return func(s *LSPSource) { s.languageID = protocol.LanguageIdentifier(id) }
}

// WithLSPLogger sets the logger.
func WithLSPLogger(logger *zap.Logger) LSPOption {
	return func(s *LSPSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLSP creates a source completing the document at path through server.
func NewLSP(server protocol.Server, path string, opts ...LSPOption) *LSPSource {
	s := &LSPSource{
		server:     server,
		uri:        uri.File(path),
		languageID: "plaintext",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize performs the initialize handshake with root as the workspace.
func (s *LSPSource) Initialize(ctx context.Context, root string) error {
	_, err := s.server.Initialize(ctx, &protocol.InitializeParams{
		ProcessID:    int32(os.Getpid()),
		ClientInfo:   &protocol.ClientInfo{Name: "completer"},
		RootURI:      uri.File(root),
		Capabilities: protocol.ClientCapabilities{},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := s.server.Initialized(ctx, &protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}

	return nil
}

// Shutdown closes the document and asks the server to exit.
func (s *LSPSource) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	opened := s.opened
	s.opened = false
	s.mu.Unlock()

	if opened {
		_ = s.server.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: s.uri},
		})
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return s.server.Exit(ctx)
}

// Fetch implements completer.Source. Concurrent fetches are serialized so
// each completion runs against the text it synced.
func (s *LSPSource) Fetch(ctx context.Context, req completer.Request) (completer.Reply, error) {
	list, err := s.complete(ctx, req)
	if err != nil {
		return completer.Reply{}, err
	}

	ws, err := words(req.Text)
	if err != nil {
		return completer.Reply{}, err
	}
	_, start := wordAt(ws, req)
	reply := completer.Reply{Start: start, End: req.Offset}
	if list == nil {
		return reply, nil
	}

	if edit := firstEdit(list.Items); edit != nil {
		reply.Start = offsetOf(req.Text, edit.Range.Start)
		reply.End = offsetOf(req.Text, edit.Range.End)
	}

	seen := make(map[string]struct{}, len(list.Items))
	reply.Items = make([]completer.Item, 0, len(list.Items))
	for _, ci := range list.Items {
		if _, ok := seen[ci.Label]; ok {
			continue
		}
		seen[ci.Label] = struct{}{}
		reply.Items = append(reply.Items, convertItem(ci))
	}

	return reply, nil
}

func (s *LSPSource) complete(ctx context.Context, req completer.Request) (*protocol.CompletionList, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	if err := s.sync(ctx, req.Text); err != nil {
		return nil, err
	}

	pos := completer.PositionOf(req.Text, req.Offset)
	line := lineAt(req.Text, pos.Line)

	list, err := s.server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: s.uri},
			Position: protocol.Position{
				Line:      uint32(pos.Line),
				Character: uint32(completer.UTF16Column(line, pos.Column)),
			},
		},
		Context: &protocol.CompletionContext{TriggerKind: protocol.CompletionTriggerKindInvoked},
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	return list, nil
}

// sync makes the server's copy of the document equal to text.
func (s *LSPSource) sync(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened && s.text == text {
		return nil
	}

	if s.opened {
		if err := s.server.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: s.uri},
		}); err != nil {
			return fmt.Errorf("didClose: %w", err)
		}
		s.opened = false
	}

	s.version++
	if err := s.server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        s.uri,
			LanguageID: s.languageID,
			Version:    s.version,
			Text:       text,
		},
	}); err != nil {
		return fmt.Errorf("didOpen: %w", err)
	}
	s.opened = true
	s.text = text

	s.logger.Debug("document synced", zap.String("uri", string(s.uri)), zap.Int32("version", s.version))

	return nil
}

func firstEdit(items []protocol.CompletionItem) *protocol.TextEdit {
	for _, ci := range items {
		if ci.TextEdit != nil {
			return ci.TextEdit
		}
	}

	return nil
}

func convertItem(ci protocol.CompletionItem) completer.Item {
	item := completer.Item{
		Label:         ci.Label,
		InsertText:    ci.InsertText,
		Documentation: documentation(ci.Documentation),
		Deprecated:    ci.Deprecated,
	}
	if ci.TextEdit != nil {
		item.InsertText = ci.TextEdit.NewText
	}
	if item.InsertText == item.Label {
		item.InsertText = ""
	}
	if ci.Kind != 0 {
		item.Type = strings.ToLower(ci.Kind.String())
	}
	if item.Documentation == "" {
		item.Documentation = ci.Detail
	}

	return item
}

// documentation flattens the string | MarkupContent union.
func documentation(doc any) string {
	switch d := doc.(type) {
	case string:
		return d
	case protocol.MarkupContent:
		return d.Value
	case *protocol.MarkupContent:
		if d != nil {
			return d.Value
		}
	case map[string]any:
		v, _ := d["value"].(string)
		return v
	}

	return ""
}

func offsetOf(text string, p protocol.Position) int {
	line := lineAt(text, int(p.Line))
	col := completer.CharColumnFromUTF16(line, int(p.Character))

	return completer.OffsetOf(text, completer.Position{Line: int(p.Line), Column: col})
}

func lineAt(text string, n int) string {
	lines := strings.Split(text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}

	return lines[n]
}
