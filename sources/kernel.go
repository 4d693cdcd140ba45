package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/rlch/completer"
)

// typesKey is the reply metadata key carrying per-match type and insert
// text.
const typesKey = "_jupyter_types_experimental"

// KernelSource asks a session's kernel for completions.
type KernelSource struct {
	session completer.Session
	timeout time.Duration
}

var _ completer.Source = (*KernelSource)(nil)

// KernelOption configures a KernelSource.
type KernelOption func(*KernelSource)

// WithTimeout bounds each complete request.
func WithTimeout(d time.Duration) KernelOption {
	return func(s *KernelSource) { s.timeout = d }
}

// NewKernel creates a source backed by session's kernel.
func NewKernel(session completer.Session, opts ...KernelOption) *KernelSource {
	s := &KernelSource{session: session}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fetch implements completer.Source.
func (s *KernelSource) Fetch(ctx context.Context, req completer.Request) (completer.Reply, error) {
	var kernel completer.Kernel
	if s.session != nil {
		kernel = s.session.Kernel()
	}
	if kernel == nil {
		return completer.Reply{}, completer.ErrNoKernel
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := kernel.RequestComplete(ctx, req.Text, req.Offset)
	if err != nil {
		return completer.Reply{}, fmt.Errorf("complete request: %w", err)
	}
	if resp == nil || resp.Status != "ok" {
		status := ""
		if resp != nil {
			status = resp.Status
		}
		return completer.Reply{}, fmt.Errorf("%w: status %q", completer.ErrFetchFailed, status)
	}

	return completer.Reply{
		Start: resp.CursorStart,
		End:   resp.CursorEnd,
		Items: matchItems(resp.Matches, resp.Metadata),
	}, nil
}

// matchItems builds items from kernel matches. A match with a metadata
// entry gets its type and insert text; one without stays label-only.
// Repeated matches keep their first occurrence.
func matchItems(matches []string, metadata map[string]any) []completer.Item {
	types, _ := metadata[typesKey].([]any)

	seen := make(map[string]struct{}, len(matches))
	items := make([]completer.Item, 0, len(matches))
	for i, label := range matches {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}

		item := completer.Item{Label: label}
		if i < len(types) {
			if meta, ok := types[i].(map[string]any); ok {
				item.Type, _ = meta["type"].(string)
				item.InsertText, _ = meta["text"].(string)
			}
		}
		items = append(items, item)
	}

	return items
}
