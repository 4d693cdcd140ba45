package sources

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rlch/completer"
)

// Connector fetches from a kernel source and a context source in parallel
// and merges the replies, preferring the kernel's. It fails when either
// source fails.
type Connector struct {
	kernel completer.Source
	local  completer.Source
}

var _ completer.Source = (*Connector)(nil)

// NewConnector joins a kernel source with a buffer-local one.
func NewConnector(kernel, local completer.Source) *Connector {
	return &Connector{kernel: kernel, local: local}
}

// Fetch implements completer.Source.
func (c *Connector) Fetch(ctx context.Context, req completer.Request) (completer.Reply, error) {
	var kernel, local completer.Reply

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kernel, err = c.kernel.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("kernel: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		local, err = c.local.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return completer.Reply{}, err
	}

	return completer.MergeReplies(kernel, local), nil
}

// Join fetches from every source in parallel and folds the replies left to
// right. Sources that fail are skipped; their errors are joined and returned
// alongside whatever the others produced.
func Join(ctx context.Context, req completer.Request, srcs ...completer.Source) (completer.Reply, error) {
	replies := make([]completer.Reply, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			replies[i], errs[i] = src.Fetch(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	ok := make([]completer.Reply, 0, len(srcs))
	for i, r := range replies {
		if errs[i] == nil {
			ok = append(ok, r)
		}
	}

	return completer.MergeAll(ok...), errors.Join(errs...)
}
