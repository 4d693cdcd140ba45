// Package provider implements the built-in completion provider.
package provider

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/sources"
)

// DefaultID is the ID of the default provider.
const DefaultID = completer.DefaultProviderID

// Source names understood in Options.Sources.
const (
	SourceKernel    = "kernel"
	SourceContext   = "context"
	SourceWorkspace = "workspace"
	SourceLSP       = "lsp"
)

// Options configures a Default provider.
type Options struct {
	// ID overrides DefaultID.
	ID string

	// Sources lists the sources to fetch from, in preference order.
	// Defaults to kernel then context.
	Sources []string

	// Merge joins every source into a single write instead of writing each
	// reply as it arrives. Kernel and context go through a Connector.
	Merge bool

	// When, if set, decides applicability instead of the presence of
	// sources.
	When *Rule

	// Workspace and LSP back the "workspace" and "lsp" sources. They do not
	// depend on the surface, so they are supplied up front.
	Workspace completer.Source
	LSP       completer.Source

	// KernelTimeout bounds each kernel request.
	KernelTimeout time.Duration

	Logger *zap.Logger
}

// Default fetches from the session's kernel and the editor buffer, plus any
// configured workspace and language server sources, and writes each reply
// into the display's model.
type Default struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	display completer.Display
	kernel  completer.Source
	local   completer.Source

	inflight sync.WaitGroup
}

var (
	_ completer.Provider = (*Default)(nil)
	_ completer.Resolver = (*Default)(nil)
)

// New creates a provider.
func New(opts Options) *Default {
	if opts.ID == "" {
		opts.ID = DefaultID
	}
	if len(opts.Sources) == 0 {
		opts.Sources = []string{SourceKernel, SourceContext}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Default{
		opts:   opts,
		logger: logger.With(zap.String("provider", opts.ID)),
	}
}

// FromConfig builds a provider from its configuration entry.
func FromConfig(cfg completer.ProviderConfig, opts Options) (*Default, error) {
	opts.ID = cfg.ID
	opts.Sources = cfg.Sources
	opts.Merge = cfg.Merge
	if cfg.When != "" {
		rule, err := CompileRule(cfg.When)
		if err != nil {
			return nil, err
		}
		opts.When = rule
	}

	return New(opts), nil
}

// ID implements completer.Provider.
func (p *Default) ID() string { return p.opts.ID }

// SetContext implements completer.Provider. The context source is rebuilt
// for the new editor; the kernel source exists only while there is a
// session.
func (p *Default) SetContext(cc completer.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.display = cc.Display
	p.local = sources.NewContext(cc.Editor)
	p.kernel = nil
	if cc.Session != nil {
		p.kernel = sources.NewKernel(cc.Session, sources.WithTimeout(p.opts.KernelTimeout))
	}
}

// IsApplicable implements completer.Provider.
func (p *Default) IsApplicable(_ context.Context, req completer.Request, cc completer.Context) (bool, error) {
	if p.opts.When != nil {
		return p.opts.When.Eval(req, cc)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.kernel != nil && p.local != nil, nil
}

// Fetch implements completer.Provider. Each source runs on its own
// goroutine; failures are logged and do not affect the other sources.
func (p *Default) Fetch(state completer.TextState, req completer.Request) {
	p.mu.Lock()
	display := p.display
	kernel, local := p.kernel, p.local
	p.mu.Unlock()

	if display == nil {
		return
	}

	if p.opts.Merge {
		p.runMerged(p.mergedSources(kernel, local), display, state, req)
		return
	}

	for _, name := range p.opts.Sources {
		p.run(name, p.source(name, kernel, local), display, state, req)
	}
}

// Resolve implements completer.Resolver. Items carry everything they have
// already, so they are returned unchanged.
func (p *Default) Resolve(_ context.Context, item completer.Item) (completer.Item, error) {
	return item, nil
}

// Wait blocks until every fetch started so far has delivered or failed.
func (p *Default) Wait() {
	p.inflight.Wait()
}

func (p *Default) source(name string, kernel, local completer.Source) completer.Source {
	switch name {
	case SourceKernel:
		return kernel
	case SourceContext:
		return local
	case SourceWorkspace:
		return p.opts.Workspace
	case SourceLSP:
		return p.opts.LSP
	default:
		p.logger.Warn("unknown source", zap.String("source", name))
		return nil
	}
}

// mergedSources resolves the configured sources for a merged fetch. Kernel
// and context collapse into one Connector at the first of them.
func (p *Default) mergedSources(kernel, local completer.Source) []completer.Source {
	connect := kernel != nil && local != nil &&
		slices.Contains(p.opts.Sources, SourceKernel) && slices.Contains(p.opts.Sources, SourceContext)

	var (
		srcs      []completer.Source
		connected bool
	)
	for _, name := range p.opts.Sources {
		if connect && (name == SourceKernel || name == SourceContext) {
			if !connected {
				srcs = append(srcs, p.logged("connector", sources.NewConnector(kernel, local)))
				connected = true
			}
			continue
		}
		if src := p.source(name, kernel, local); src != nil {
			srcs = append(srcs, p.logged(name, src))
		}
	}

	return srcs
}

// logged wraps src so its failures are logged under name.
func (p *Default) logged(name string, src completer.Source) completer.Source {
	return completer.SourceFunc(func(ctx context.Context, req completer.Request) (completer.Reply, error) {
		reply, err := src.Fetch(ctx, req)
		if err != nil {
			p.logger.Warn("fetch failed", zap.String("source", name), zap.Error(err))
		}
		return reply, err
	})
}

func (p *Default) runMerged(srcs []completer.Source, display completer.Display, state completer.TextState, req completer.Request) {
	if len(srcs) == 0 {
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		reply, err := sources.Join(context.Background(), req, srcs...)
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) && len(joined.Unwrap()) == len(srcs) {
			return
		}

		model := display.Model()
		if model == nil {
			return
		}
		model.AddItems(req, state, reply)
	}()
}

func (p *Default) run(name string, src completer.Source, display completer.Display, state completer.TextState, req completer.Request) {
	if src == nil {
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		reply, err := src.Fetch(context.Background(), req)
		if err != nil {
			p.logger.Warn("fetch failed", zap.String("source", name), zap.Error(err))
			return
		}

		model := display.Model()
		if model == nil {
			return
		}
		model.AddItems(req, state, reply)
	}()
}
