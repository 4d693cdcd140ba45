package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/completer"
	"github.com/rlch/completer/handler"
	"github.com/rlch/completer/kernel"
	"github.com/rlch/completer/lsplog"
	"github.com/rlch/completer/manager"
	"github.com/rlch/completer/model"
	"github.com/rlch/completer/provider"
	"github.com/rlch/completer/registry"
	"github.com/rlch/completer/sources"
	"github.com/rlch/completer/textbuf"
)

// engine is the completion engine wired from configuration.
type engine struct {
	logger    *zap.Logger
	cfg       *completer.Config
	manager   *manager.Manager
	sessions  *kernel.Sessions
	providers []*provider.Default
	closers   []func(context.Context) error
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// loadConfig reads the --config file, or searches upwards from the working
// directory. A missing config yields the defaults.
func loadConfig(cmd *cli.Command) (*completer.Config, error) {
	if path := cmd.String("config"); path != "" {
		return completer.LoadConfigFile(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	path, err := completer.FindConfig(wd)
	if errors.Is(err, completer.ErrConfigNotFound) {
		return &completer.Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	return completer.LoadConfigFile(path)
}

// newEngine wires the engine for a document at path. scheduler may be nil.
func newEngine(ctx context.Context, cmd *cli.Command, path string, scheduler handler.Scheduler) (*engine, error) {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Bool("stale-guard") {
		cfg.StaleGuard = true
	}

	e := &engine{
		logger:   logger,
		cfg:      cfg,
		sessions: kernel.NewSessions(),
	}

	var opts provider.Options
	opts.Logger = logger

	if k := cfg.Kernel; k != nil && k.Command != "" {
		proc, err := spawn(ctx, logger, lsplog.Handler(logger, nil), k.Command, k.Args...)
		if err != nil {
			return nil, fmt.Errorf("kernel: %w", err)
		}
		e.closers = append(e.closers, func(context.Context) error { return proc.Close() })

		e.sessions.Start(manager.SessionModel{ID: "kernel", Path: path}, kernel.NewRPC(proc.conn, logger))
		opts.KernelTimeout = k.Timeout
	}

	if w := cfg.Workspace; w != nil {
		root := w.Root
		if root == "" {
			root = filepath.Dir(path)
		}
		opts.Workspace = sources.NewWorkspace(root,
			sources.WithExtensions(w.Extensions...),
			sources.WithMaxFiles(w.MaxFiles),
			sources.WithWorkspaceLogger(logger),
		)
	}

	if l := cfg.LSP; l != nil && l.Command != "" {
		src, err := e.startLSP(ctx, l, path)
		if err != nil {
			_ = e.Close(ctx)
			return nil, err
		}
		opts.LSP = src
	}

	var modelOpts []model.Option
	modelOpts = append(modelOpts, model.WithLogger(logger), model.WithMaxItems(cfg.MaxItems))
	if cfg.StaleGuard {
		modelOpts = append(modelOpts, model.WithStaleGuard())
	}

	e.manager = manager.New(manager.Options{
		Registry: registry.New(logger),
		Logger:   logger,
		Sessions: e.sessions,
		DisplayFactory: func() completer.Display {
			return model.NewCompleter(model.New(modelOpts...))
		},
		Scheduler: scheduler,
	})

	for _, pc := range cfg.ProviderConfigs() {
		p, err := provider.FromConfig(pc, opts)
		if err != nil {
			_ = e.Close(ctx)
			return nil, err
		}
		e.manager.Register(p)
		e.providers = append(e.providers, p)
	}

	return e, nil
}

func (e *engine) startLSP(ctx context.Context, cfg *completer.LSPConfig, path string) (*sources.LSPSource, error) {
	proc, err := spawn(ctx, e.logger, lsplog.Handler(e.logger, nil), cfg.Command, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("lsp: %w", err)
	}

	server := protocol.ServerDispatcher(proc.conn, e.logger)
	src := sources.NewLSP(server, path,
		sources.WithLanguageID(cfg.LanguageID),
		sources.WithLSPLogger(e.logger),
	)

	initCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := src.Initialize(initCtx, filepath.Dir(path)); err != nil {
		_ = proc.Close()
		return nil, fmt.Errorf("lsp: %w", err)
	}

	e.closers = append(e.closers, func(ctx context.Context) error {
		err := src.Shutdown(ctx)
		return errors.Join(err, proc.Close())
	})

	return src, nil
}

// open adds a file editor surface for buf.
func (e *engine) open(id, path string, buf *textbuf.Buffer) (*fileSurface, *handler.Handler) {
	surface := newFileSurface(id, path, buf)
	h := e.manager.AddFileEditor(surface)

	return surface, h
}

// wait blocks until every provider's in-flight fetches have landed.
func (e *engine) wait() {
	for _, p := range e.providers {
		p.Wait()
	}
}

// resolve passes item through every provider able to resolve items.
func (e *engine) resolve(ctx context.Context, item completer.Item) completer.Item {
	for _, p := range e.manager.Registry().Providers() {
		r, ok := p.(completer.Resolver)
		if !ok {
			continue
		}
		resolved, err := r.Resolve(ctx, item)
		if err != nil {
			e.logger.Warn("resolve failed", zap.String("provider", p.ID()), zap.Error(err))
			continue
		}
		item = resolved
	}

	return item
}

func (e *engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i](ctx))
	}
	_ = e.logger.Sync()

	return errors.Join(errs...)
}

// displayOf returns the headless display behind h.
func displayOf(h *handler.Handler) *model.Completer {
	c, _ := h.Display().(*model.Completer)
	return c
}
