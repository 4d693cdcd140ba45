package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

// process is a child speaking JSON-RPC on its stdio.
type process struct {
	cmd    *exec.Cmd
	conn   jsonrpc2.Conn
	logger *zap.Logger
}

func spawn(ctx context.Context, logger *zap.Logger, handler jsonrpc2.Handler, command string, args ...string) (*process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	stream := jsonrpc2.NewStream(&readWriteCloser{stdout, stdin})
	conn := jsonrpc2.NewConn(stream)
	conn.Go(ctx, handler)

	logger.Debug("process started", zap.String("command", command), zap.Int("pid", cmd.Process.Pid))

	return &process{cmd: cmd, conn: conn, logger: logger}, nil
}

// Close closes the connection and waits for the child to exit.
func (p *process) Close() error {
	_ = p.conn.Close()
	<-p.conn.Done()

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.logger.Debug("process exited", zap.Int("code", exitErr.ExitCode()))
		return nil
	}

	return err
}

// readWriteCloser joins the child's stdout and stdin.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
