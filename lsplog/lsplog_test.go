package lsplog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/completer/lsplog"
)

func notify(t *testing.T, h jsonrpc2.Handler, method string, params any) error {
	t.Helper()

	req, err := jsonrpc2.NewNotification(method, params)
	require.NoError(t, err)

	var replied error
	err = h(context.Background(), func(_ context.Context, _ any, err error) error {
		replied = err
		return nil
	}, req)
	require.NoError(t, err)

	return replied
}

func TestHandler_LogsServerMessages(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	h := lsplog.Handler(zap.New(core), nil)

	require.NoError(t, notify(t, h, protocol.MethodWindowLogMessage, &protocol.LogMessageParams{
		Type:    protocol.MessageTypeWarning,
		Message: "index stale",
	}))
	require.NoError(t, notify(t, h, protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: "crashed",
	}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "index stale", entries[0].Message)
	assert.Equal(t, "server", entries[0].ContextMap()["source"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	h := lsplog.Handler(zap.New(core), nil)

	require.NoError(t, notify(t, h, protocol.MethodWindowLogMessage, &protocol.LogMessageParams{
		Type:    protocol.MessageTypeLog,
		Message: "chatter",
	}))
	assert.Zero(t, logs.Len())
}

func TestHandler_Forwards(t *testing.T) {
	t.Parallel()

	var methods []string
	next := func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		methods = append(methods, req.Method())
		return reply(ctx, nil, nil)
	}
	h := lsplog.Handler(nil, next)

	require.NoError(t, notify(t, h, "$/progress", map[string]any{}))
	assert.Equal(t, []string{"$/progress"}, methods)

	err := notify(t, lsplog.Handler(nil, nil), "$/progress", map[string]any{})
	assert.True(t, errors.Is(err, jsonrpc2.ErrMethodNotFound))
}

func TestHandler_BadParams(t *testing.T) {
	t.Parallel()

	err := notify(t, lsplog.Handler(nil, nil), protocol.MethodWindowLogMessage, "not an object")
	require.Error(t, err)
}

func TestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  protocol.MessageType
		want zapcore.Level
	}{
		{protocol.MessageTypeError, zapcore.ErrorLevel},
		{protocol.MessageTypeWarning, zapcore.WarnLevel},
		{protocol.MessageTypeInfo, zapcore.InfoLevel},
		{protocol.MessageTypeLog, zapcore.DebugLevel},
		{protocol.MessageType(42), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lsplog.Level(tt.typ), "Level(%d)", tt.typ)
	}
}
