// Package lsplog routes a language server's window/logMessage and
// window/showMessage notifications into a zap logger, so server output
// shows up next to the engine's own logs.
package lsplog

import (
	"context"
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Handler returns a jsonrpc2 handler that logs server messages to logger
// and passes every other request to next. A nil next answers with
// MethodNotFound.
func Handler(logger *zap.Logger, next jsonrpc2.Handler) jsonrpc2.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if next == nil {
		next = jsonrpc2.MethodNotFoundHandler
	}

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodWindowLogMessage, protocol.MethodWindowShowMessage:
			var params protocol.LogMessageParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.ParseError, err.Error()))
			}
			Log(logger, params.Type, params.Message)

			return reply(ctx, nil, nil)
		default:
			return next(ctx, reply, req)
		}
	}
}

// Log writes message to logger at the level matching typ.
func Log(logger *zap.Logger, typ protocol.MessageType, message string) {
	if ce := logger.Check(Level(typ), message); ce != nil {
		ce.Write(zap.String("source", "server"))
	}
}

// Level maps an LSP message type to a zap level.
func Level(typ protocol.MessageType) zapcore.Level {
	switch typ {
	case protocol.MessageTypeError:
		return zapcore.ErrorLevel
	case protocol.MessageTypeWarning:
		return zapcore.WarnLevel
	case protocol.MessageTypeInfo:
		return zapcore.InfoLevel
	case protocol.MessageTypeLog:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
