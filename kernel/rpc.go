// Package kernel connects to code execution backends and tracks their
// sessions.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/rlch/completer"
)

// MethodComplete is the JSON-RPC method answering complete requests.
const MethodComplete = "complete_request"

// CompleteParams are the params of MethodComplete. CursorPos counts
// characters.
type CompleteParams struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// RPCKernel is a kernel reached over a JSON-RPC connection.
type RPCKernel struct {
	conn   jsonrpc2.Conn
	logger *zap.Logger
}

var _ completer.Kernel = (*RPCKernel)(nil)

// NewRPC creates a kernel using conn. The caller runs conn.
func NewRPC(conn jsonrpc2.Conn, logger *zap.Logger) *RPCKernel {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RPCKernel{conn: conn, logger: logger}
}

// RequestComplete implements completer.Kernel.
func (k *RPCKernel) RequestComplete(ctx context.Context, code string, cursorPos int) (*completer.CompleteReply, error) {
	var reply completer.CompleteReply

	id, err := k.conn.Call(ctx, MethodComplete, &CompleteParams{Code: code, CursorPos: cursorPos}, &reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodComplete, err)
	}

	k.logger.Debug("complete reply",
		zap.String("id", fmt.Sprint(id)),
		zap.String("status", reply.Status),
		zap.Int("matches", len(reply.Matches)),
	)

	return &reply, nil
}

// CompleteFunc answers a complete request on the serving side.
type CompleteFunc func(ctx context.Context, params CompleteParams) (*completer.CompleteReply, error)

// Handler serves MethodComplete with fn. Other methods get MethodNotFound.
func Handler(fn CompleteFunc) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() != MethodComplete {
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}

		var params CompleteParams
		if err := unmarshal(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		resp, err := fn(ctx, params)

		return reply(ctx, resp, err)
	}
}

func unmarshal(req jsonrpc2.Request, v any) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}

	return nil
}
