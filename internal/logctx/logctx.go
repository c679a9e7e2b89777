// Package logctx carries request-scoped log attributes through a
// context.Context. Wrap any slog.Handler in Handler and the HTTP request,
// session, JSON-RPC message and invoked capability attached to the context
// are emitted as the req, sess, rpc and call groups.
package logctx

import (
	"context"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

// Handler decorates records with the context groups before delegating.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
			slog.String("user_id", sd.UserID),
			slog.String("protocol_version", sd.ProtocolVersion),
			slog.String("state", string(sd.State)),
		))
	}
	if msg, ok := ctx.Value(rpcMessageKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}
	if cd, ok := ctx.Value(callDataKey{}).(*CallData); ok {
		r.AddAttrs(slog.Group("call",
			slog.String("kind", string(cd.Kind)),
			slog.String("target", cd.Target),
		))
	}
	return h.Handler.Handle(ctx, r)
}

// Wrap decorates h unless it is already decorated, so loggers handed
// between packages never emit the context groups twice.
func Wrap(h slog.Handler) slog.Handler {
	if _, ok := h.(Handler); ok {
		return h
	}
	return Handler{Handler: h}
}

// WithAttrs keeps the decoration on derived loggers such as
// log.With("module", ...).
func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcMessageKey struct{}

// RPCMessage identifies the JSON-RPC message being handled.
type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMessageKey{}, msg)
}

type requestDataKey struct{}

// RequestData describes the inbound HTTP request. The stdio transport does
// not set it.
type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type sessionDataKey struct{}

type SessionData struct {
	SessionID       string
	UserID          string
	ProtocolVersion string
	State           sessions.SessionState
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

// CallKind distinguishes tool calls from resource reads.
type CallKind string

const (
	CallTool     CallKind = "tool"
	CallResource CallKind = "resource"
)

type callDataKey struct{}

// CallData names the capability a request invokes: a tool name or a
// resource URI.
type CallData struct {
	Kind   CallKind
	Target string
}

func WithCallData(ctx context.Context, data *CallData) context.Context {
	return context.WithValue(ctx, callDataKey{}, data)
}
