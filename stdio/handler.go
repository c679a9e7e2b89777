package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/engine"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jsonrpc"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/logctx"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage/memory"
)

// fallbackUserID identifies the peer when the UserProvider fails.
const fallbackUserID = "stdio"

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout. It identifies the peer using a UserProvider, which
// defaults to the current OS user.
//
// The handler is transport-only; it delegates all MCP semantics to the provided
// mcpservice.ServerCapabilities.
type Handler struct {
	srv          mcpservice.ServerCapabilities
	r            io.Reader
	w            io.Writer
	l            *slog.Logger
	userProvider UserProvider
	store        *sessions.Store

	wmu sync.Mutex

	smu  sync.RWMutex
	sess *sessions.ActiveSession
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv mcpservice.ServerCapabilities, opts ...Option) *Handler {
	h := &Handler{
		srv:          srv,
		r:            os.Stdin,
		w:            os.Stdout,
		l:            slog.Default(),
		userProvider: OSUserProvider{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It is safe to call at most once per Handler. Messages are
// newline-delimited JSON-RPC objects. Requests are dispatched concurrently;
// notifications are handled in arrival order; writes are serialized.
func (h *Handler) Serve(ctx context.Context) error {
	store := h.store
	if store == nil {
		backend, err := memory.New(16)
		if err != nil {
			return fmt.Errorf("stdio: session storage: %w", err)
		}
		defer backend.Close()
		store = sessions.NewStore(backend, sessions.WithTTL(0))
	}
	eng := engine.NewEngine(store, h.srv, engine.WithLogger(h.l))

	userID, err := h.userProvider.CurrentUserID()
	if err != nil || userID == "" {
		h.l.WarnContext(ctx, "stdio.user.fallback", slog.Any("err", err))
		userID = fallbackUserID
	}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go h.readLoop(lines, readErr, stop)

	var wg sync.WaitGroup
	defer wg.Wait()

	h.l.InfoContext(ctx, "stdio.serve.start", slog.String("user_id", userID))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("stdio: read: %w", err)
			}
			h.l.InfoContext(ctx, "stdio.serve.eof")
			return nil
		case line := <-lines:
			h.handleLine(ctx, eng, userID, line, &wg)
		}
	}
}

func (h *Handler) readLoop(lines chan<- []byte, readErr chan<- error, stop <-chan struct{}) {
	br := bufio.NewReader(h.r)
	for {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			select {
			case lines <- line:
			case <-stop:
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				readErr <- nil
			} else {
				readErr <- err
			}
			return
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, eng *engine.Engine, userID string, line []byte, wg *sync.WaitGroup) {
	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		code, text := jsonrpc.ErrorCodeParseError, "parse error"
		if json.Valid(bytes.TrimSpace(line)) {
			code, text = jsonrpc.ErrorCodeInvalidRequest, "invalid request"
		}
		h.l.InfoContext(ctx, "stdio.message.invalid", slog.String("err", err.Error()))
		h.writeMessage(ctx, jsonrpc.NewErrorResponse(nil, code, text, nil))
		return
	}

	switch msg.Type() {
	case jsonrpc.TypeResponse:
		h.l.DebugContext(ctx, "stdio.response.ignored", slog.String("id", msg.ID.String()))
	case jsonrpc.TypeNotification:
		h.handleNotification(ctx, eng, msg.AsRequest())
	case jsonrpc.TypeRequest:
		req := msg.AsRequest()
		switch mcp.Method(req.Method) {
		case mcp.InitializeMethod:
			h.handleInitialize(ctx, eng, userID, req)
		case mcp.PingMethod:
			res, _ := jsonrpc.NewResultResponse(req.ID, &mcp.EmptyResult{})
			h.writeMessage(ctx, res)
		default:
			sess := h.session()
			if sess == nil {
				h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session not initialized", nil))
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.handleRequest(ctx, eng, sess, req)
			}()
		}
	}
}

func (h *Handler) handleInitialize(ctx context.Context, eng *engine.Engine, userID string, req *jsonrpc.Request) {
	if h.session() != nil {
		h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil))
		return
	}

	var params mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil))
		return
	}

	sess, initRes, err := eng.InitializeSession(ctx, userID, &params)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.initialize.fail", slog.String("err", err.Error()))
		h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil))
		return
	}

	h.smu.Lock()
	h.sess = sess
	h.smu.Unlock()

	res, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.initialize.fail", slog.String("err", err.Error()))
		return
	}
	h.writeMessage(ctx, res)
}

func (h *Handler) handleRequest(ctx context.Context, eng *engine.Engine, sess *sessions.ActiveSession, req *jsonrpc.Request) {
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.SessionID(),
		UserID:          sess.UserID(),
		ProtocolVersion: sess.ProtocolVersion(),
		State:           sess.Metadata().State,
	})
	res, err := eng.HandleRequest(ctx, sess, req)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.request.fail", slog.String("method", req.Method), slog.String("err", err.Error()))
		res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	h.writeMessage(ctx, res)
}

func (h *Handler) handleNotification(ctx context.Context, eng *engine.Engine, note *jsonrpc.Request) {
	sess := h.session()
	if sess == nil {
		h.l.DebugContext(ctx, "stdio.notification.before_initialize", slog.String("method", note.Method))
		return
	}
	if err := eng.HandleNotification(ctx, sess, note); err != nil {
		h.l.WarnContext(ctx, "stdio.notification.fail", slog.String("method", note.Method), slog.String("err", err.Error()))
	}
}

func (h *Handler) session() *sessions.ActiveSession {
	h.smu.RLock()
	defer h.smu.RUnlock()
	return h.sess
}

func (h *Handler) writeMessage(ctx context.Context, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
		return
	}
	b = append(b, '\n')

	h.wmu.Lock()
	defer h.wmu.Unlock()
	if _, err := h.w.Write(b); err != nil {
		h.l.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
	}
}
