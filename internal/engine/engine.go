// Package engine routes MCP JSON-RPC traffic to a mcpservice.ServerCapabilities.
// It is transport agnostic: stdio and streaminghttp both decode messages,
// resolve the session and hand requests to an Engine.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jsonrpc"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/logctx"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

var (
	// ErrInvalidUserID is returned when a session is requested without a principal.
	ErrInvalidUserID = errors.New("invalid user id")
)

// Engine coordinates session lifecycle and request dispatch.
type Engine struct {
	store *sessions.Store
	srv   mcpservice.ServerCapabilities
	log   *slog.Logger

	inflightMu sync.Mutex
	inflight   map[string]context.CancelCauseFunc // sessionID/reqID -> cancel
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine builds an Engine persisting sessions in store.
func NewEngine(store *sessions.Store, srv mcpservice.ServerCapabilities, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		srv:      srv,
		log:      slog.Default(),
		inflight: make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// InitializeSession performs the initialize handshake: it negotiates the
// protocol version, persists a pending session and builds the
// InitializeResult advertising the server's capabilities.
func (e *Engine) InitializeSession(ctx context.Context, userID string, req *mcp.InitializeRequest) (*sessions.ActiveSession, *mcp.InitializeResult, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("initialize request required")
	}
	if userID == "" {
		return nil, nil, ErrInvalidUserID
	}

	negotiated := mcp.NegotiateProtocolVersion(req.ProtocolVersion)
	if v, ok, err := e.srv.GetPreferredProtocolVersion(ctx); err != nil {
		return nil, nil, fmt.Errorf("get preferred protocol version: %w", err)
	} else if ok && v != "" {
		negotiated = v
	}

	capSet := sessions.CapabilitySet{
		Sampling:    req.Capabilities.Sampling != nil,
		Elicitation: req.Capabilities.Elicitation != nil,
	}
	if req.Capabilities.Roots != nil {
		capSet.Roots = true
		capSet.RootsListChanged = req.Capabilities.Roots.ListChanged
	}

	sess, err := e.store.Create(ctx, sessions.SessionMetadata{
		UserID:          userID,
		ProtocolVersion: negotiated,
		Client:          sessions.ClientInfo{Name: req.ClientInfo.Name, Version: req.ClientInfo.Version},
		Capabilities:    capSet,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = e.store.Delete(context.WithoutCancel(ctx), sess.SessionID())
		}
	}()

	serverInfo, err := e.srv.GetServerInfo(ctx, sess)
	if err != nil {
		return nil, nil, fmt.Errorf("get server info: %w", err)
	}

	initRes := &mcp.InitializeResult{
		ProtocolVersion: negotiated,
		ServerInfo:      serverInfo,
	}

	if instr, ok, err := e.srv.GetInstructions(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("get instructions: %w", err)
	} else if ok {
		initRes.Instructions = instr
	}

	// Registrations are fixed at startup, so listChanged is never advertised.
	if resCap, ok, err := e.srv.GetResourcesCapability(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("get resources capability: %w", err)
	} else if ok && resCap != nil {
		initRes.Capabilities.Resources = &struct {
			ListChanged bool `json:"listChanged"`
			Subscribe   bool `json:"subscribe"`
		}{}
	}

	if toolsCap, ok, err := e.srv.GetToolsCapability(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("get tools capability: %w", err)
	} else if ok && toolsCap != nil {
		initRes.Capabilities.Tools = &struct {
			ListChanged bool `json:"listChanged"`
		}{}
	}

	cleanup = false
	e.log.InfoContext(ctx, "engine.session.created",
		slog.String("session_id", sess.SessionID()),
		slog.String("protocol_version", negotiated),
		slog.String("client", req.ClientInfo.Name),
	)
	return sess, initRes, nil
}

// LoadSession resolves an existing session for userID and refreshes its TTL.
func (e *Engine) LoadSession(ctx context.Context, sessID, userID string) (*sessions.ActiveSession, error) {
	return e.store.LoadForUser(ctx, sessID, userID)
}

// DeleteSession removes a session and cancels its in-flight requests.
func (e *Engine) DeleteSession(ctx context.Context, sessID string) error {
	e.cancelSession(sessID)
	return e.store.Delete(ctx, sessID)
}

// HandleRequest dispatches a request that carries an id. The returned error is
// reserved for failures to encode the response; protocol faults are returned
// as JSON-RPC error responses.
func (e *Engine) HandleRequest(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String(), Type: jsonrpc.TypeRequest})

	switch mcp.Method(req.Method) {
	case mcp.PingMethod:
		return jsonrpc.NewResultResponse(req.ID, &mcp.EmptyResult{})
	case mcp.ToolsListMethod:
		return e.handleToolsList(ctx, sess, req)
	case mcp.ToolsCallMethod:
		return e.handleToolCall(ctx, sess, req)
	case mcp.ResourcesListMethod:
		return e.handleResourcesList(ctx, sess, req)
	case mcp.ResourcesTemplatesListMethod:
		return e.handleResourcesTemplatesList(ctx, sess, req)
	case mcp.ResourcesReadMethod:
		return e.handleResourcesRead(ctx, sess, req)
	case mcp.InitializeMethod:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil), nil
	}

	e.log.InfoContext(ctx, "engine.handle_request.unknown_method", slog.String("method", req.Method))
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method, nil), nil
}

// HandleNotification processes a client notification. Unknown notifications
// are ignored.
func (e *Engine) HandleNotification(ctx context.Context, sess sessions.Session, note *jsonrpc.Request) error {
	switch mcp.Method(note.Method) {
	case mcp.InitializedNotificationMethod:
		if err := e.store.MarkOpen(ctx, sess.SessionID()); err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		e.log.InfoContext(ctx, "engine.session.opened", slog.String("session_id", sess.SessionID()))
	case mcp.CancelledNotificationMethod:
		var params mcp.CancelledNotification
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return fmt.Errorf("decode cancellation: %w", err)
		}
		var id jsonrpc.RequestID
		if err := json.Unmarshal(params.RequestID, &id); err != nil {
			return fmt.Errorf("decode cancelled request id: %w", err)
		}
		if e.cancelRequest(sess.SessionID(), id.String(), params.Reason) {
			e.log.InfoContext(ctx, "engine.request.cancelled", slog.String("request_id", id.String()), slog.String("reason", params.Reason))
		}
	default:
		e.log.DebugContext(ctx, "engine.notification.ignored", slog.String("method", note.Method))
	}
	return nil
}

func (e *Engine) trackRequest(ctx context.Context, sessID string, id *jsonrpc.RequestID) (context.Context, func()) {
	if id.IsNil() {
		return ctx, func() {}
	}
	key := sessID + "/" + id.String()
	reqCtx, cancel := context.WithCancelCause(ctx)

	e.inflightMu.Lock()
	e.inflight[key] = cancel
	e.inflightMu.Unlock()

	return reqCtx, func() {
		e.inflightMu.Lock()
		delete(e.inflight, key)
		e.inflightMu.Unlock()
		cancel(context.Canceled)
	}
}

func (e *Engine) cancelRequest(sessID, reqID, reason string) bool {
	key := sessID + "/" + reqID
	e.inflightMu.Lock()
	cancel, ok := e.inflight[key]
	e.inflightMu.Unlock()
	if !ok {
		return false
	}
	if reason == "" {
		reason = "cancelled by client"
	}
	cancel(errors.New(reason))
	return true
}

func (e *Engine) cancelSession(sessID string) {
	prefix := sessID + "/"
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	for key, cancel := range e.inflight {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			cancel(errors.New("session deleted"))
		}
	}
}

func (e *Engine) handleToolsList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.ListToolsRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
		}
	}

	cap, ok, err := e.srv.GetToolsCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil), nil
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not supported", nil), nil
	}

	page, err := cap.ListTools(ctx, sess, cursorFrom(params.Cursor))
	if err != nil {
		return listFailure(ctx, log, req, start, err), nil
	}

	result := &mcp.ListToolsResult{Tools: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("tool_count", len(page.Items)))
	return jsonrpc.NewResultResponse(req.ID, result)
}

// listFailure maps a list operation error to its JSON-RPC response.
func listFailure(ctx context.Context, log *slog.Logger, req *jsonrpc.Request, start time.Time, err error) *jsonrpc.Response {
	if errors.Is(err, mcpservice.ErrInvalidCursor) {
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid cursor", nil)
	}
	log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
}

func (e *Engine) handleToolCall(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.CallToolRequestReceived
	if err := json.Unmarshal(req.Params, &params); err != nil {
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
	}
	if params.Name == "" {
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", "missing tool name"), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
	}

	ctx = logctx.WithCallData(ctx, &logctx.CallData{Kind: logctx.CallTool, Target: params.Name})

	cap, ok, err := e.srv.GetToolsCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil), nil
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not supported", nil), nil
	}

	toolCtx, done := e.trackRequest(ctx, sess.SessionID(), req.ID)
	defer done()

	res, err := cap.CallTool(toolCtx, sess, &params)
	if err != nil {
		if errors.Is(err, mcpservice.ErrToolNotFound) {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "unknown tool: "+params.Name, nil), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.InfoContext(ctx, "engine.handle_request.cancelled", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "cancelled", nil), nil
		}
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil), nil
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Bool("is_error", res.IsError))
	return jsonrpc.NewResultResponse(req.ID, res)
}

func (e *Engine) handleResourcesList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.ListResourcesRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
		}
	}

	cap, resp := e.resourcesCapability(ctx, log, sess, req, start)
	if resp != nil {
		return resp, nil
	}

	page, err := cap.ListResources(ctx, sess, cursorFrom(params.Cursor))
	if err != nil {
		return listFailure(ctx, log, req, start, err), nil
	}

	result := &mcp.ListResourcesResult{Resources: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("resource_count", len(page.Items)))
	return jsonrpc.NewResultResponse(req.ID, result)
}

func (e *Engine) handleResourcesTemplatesList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.ListResourceTemplatesRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
		}
	}

	cap, resp := e.resourcesCapability(ctx, log, sess, req, start)
	if resp != nil {
		return resp, nil
	}

	page, err := cap.ListResourceTemplates(ctx, sess, cursorFrom(params.Cursor))
	if err != nil {
		return listFailure(ctx, log, req, start, err), nil
	}

	result := &mcp.ListResourceTemplatesResult{ResourceTemplates: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("template_count", len(page.Items)))
	return jsonrpc.NewResultResponse(req.ID, result)
}

func (e *Engine) handleResourcesRead(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.ReadResourceRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
	}
	if params.URI == "" {
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", "missing uri"), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
	}
	ctx = logctx.WithCallData(ctx, &logctx.CallData{Kind: logctx.CallResource, Target: params.URI})

	cap, resp := e.resourcesCapability(ctx, log, sess, req, start)
	if resp != nil {
		return resp, nil
	}

	readCtx, done := e.trackRequest(ctx, sess.SessionID(), req.ID)
	defer done()

	contents, err := cap.ReadResource(readCtx, sess, params.URI)
	if err != nil {
		if errors.Is(err, mcpservice.ErrResourceNotFound) {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeResourceNotFound, "Resource not found", map[string]string{"uri": params.URI}), nil
		}
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil), nil
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("content_count", len(contents)))
	return jsonrpc.NewResultResponse(req.ID, &mcp.ReadResourceResult{Contents: contents})
}

func (e *Engine) resourcesCapability(ctx context.Context, log *slog.Logger, sess sessions.Session, req *jsonrpc.Request, start time.Time) (mcpservice.ResourcesCapability, *jsonrpc.Response) {
	cap, ok, err := e.srv.GetResourcesCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return nil, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return nil, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "resources capability not supported", nil)
	}
	return cap, nil
}

func cursorFrom(c string) *string {
	if c == "" {
		return nil
	}
	return &c
}
