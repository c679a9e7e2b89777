package streaminghttp

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/engine"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jsonrpc"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jwtauth"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/logctx"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/wellknown"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

var (
	_ http.Handler = (*StreamingHTTPHandler)(nil)
)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	// DefaultPath is where the MCP endpoint is mounted unless WithPath is used.
	DefaultPath = "/mcp"
	// AnonymousUserID is the principal used when no authenticator is configured.
	AnonymousUserID = "anonymous"

	mcpSessionIDHeader       = "Mcp-Session-Id"
	mcpProtocolVersionHeader = "Mcp-Protocol-Version"
	authorizationHeader      = "Authorization"
	wwwAuthenticateHeader    = "WWW-Authenticate"
)

// writeJSONError emits a minimal JSON body for HTTP-layer rejections before a
// JSON-RPC exchange is possible. Shape:
// {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// Option configures the StreamingHTTPHandler.
type Option func(*newConfig)

type newConfig struct {
	logger     *slog.Logger
	auth       jwtauth.Authenticator
	realm      string
	path       string
	signingKey ed25519.PrivateKey
	resource   *wellknown.ProtectedResourceMetadata
}

// WithLogger sets the logger used by the handler and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithAuthenticator requires a bearer token on every request. Without it all
// requests run as AnonymousUserID.
func WithAuthenticator(a jwtauth.Authenticator) Option {
	return func(c *newConfig) { c.auth = a }
}

// WithRealm sets the realm advertised in WWW-Authenticate challenges. Empty
// (the default) omits the attribute.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithPath mounts the endpoint somewhere other than DefaultPath.
func WithPath(path string) Option {
	return func(c *newConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithSessionSigningKey sets the Ed25519 key used to sign Mcp-Session-Id
// values. Replicas behind a load balancer must share it; by default an
// ephemeral key is generated per handler.
func WithSessionSigningKey(key ed25519.PrivateKey) Option {
	return func(c *newConfig) { c.signingKey = key }
}

// WithProtectedResource publishes RFC 9728 metadata for the endpoint
// identified by resource (its public URL) and points 401 challenges at it.
func WithProtectedResource(resource string, authorizationServers ...string) Option {
	return func(c *newConfig) {
		c.resource = &wellknown.ProtectedResourceMetadata{
			Resource:             resource,
			AuthorizationServers: authorizationServers,
		}
	}
}

// buildBearerChallenge builds a Bearer challenge header value:
//
//	Bearer realm="<realm>", error="...", error_description="..."
func buildBearerChallenge(realm, errCode, desc string) string {
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace
	var pieces []string
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if errCode != "" {
		pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(errCode)))
	}
	if desc != "" {
		pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(desc)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// StreamingHTTPHandler implements the Streamable HTTP transport of the Model
// Context Protocol for request/response traffic.
type StreamingHTTPHandler struct {
	mux    *http.ServeMux
	log    *slog.Logger
	auth   jwtauth.Authenticator
	eng    *engine.Engine
	signer *sessionSigner
	realm  string
	// metadataURL is advertised as resource_metadata in challenges.
	metadataURL string

	closing   chan struct{}
	closeOnce sync.Once
}

// New constructs a StreamingHTTPHandler serving server with sessions kept in
// store.
func New(server mcpservice.ServerCapabilities, store *sessions.Store, opts ...Option) (*StreamingHTTPHandler, error) {
	if server == nil {
		return nil, fmt.Errorf("server is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	cfg := &newConfig{logger: slog.Default(), path: DefaultPath}
	for _, opt := range opts {
		opt(cfg)
	}

	signer, err := newSessionSigner(cfg.signingKey)
	if err != nil {
		return nil, err
	}

	log := slog.New(logctx.Wrap(cfg.logger.Handler())).With(slog.String("module", "streaminghttp"))
	h := &StreamingHTTPHandler{
		log:     log,
		auth:    cfg.auth,
		eng:     engine.NewEngine(store, server, engine.WithLogger(log)),
		signer:  signer,
		realm:   cfg.realm,
		closing: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+cfg.path, h.handlePostMCP)
	mux.HandleFunc("GET "+cfg.path, h.handleGetMCP)
	mux.HandleFunc("DELETE "+cfg.path, h.handleDeleteMCP)
	if cfg.resource != nil {
		metaURL, err := wellknown.MetadataURL(cfg.resource.Resource)
		if err != nil {
			return nil, fmt.Errorf("invalid protected resource %q: %w", cfg.resource.Resource, err)
		}
		u, _ := url.Parse(metaURL)
		mux.Handle("GET "+u.Path, wellknown.Handler(*cfg.resource))
		h.metadataURL = metaURL
	}
	h.mux = mux
	return h, nil
}

func (h *StreamingHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handlePostMCP accepts one JSON-RPC message per request. initialize without a
// session header creates a session; requests get a single SSE event carrying
// the response; notifications and responses get 202.
func (h *StreamingHTTPHandler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.DebugContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if len(raw) > 0 && raw[0] == '[' {
		writeJSONError(w, http.StatusBadRequest, "JSON-RPC batch arrays are not supported")
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		return
	}

	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON-RPC message: "+err.Error())
		h.log.WarnContext(ctx, "jsonrpc.message.invalid", slog.String("err", err.Error()))
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})

	header := r.Header.Get(mcpSessionIDHeader)
	if header == "" {
		h.initialize(ctx, w, userID, msg.AsRequest(), start)
		return
	}

	sess, ok := h.loadSession(ctx, w, header, userID)
	if !ok {
		return
	}
	ctx = withSession(ctx, sess)

	if clientPV := r.Header.Get(mcpProtocolVersionHeader); clientPV != "" && clientPV != sess.ProtocolVersion() {
		writeJSONError(w, http.StatusBadRequest, "protocol version mismatch")
		h.log.WarnContext(ctx, "protocol.version.mismatch", slog.String("client_version", clientPV))
		return
	}
	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())

	switch msg.Type() {
	case jsonrpc.TypeResponse:
		w.WriteHeader(http.StatusAccepted)
		h.log.DebugContext(ctx, "response.inbound.ignored")
		return
	case jsonrpc.TypeNotification:
		if err := h.eng.HandleNotification(ctx, sess, msg.AsRequest()); err != nil {
			h.log.WarnContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
		}
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "notification.inbound.ok", slog.Duration("dur", time.Since(start)))
		return
	}

	req := msg.AsRequest()
	if req.Method == string(mcp.InitializeMethod) {
		writeJSONError(w, http.StatusConflict, "session already initialized")
		h.log.WarnContext(ctx, "session.initialize.redundant")
		return
	}
	if r.Header.Get("Accept") != "" {
		if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
			writeJSONError(w, http.StatusNotAcceptable, "client must accept text/event-stream")
			h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", r.Header.Get("Accept")))
			return
		}
	}

	res, err := h.eng.HandleRequest(ctx, sess, req)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.inbound.fail", slog.String("err", err.Error()))
		res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal server error", nil)
	}
	b, err := json.Marshal(res)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		h.log.ErrorContext(ctx, "rpc.response.marshal.fail", slog.String("err", err.Error()))
		return
	}

	setEventStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := writeSSEEvent(w, b); err != nil {
		h.log.ErrorContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "rpc.inbound.ok", slog.Duration("dur", time.Since(start)))
}

func (h *StreamingHTTPHandler) initialize(ctx context.Context, w http.ResponseWriter, userID string, req *jsonrpc.Request, start time.Time) {
	if req == nil || req.IsNotification() || req.Method != string(mcp.InitializeMethod) {
		writeJSONError(w, http.StatusBadRequest, "missing mcp-session-id header; expected initialize request")
		h.log.InfoContext(ctx, "session.initialize.invalid")
		return
	}
	var initReq mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &initReq); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid initialize params")
		h.log.InfoContext(ctx, "session.initialize.params.fail", slog.String("err", err.Error()))
		return
	}

	sess, initRes, err := h.eng.InitializeSession(ctx, userID, &initReq)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to initialize session")
		h.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		return
	}
	ctx = withSession(ctx, sess)

	token, err := h.signer.Sign(sess.SessionID())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to issue session id")
		h.log.ErrorContext(ctx, "session.sign.fail", slog.String("err", err.Error()))
		return
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode initialize response")
		h.log.ErrorContext(ctx, "session.initialize.encode.fail", slog.String("err", err.Error()))
		return
	}
	w.Header().Set(mcpSessionIDHeader, token)
	w.Header().Set(mcpProtocolVersionHeader, initRes.ProtocolVersion)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.ErrorContext(ctx, "session.initialize.write.fail", slog.String("err", err.Error()))
	}
	h.log.InfoContext(ctx, "session.initialize.ok", slog.Duration("dur", time.Since(start)))
}

// handleGetMCP opens an idle event stream for an established session. The
// server never pushes unsolicited messages, so the stream only ends when the
// client goes away.
func (h *StreamingHTTPHandler) handleGetMCP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		writeJSONError(w, http.StatusNotAcceptable, "client must accept text/event-stream")
		h.log.WarnContext(ctx, "http.get.unsupported_media_type")
		return
	}
	f, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		return
	}

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		return
	}
	header := r.Header.Get(mcpSessionIDHeader)
	if header == "" {
		writeJSONError(w, http.StatusBadRequest, "missing mcp-session-id header")
		h.log.WarnContext(ctx, "session.id.missing")
		return
	}
	sess, ok := h.loadSession(ctx, w, header, userID)
	if !ok {
		return
	}
	ctx = withSession(ctx, sess)

	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())
	setEventStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	f.Flush()

	h.log.InfoContext(ctx, "sse.stream.start")
	select {
	case <-ctx.Done():
	case <-h.closing:
	}
	h.log.InfoContext(ctx, "sse.stream.end")
}

// CloseStreams ends every open GET stream and makes new ones return
// immediately. http.Server.Shutdown does not cancel active requests, so
// register it with RegisterOnShutdown or shutdown waits for idle streams.
func (h *StreamingHTTPHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// handleDeleteMCP terminates a session.
func (h *StreamingHTTPHandler) handleDeleteMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		return
	}
	header := r.Header.Get(mcpSessionIDHeader)
	if header == "" {
		writeJSONError(w, http.StatusBadRequest, "missing mcp-session-id header")
		h.log.WarnContext(ctx, "delete.missing_session_id")
		return
	}
	sess, ok := h.loadSession(ctx, w, header, userID)
	if !ok {
		return
	}
	ctx = withSession(ctx, sess)

	if err := h.eng.DeleteSession(ctx, sess.SessionID()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to delete session")
		h.log.ErrorContext(ctx, "session.delete.fail", slog.String("err", err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "http.delete.ok", slog.Duration("dur", time.Since(start)))
}

// loadSession verifies the signed header and loads the session for userID.
// It writes the HTTP error itself and reports false on failure.
func (h *StreamingHTTPHandler) loadSession(ctx context.Context, w http.ResponseWriter, header, userID string) (*sessions.ActiveSession, bool) {
	sessID, err := h.signer.Verify(header)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "session not found")
		h.log.InfoContext(ctx, "session.token.invalid", slog.String("err", err.Error()))
		return nil, false
	}
	sess, err := h.eng.LoadSession(ctx, sessID, userID)
	switch {
	case err == nil:
		return sess, true
	case errors.Is(err, sessions.ErrSessionNotFound), errors.Is(err, sessions.ErrUserMismatch):
		writeJSONError(w, http.StatusNotFound, "session not found")
		h.log.InfoContext(ctx, "session.load.miss", slog.String("session_id", sessID))
	default:
		writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		h.log.ErrorContext(ctx, "session.load.fail", slog.String("session_id", sessID), slog.String("err", err.Error()))
	}
	return nil, false
}

// checkAuthentication resolves the principal for r. On failure it writes the
// challenge and reports false.
func (h *StreamingHTTPHandler) checkAuthentication(ctx context.Context, r *http.Request, w http.ResponseWriter) (string, bool) {
	if h.auth == nil {
		return AnonymousUserID, true
	}

	authHeader := r.Header.Get(authorizationHeader)
	if authHeader == "" {
		h.log.InfoContext(ctx, "auth.check.missing")
		w.Header().Add(wwwAuthenticateHeader, h.challenge("", ""))
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}

	const bearerPrefix = "Bearer "
	tok := ""
	if len(authHeader) > len(bearerPrefix) && strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		tok = strings.TrimSpace(authHeader[len(bearerPrefix):])
	}
	if tok == "" {
		h.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "malformed bearer authorization header"))
		w.Header().Add(wwwAuthenticateHeader, h.challenge("invalid_request", "malformed bearer authorization header"))
		writeJSONError(w, http.StatusBadRequest, "malformed bearer authorization header")
		return "", false
	}

	userInfo, err := h.auth.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, jwtauth.ErrUnauthorized) {
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, h.challenge("invalid_token", "the access token is invalid"))
			writeJSONError(w, http.StatusUnauthorized, "invalid access token")
			return "", false
		}
		h.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "authentication failed")
		return "", false
	}
	return userInfo.UserID(), true
}

func (h *StreamingHTTPHandler) challenge(errCode, desc string) string {
	c := buildBearerChallenge(h.realm, errCode, desc)
	if h.metadataURL == "" {
		return c
	}
	attr := `resource_metadata="` + h.metadataURL + `"`
	if c == "Bearer" {
		return c + " " + attr
	}
	return c + ", " + attr
}

func withSession(ctx context.Context, sess *sessions.ActiveSession) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.SessionID(),
		UserID:          sess.UserID(),
		ProtocolVersion: sess.ProtocolVersion(),
		State:           sess.Metadata().State,
	})
}

func setEventStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeSSEEvent writes payload as the data field of a single event and
// flushes when the writer supports it.
func writeSSEEvent(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
