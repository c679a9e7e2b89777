package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jsonrpc"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage/memory"
)

type echoArgs struct {
	Message string `json:"message"`
}

type blockArgs struct{}

func newTestEngine(t *testing.T, started chan<- struct{}) (*Engine, *sessions.Store) {
	t.Helper()

	backend, err := memory.New(128)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	store := sessions.NewStore(backend)

	reg := mcpservice.NewRegistry()
	mustRegister(t, reg.RegisterTool(mcpservice.NewTool("echo", func(ctx context.Context, _ sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[echoArgs]) error {
		return w.AppendText(r.Args().Message)
	})))
	mustRegister(t, reg.RegisterTool(mcpservice.NewTool("block", func(ctx context.Context, _ sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[blockArgs]) error {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	})))
	mustRegister(t, reg.RegisterResource(mcpservice.NewResource("tags://problems/all", "problem-tags",
		func(ctx context.Context, _ sessions.Session, uri string, _ map[string]string) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{{URI: uri, MimeType: mcp.MimeTypeJSON, Text: `["array"]`}}, nil
		})))

	srv := mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "leetcode-mcp", Version: "1.0.0"}),
		mcpservice.WithRegistry(reg),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(store, srv, WithLogger(logger)), store
}

func mustRegister(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("register: %v", err)
	}
}

func initialize(t *testing.T, e *Engine) *sessions.ActiveSession {
	t.Helper()
	sess, res, err := e.InitializeSession(t.Context(), "user-1", &mcp.InitializeRequest{
		ProtocolVersion: "2025-03-26",
		ClientInfo:      mcp.ImplementationInfo{Name: "test-client", Version: "0.1"},
	})
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if res.ServerInfo.Name != "leetcode-mcp" {
		t.Fatalf("server info = %+v", res.ServerInfo)
	}
	return sess
}

func request(t *testing.T, e *Engine, sess sessions.Session, id int, method string, params any) *jsonrpc.Response {
	t.Helper()
	req := &jsonrpc.Request{JSONRPCVersion: jsonrpc.ProtocolVersion, Method: method, ID: jsonrpc.NewRequestID(id)}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		req.Params = b
	}
	res, err := e.HandleRequest(t.Context(), sess, req)
	if err != nil {
		t.Fatalf("HandleRequest(%s): %v", method, err)
	}
	if res.ID.String() != req.ID.String() {
		t.Fatalf("response id %q does not echo request id %q", res.ID.String(), req.ID.String())
	}
	return res
}

func TestInitializeSession_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, nil)

	for _, requested := range []string{"1999-01-01", ""} {
		_, res, err := e.InitializeSession(t.Context(), "user-1", &mcp.InitializeRequest{ProtocolVersion: requested})
		if err != nil {
			t.Fatal(err)
		}
		if res.ProtocolVersion != mcp.LatestProtocolVersion {
			t.Fatalf("requested %q: negotiated %q, want %q", requested, res.ProtocolVersion, mcp.LatestProtocolVersion)
		}
	}
}

func TestInitializeSession(t *testing.T) {
	t.Parallel()
	e, store := newTestEngine(t, nil)

	sess, res, err := e.InitializeSession(t.Context(), "user-1", &mcp.InitializeRequest{ProtocolVersion: "2025-03-26"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ProtocolVersion != "2025-03-26" {
		t.Fatalf("expected client version to be echoed, got %q", res.ProtocolVersion)
	}
	if res.Capabilities.Tools == nil {
		t.Fatalf("tools capability not advertised: %+v", res.Capabilities)
	}
	if res.Capabilities.Resources == nil {
		t.Fatal("resources capability not advertised")
	}
	if res.Capabilities.Tools.ListChanged || res.Capabilities.Resources.ListChanged {
		t.Fatalf("listChanged advertised without notifications: %+v", res.Capabilities)
	}

	loaded, err := store.Load(t.Context(), sess.SessionID())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Metadata().State != sessions.StatePending {
		t.Fatalf("state = %q", loaded.Metadata().State)
	}

	if _, _, err := e.InitializeSession(t.Context(), "", &mcp.InitializeRequest{}); err != ErrInvalidUserID {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestInitializedNotificationOpensSession(t *testing.T) {
	t.Parallel()
	e, store := newTestEngine(t, nil)
	sess := initialize(t, e)

	note, _ := jsonrpc.NewNotification(string(mcp.InitializedNotificationMethod), nil)
	if err := e.HandleNotification(t.Context(), sess, note); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(t.Context(), sess.SessionID())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Metadata().State != sessions.StateOpen {
		t.Fatalf("state = %q", loaded.Metadata().State)
	}
}

func TestHandleRequest_Routing(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, nil)
	sess := initialize(t, e)

	if res := request(t, e, sess, 1, "ping", nil); res.Error != nil || string(res.Result) != "{}" {
		t.Fatalf("ping = %+v", res)
	}

	res := request(t, e, sess, 2, "tools/list", nil)
	var tools mcp.ListToolsResult
	if err := json.Unmarshal(res.Result, &tools); err != nil {
		t.Fatal(err)
	}
	if len(tools.Tools) != 2 || tools.Tools[0].Name != "echo" {
		t.Fatalf("tools = %+v", tools.Tools)
	}

	res = request(t, e, sess, 3, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{"message": "hi"}})
	var call mcp.CallToolResult
	if err := json.Unmarshal(res.Result, &call); err != nil {
		t.Fatal(err)
	}
	if call.IsError || call.Content[0].Text != "hi" {
		t.Fatalf("call = %+v", call)
	}

	res = request(t, e, sess, 4, "resources/read", map[string]any{"uri": "tags://problems/all"})
	var read mcp.ReadResourceResult
	if err := json.Unmarshal(res.Result, &read); err != nil {
		t.Fatal(err)
	}
	if len(read.Contents) != 1 || read.Contents[0].Text != `["array"]` {
		t.Fatalf("read = %+v", read)
	}

	res = request(t, e, sess, 5, "resources/list", nil)
	var list mcp.ListResourcesResult
	_ = json.Unmarshal(res.Result, &list)
	if len(list.Resources) != 1 {
		t.Fatalf("resources = %+v", list.Resources)
	}

	res = request(t, e, sess, 6, "resources/templates/list", nil)
	var tpl mcp.ListResourceTemplatesResult
	_ = json.Unmarshal(res.Result, &tpl)
	if tpl.ResourceTemplates == nil {
		t.Fatalf("expected empty, non-nil templates list: %s", res.Result)
	}
}

func TestHandleRequest_ProtocolErrors(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, nil)
	sess := initialize(t, e)

	cases := []struct {
		name   string
		method string
		params any
		code   jsonrpc.ErrorCode
	}{
		{"unknown method", "prompts/list", nil, jsonrpc.ErrorCodeMethodNotFound},
		{"unknown tool", "tools/call", map[string]any{"name": "nope"}, jsonrpc.ErrorCodeInvalidParams},
		{"missing tool name", "tools/call", map[string]any{}, jsonrpc.ErrorCodeInvalidParams},
		{"bad call params", "tools/call", []int{1}, jsonrpc.ErrorCodeInvalidParams},
		{"unknown uri", "resources/read", map[string]any{"uri": "problem://x"}, jsonrpc.ErrorCodeResourceNotFound},
		{"missing uri", "resources/read", map[string]any{}, jsonrpc.ErrorCodeInvalidParams},
		{"repeat initialize", "initialize", map[string]any{}, jsonrpc.ErrorCodeInvalidRequest},
		{"malformed tools cursor", "tools/list", map[string]any{"cursor": "garbage"}, jsonrpc.ErrorCodeInvalidParams},
		{"negative resources cursor", "resources/list", map[string]any{"cursor": "-1"}, jsonrpc.ErrorCodeInvalidParams},
		{"templates cursor past end", "resources/templates/list", map[string]any{"cursor": "999"}, jsonrpc.ErrorCodeInvalidParams},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := request(t, e, sess, 100+i, tc.method, tc.params)
			if res.Error == nil {
				t.Fatalf("expected error, got result %s", res.Result)
			}
			if res.Error.Code != tc.code {
				t.Fatalf("code = %d, want %d (%s)", res.Error.Code, tc.code, res.Error.Message)
			}
		})
	}
}

func TestToolArgumentErrorsAreInBand(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, nil)
	sess := initialize(t, e)

	res := request(t, e, sess, 1, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{}})
	if res.Error != nil {
		t.Fatalf("expected in-band error, got JSON-RPC error %+v", res.Error)
	}
	var call mcp.CallToolResult
	_ = json.Unmarshal(res.Result, &call)
	if !call.IsError {
		t.Fatalf("expected isError result, got %+v", call)
	}
}

func TestCancelledNotificationStopsTool(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	e, _ := newTestEngine(t, started)
	sess := initialize(t, e)

	done := make(chan *jsonrpc.Response, 1)
	go func() {
		req := &jsonrpc.Request{
			JSONRPCVersion: jsonrpc.ProtocolVersion,
			Method:         "tools/call",
			Params:         json.RawMessage(`{"name":"block"}`),
			ID:             jsonrpc.NewRequestID("req-7"),
		}
		res, _ := e.HandleRequest(context.Background(), sess, req)
		done <- res
	}()

	<-started
	note, _ := jsonrpc.NewNotification(string(mcp.CancelledNotificationMethod), map[string]any{"requestId": "req-7", "reason": "user abort"})
	if err := e.HandleNotification(t.Context(), sess, note); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.Error == nil || res.Error.Message != "cancelled" {
			t.Fatalf("expected cancelled error, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tool was not cancelled")
	}
}

func TestLoadAndDeleteSession(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, nil)
	sess := initialize(t, e)

	if _, err := e.LoadSession(t.Context(), sess.SessionID(), "user-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LoadSession(t.Context(), sess.SessionID(), "someone-else"); err == nil {
		t.Fatal("expected user mismatch")
	}
	if err := e.DeleteSession(t.Context(), sess.SessionID()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LoadSession(t.Context(), sess.SessionID(), "user-1"); err == nil {
		t.Fatal("expected deleted session to be gone")
	}
}
