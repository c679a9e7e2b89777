package capability_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestToolSuccess_CompactWithoutHTMLEscaping(t *testing.T) {
	t.Parallel()
	res := capability.ToolSuccess("Failed to fetch problem", map[string]any{"content": "<p>a & b</p>"})
	if len(res.Content) != 1 || res.Content[0].Type != mcp.ContentTypeText {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
	if got, want := res.Content[0].Text, `{"content":"<p>a & b</p>"}`; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
	if res.IsError {
		t.Fatal("success envelope must not be flagged as error")
	}
}

func TestToolSuccess_UnencodablePayload(t *testing.T) {
	t.Parallel()
	res := capability.ToolSuccess("Failed to fetch problem", map[string]any{"ch": make(chan int)})
	var out map[string]string
	if err := json.Unmarshal([]byte(res.Content[0].Text), &out); err != nil {
		t.Fatalf("failure text is not JSON: %v", err)
	}
	if out["error"] != "Failed to fetch problem" || out["message"] == "" {
		t.Fatalf("unexpected failure payload: %v", out)
	}
}

func TestToolFailure(t *testing.T) {
	t.Parallel()
	res := capability.ToolFailure("Failed to fetch problem details", errors.New("not found"))
	if got, want := res.Content[0].Text, `{"error":"Failed to fetch problem details","message":"not found"}`; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
}

func TestResourceEnvelopes(t *testing.T) {
	t.Parallel()
	ok := capability.ResourceSuccess("problem://two-sum", mcp.MimeTypeJSON, "Failed to fetch problem detail", map[string]string{"titleSlug": "two-sum"})
	if len(ok) != 1 || ok[0].URI != "problem://two-sum" || ok[0].MimeType != mcp.MimeTypeJSON || ok[0].Text != `{"titleSlug":"two-sum"}` {
		t.Fatalf("unexpected success contents: %+v", ok)
	}

	bad := capability.ResourceFailure("problem://x", mcp.MimeTypeJSON, "Failed to fetch problem detail", errors.New("boom"))
	if len(bad) != 1 || bad[0].Text != `{"error":"Failed to fetch problem detail","message":"boom"}` {
		t.Fatalf("unexpected failure contents: %+v", bad)
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	err := capability.AuthRequired("fetch user status")
	if !errors.Is(err, capability.ErrAuthRequired) {
		t.Fatal("expected errors.Is(err, ErrAuthRequired)")
	}
	if err.Error() != "Authentication required to fetch user status" {
		t.Fatalf("message = %q", err.Error())
	}
}

type slugArgs struct {
	Slug string `json:"slug"`
}

func callTool(t *testing.T, tool mcpservice.StaticTool, args string) string {
	t.Helper()
	res, err := tool.Handler(t.Context(), nil, &mcp.CallToolRequestReceived{Name: tool.Descriptor.Name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content element, got %d", len(res.Content))
	}
	return res.Content[0].Text
}

func TestHandleTool(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		fn   capability.ToolFunc[slugArgs]
		want string
	}{
		{
			name: "success",
			fn: func(ctx context.Context, a slugArgs) (any, error) {
				return map[string]string{"slug": a.Slug}, nil
			},
			want: `{"slug":"two-sum"}`,
		},
		{
			name: "failure",
			fn: func(ctx context.Context, a slugArgs) (any, error) {
				return nil, errors.New("upstream down")
			},
			want: `{"error":"Failed to do thing","message":"upstream down"}`,
		},
		{
			name: "panic",
			fn: func(ctx context.Context, a slugArgs) (any, error) {
				panic("kaboom")
			},
			want: `{"error":"Failed to do thing","message":"panic: kaboom"}`,
		},
		{
			name: "raw json payload",
			fn: func(ctx context.Context, a slugArgs) (any, error) {
				return json.RawMessage(`{ "a" : 1 }`), nil
			},
			want: `{"a":1}`,
		},
		{
			name: "unencodable payload",
			fn: func(ctx context.Context, a slugArgs) (any, error) {
				return func() {}, nil
			},
			want: `{"error":"Failed to do thing","message":"encode payload: json: unsupported type: func()"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tool := mcpservice.NewTool("thing", capability.HandleTool(discard, "Failed to do thing", tc.fn))
			if got := callTool(t, tool, `{"slug":"two-sum"}`); got != tc.want {
				t.Fatalf("text = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHandleResource(t *testing.T) {
	t.Parallel()
	h := capability.HandleResource(discard, "Failed to fetch problem detail", mcp.MimeTypeJSON,
		func(ctx context.Context, uri string, vars map[string]string) (any, error) {
			if vars["titleSlug"] == "" {
				panic("missing slug")
			}
			return map[string]string{"titleSlug": vars["titleSlug"]}, nil
		})

	got, err := h(t.Context(), nil, "problem://two-sum", map[string]string{"titleSlug": "two-sum"})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(got) != 1 || got[0].Text != `{"titleSlug":"two-sum"}` || got[0].URI != "problem://two-sum" {
		t.Fatalf("unexpected contents: %+v", got)
	}

	got, err = h(t.Context(), nil, "problem://", map[string]string{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got[0].Text != `{"error":"Failed to fetch problem detail","message":"panic: missing slug"}` {
		t.Fatalf("unexpected failure text: %s", got[0].Text)
	}
}

func TestHandleResource_UnencodablePayloadUsesLabel(t *testing.T) {
	t.Parallel()
	h := capability.HandleResource(discard, "Failed to fetch problem detail", mcp.MimeTypeJSON,
		func(ctx context.Context, uri string, vars map[string]string) (any, error) {
			return map[string]any{"ch": make(chan int)}, nil
		})

	got, err := h(t.Context(), nil, "problem://two-sum", map[string]string{"titleSlug": "two-sum"})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(got[0].Text), &out); err != nil {
		t.Fatalf("failure text is not JSON: %v", err)
	}
	if out["error"] != "Failed to fetch problem detail" || out["message"] == "" {
		t.Fatalf("unexpected failure payload: %v", out)
	}
	if got[0].URI != "problem://two-sum" || got[0].MimeType != mcp.MimeTypeJSON {
		t.Fatalf("unexpected contents: %+v", got[0])
	}
}
