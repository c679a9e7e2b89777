package mcpservice

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

type searchArgs struct {
	Slug     string   `json:"slug" jsonschema_description:"Problem slug"`
	Category string   `json:"category,omitempty" jsonschema:"enum=all,enum=algorithms,default=all"`
	Limit    int      `json:"limit,omitempty" jsonschema:"default=10"`
	Tags     []string `json:"tags,omitempty"`
}

func (a *searchArgs) SetDefaults() {
	a.Category = "all"
	a.Limit = 10
	a.Tags = []string{}
}

type levelArgs struct {
	Levels []string `json:"levels,omitempty"`
}

func (a *levelArgs) Validate() error {
	for _, l := range a.Levels {
		if l != "EASY" && l != "HARD" {
			return errors.New("levels must be EASY or HARD")
		}
	}
	return nil
}

func echoArgs[A any](ctx context.Context, _ sessions.Session, w ToolResponseWriter, r *ToolRequest[A]) error {
	b, err := json.Marshal(r.Args())
	if err != nil {
		return err
	}
	return w.AppendText(string(b))
}

func callTool(t *testing.T, c *ToolsContainer, name, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := c.CallTool(t.Context(), nil, &mcp.CallToolRequestReceived{Name: name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatalf("CallTool(%s) error: %v", name, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	return res
}

func newSearchContainer(t *testing.T) *ToolsContainer {
	t.Helper()
	c := NewToolsContainer()
	if err := c.RegisterTool(NewTool("search", echoArgs[searchArgs], WithToolDescription("search things"))); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}
	return c
}

func TestNewTool_SchemaReflection(t *testing.T) {
	t.Parallel()
	tool := NewTool("search", echoArgs[searchArgs], WithToolDescription("search things"), WithToolTitle("Search"))

	d := tool.Descriptor
	if d.Name != "search" || d.Description != "search things" || d.Title != "Search" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.InputSchema.Type != "object" {
		t.Fatalf("schema type = %q", d.InputSchema.Type)
	}
	if d.InputSchema.AdditionalProperties {
		t.Fatal("expected a closed schema")
	}
	if !slices.Equal(d.InputSchema.Required, []string{"slug"}) {
		t.Fatalf("required = %v, want [slug]", d.InputSchema.Required)
	}
	if got := d.InputSchema.Properties["slug"].Description; got != "Problem slug" {
		t.Fatalf("slug description = %q", got)
	}
	cat := d.InputSchema.Properties["category"]
	if len(cat.Enum) != 2 {
		t.Fatalf("category enum = %v", cat.Enum)
	}
	if cat.Default != "all" {
		t.Fatalf("category default = %v", cat.Default)
	}
	if d.InputSchema.Properties["tags"].Items == nil {
		t.Fatal("expected tags items schema")
	}
}

func TestNewTool_AppliesDefaults(t *testing.T) {
	t.Parallel()
	c := newSearchContainer(t)

	res := callTool(t, c, "search", `{"slug":"two-sum"}`)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content[0].Text)
	}
	want := `{"slug":"two-sum","category":"all","limit":10}`
	if res.Content[0].Text != want {
		t.Fatalf("got %s want %s", res.Content[0].Text, want)
	}

	res = callTool(t, c, "search", `{"slug":"x","category":"algorithms","limit":3,"tags":["dp"]}`)
	want = `{"slug":"x","category":"algorithms","limit":3,"tags":["dp"]}`
	if res.Content[0].Text != want {
		t.Fatalf("got %s want %s", res.Content[0].Text, want)
	}
}

func TestNewTool_ValidationFailures(t *testing.T) {
	t.Parallel()
	c := newSearchContainer(t)

	cases := []struct {
		name string
		args string
		want string
	}{
		{"missing required", `{}`, "missing required field(s): slug"},
		{"null required", `{"slug":null}`, "missing required field(s): slug"},
		{"bad enum", `{"slug":"a","category":"nope"}`, `field "category" must be one of`},
		{"unknown field", `{"slug":"a","extra":1}`, `unknown field "extra"`},
		{"wrong type", `{"slug":"a","limit":"ten"}`, "invalid arguments"},
		{"not an object", `[1,2]`, "arguments must be a JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := callTool(t, c, "search", tc.args)
			if !res.IsError {
				t.Fatalf("expected IsError for %s", tc.args)
			}
			text := res.Content[0].Text
			if !strings.HasPrefix(text, "invalid arguments: ") || !strings.Contains(text, tc.want) {
				t.Fatalf("got %q, want it to contain %q", text, tc.want)
			}
		})
	}
}

func TestNewTool_EmptyArgumentsUseDefaults(t *testing.T) {
	t.Parallel()
	c := NewToolsContainer()
	_ = c.RegisterTool(NewTool("levels", echoArgs[levelArgs]))

	for _, raw := range []string{"", "null", "{}"} {
		res := callTool(t, c, "levels", raw)
		if res.IsError {
			t.Fatalf("args %q: unexpected error %s", raw, res.Content[0].Text)
		}
	}
}

func TestNewTool_ValidatorRuns(t *testing.T) {
	t.Parallel()
	c := NewToolsContainer()
	_ = c.RegisterTool(NewTool("levels", echoArgs[levelArgs]))

	res := callTool(t, c, "levels", `{"levels":["EASY","MEDIUM"]}`)
	if !res.IsError || !strings.Contains(res.Content[0].Text, "levels must be EASY or HARD") {
		t.Fatalf("expected validator failure, got %+v", res)
	}
}

func TestNewTool_HandlerErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	c := NewToolsContainer()
	_ = c.RegisterTool(NewTool("fail", func(ctx context.Context, _ sessions.Session, w ToolResponseWriter, r *ToolRequest[levelArgs]) error {
		return boom
	}))
	_, err := c.CallTool(t.Context(), nil, &mcp.CallToolRequestReceived{Name: "fail"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestToolsContainer_RegisterDuplicate(t *testing.T) {
	t.Parallel()
	c := newSearchContainer(t)
	err := c.RegisterTool(NewTool("search", echoArgs[levelArgs]))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("duplicate must not be added, len=%d", c.Len())
	}
}

func TestToolsContainer_RegisterInvalid(t *testing.T) {
	t.Parallel()
	c := NewToolsContainer()
	if err := c.RegisterTool(StaticTool{Descriptor: mcp.Tool{Name: "x"}}); err == nil {
		t.Fatal("expected error for missing handler")
	}
	if err := c.RegisterTool(StaticTool{}); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestToolsContainer_CallUnknown(t *testing.T) {
	t.Parallel()
	c := NewToolsContainer()
	_, err := c.CallTool(t.Context(), nil, &mcp.CallToolRequestReceived{Name: "nope"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestToolsContainer_Pagination(t *testing.T) {
	t.Parallel()
	c := NewToolsContainer()
	c.SetPageSize(2)
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		if err := c.RegisterTool(NewTool(n, echoArgs[levelArgs])); err != nil {
			t.Fatal(err)
		}
	}

	var names []string
	var cursor *string
	pages := 0
	for {
		page, err := c.ListTools(t.Context(), nil, cursor)
		if err != nil {
			t.Fatal(err)
		}
		pages++
		for _, tool := range page.Items {
			names = append(names, tool.Name)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
	if !slices.Equal(names, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("names = %v", names)
	}

	for _, bad := range []string{"garbage", "-1", "6"} {
		if _, err := c.ListTools(t.Context(), nil, &bad); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: expected ErrInvalidCursor, got %v", bad, err)
		}
	}
	end := "5"
	page, err := c.ListTools(t.Context(), nil, &end)
	if err != nil || len(page.Items) != 0 || page.NextCursor != nil {
		t.Fatalf("cursor at end = %+v, %v", page, err)
	}
}
