package mcpservice

import (
	"context"
	"errors"
	"testing"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

func staticHandler(text string) ResourceHandler {
	return func(ctx context.Context, _ sessions.Session, uri string, vars map[string]string) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{{URI: uri, MimeType: mcp.MimeTypeJSON, Text: text}}, nil
	}
}

func varsHandler(ctx context.Context, _ sessions.Session, uri string, vars map[string]string) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{{URI: uri, Text: vars["titleSlug"]}}, nil
}

func TestResourcesContainer_ReadFixedAndTemplate(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	if err := rc.RegisterResource(NewResource("tags://problems/all", "problem-tags", staticHandler(`["dp"]`),
		WithResourceDescription("tags"), WithResourceMimeType(mcp.MimeTypeJSON))); err != nil {
		t.Fatal(err)
	}
	if err := rc.RegisterResource(NewResourceTemplate("problem://{titleSlug}", "problem-detail", varsHandler)); err != nil {
		t.Fatal(err)
	}

	got, err := rc.ReadResource(t.Context(), nil, "tags://problems/all")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Text != `["dp"]` || got[0].MimeType != mcp.MimeTypeJSON {
		t.Fatalf("fixed read = %+v", got)
	}

	got, err = rc.ReadResource(t.Context(), nil, "problem://two-sum")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Text != "two-sum" || got[0].URI != "problem://two-sum" {
		t.Fatalf("template read = %+v", got)
	}
}

func TestResourcesContainer_FixedWinsOverTemplate(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	_ = rc.RegisterResource(NewResourceTemplate("problem://{titleSlug}", "problem-detail", varsHandler))
	_ = rc.RegisterResource(NewResource("problem://featured", "featured", staticHandler("fixed")))

	got, err := rc.ReadResource(t.Context(), nil, "problem://featured")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Text != "fixed" {
		t.Fatalf("expected fixed resource to win, got %q", got[0].Text)
	}
}

func TestResourcesContainer_NotFound(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	_ = rc.RegisterResource(NewResourceTemplate("problem://{titleSlug}", "problem-detail", varsHandler))

	_, err := rc.ReadResource(t.Context(), nil, "solution://123")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestResourcesContainer_Duplicates(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	if err := rc.RegisterResource(NewResource("a://x", "a", staticHandler(""))); err != nil {
		t.Fatal(err)
	}
	if err := rc.RegisterResource(NewResourceTemplate("b://{id}", "b", varsHandler)); err != nil {
		t.Fatal(err)
	}

	cases := []StaticResource{
		NewResource("a://x", "a2", staticHandler("")),
		NewResource("a://y", "a", staticHandler("")),
		NewResourceTemplate("b://{id}", "b2", varsHandler),
		NewResourceTemplate("c://{id}", "b", varsHandler),
	}
	for _, c := range cases {
		if err := rc.RegisterResource(c); !errors.Is(err, ErrDuplicateResource) {
			t.Errorf("RegisterResource(%s) = %v, want ErrDuplicateResource", c.Name(), err)
		}
	}
	if len(rc.Resources()) != 1 || len(rc.Templates()) != 1 {
		t.Fatalf("duplicates must not be stored: %d resources, %d templates", len(rc.Resources()), len(rc.Templates()))
	}
}

func TestResourcesContainer_InvalidDefinitions(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	if err := rc.RegisterResource(NewResourceTemplate("problem://{titleSlug", "broken", varsHandler)); err == nil {
		t.Fatal("expected error for malformed template")
	}
	if err := rc.RegisterResource(StaticResource{}); err == nil {
		t.Fatal("expected error for empty resource")
	}
	if err := rc.RegisterResource(NewResource("a://x", "a", nil)); err == nil {
		t.Fatal("expected error for missing handler")
	}
}

func TestResourcesContainer_Listings(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	_ = rc.RegisterResource(NewResource("categories://problems/all", "problem-categories", staticHandler("")))
	_ = rc.RegisterResource(NewResource("tags://problems/all", "problem-tags", staticHandler("")))
	_ = rc.RegisterResource(NewResourceTemplate("solution://{topicId}", "problem-solution", varsHandler))

	res, err := rc.ListResources(t.Context(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 || res.Items[0].Name != "problem-categories" || res.NextCursor != nil {
		t.Fatalf("ListResources = %+v", res)
	}

	tpl, err := rc.ListResourceTemplates(t.Context(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Items) != 1 || tpl.Items[0].URITemplate != "solution://{topicId}" {
		t.Fatalf("ListResourceTemplates = %+v", tpl)
	}
}

func TestRegistry_WiresServer(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	_ = reg.RegisterTool(NewTool("x", echoArgs[levelArgs]))
	_ = reg.RegisterResource(NewResource("a://x", "a", staticHandler("")))

	srv := NewServer(
		WithServerInfo(mcp.ImplementationInfo{Name: "test", Version: "0.0.1"}),
		WithPreferredProtocolVersion(mcp.LatestProtocolVersion),
		WithInstructions("hello"),
		WithRegistry(reg),
	)
	ctx := t.Context()

	info, _ := srv.GetServerInfo(ctx, nil)
	if info.Name != "test" {
		t.Fatalf("info = %+v", info)
	}
	if v, ok, _ := srv.GetPreferredProtocolVersion(ctx); !ok || v != mcp.LatestProtocolVersion {
		t.Fatalf("protocol = %q, %v", v, ok)
	}
	if s, ok, _ := srv.GetInstructions(ctx, nil); !ok || s != "hello" {
		t.Fatalf("instructions = %q, %v", s, ok)
	}
	tools, ok, _ := srv.GetToolsCapability(ctx, nil)
	if !ok || tools != reg.Tools() {
		t.Fatal("tools capability not wired")
	}
	resources, ok, _ := srv.GetResourcesCapability(ctx, nil)
	if !ok || resources != reg.Resources() {
		t.Fatal("resources capability not wired")
	}

	empty := NewServer()
	if _, ok, _ := empty.GetToolsCapability(ctx, nil); ok {
		t.Fatal("empty server must not advertise tools")
	}
}
