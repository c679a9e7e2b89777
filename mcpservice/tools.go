package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/invopop/jsonschema"
)

var (
	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("mcpservice: duplicate tool name")
	// ErrToolNotFound is returned by CallTool for an unknown tool name.
	ErrToolNotFound = errors.New("mcpservice: tool not found")
)

// DefaultPageSize bounds list responses of the static containers.
const DefaultPageSize = 50

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// ToolRequest carries the decoded arguments of a tool call.
type ToolRequest[A any] struct {
	name string
	args A
}

func (r *ToolRequest[A]) Name() string { return r.name }
func (r *ToolRequest[A]) Args() A      { return r.args }

// Defaulter is implemented by argument structs that pre-populate optional
// fields. SetDefaults runs on the zero value before the call arguments are
// decoded over it.
type Defaulter interface {
	SetDefaults()
}

// Validator is implemented by argument structs with checks beyond what the
// reflected schema expresses. Validate runs after decoding.
type Validator interface {
	Validate() error
}

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	title       string
	description string
	annotations *mcp.ToolAnnotations
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolTitle sets a human-friendly display title.
func WithToolTitle(title string) ToolOption {
	return func(c *toolConfig) { c.title = title }
}

// WithToolAnnotations attaches behavioral hints.
func WithToolAnnotations(a mcp.ToolAnnotations) ToolOption {
	return func(c *toolConfig) { c.annotations = &a }
}

// NewTool builds a StaticTool from a typed argument struct A.
//
// The input schema is reflected from A with invopop/jsonschema: fields without
// omitempty are required, `jsonschema:"enum=..."` restricts values and
// `jsonschema:"default=..."` documents defaults. Unknown fields are rejected.
// At call time the raw arguments are validated against that schema, defaults
// are applied through Defaulter, and the result is decoded into A. Argument problems produce an
// IsError result whose text starts with "invalid arguments:".
func NewTool[A any](name string, fn func(ctx context.Context, session sessions.Session, w ToolResponseWriter, r *ToolRequest[A]) error, opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	input := reflectToMCPInputSchema[A]()
	desc := mcp.Tool{
		Name:        name,
		Title:       cfg.title,
		Description: cfg.description,
		InputSchema: input,
		Annotations: cfg.annotations,
	}

	handler := func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
		a, err := decodeArguments[A](input, req.Arguments)
		if err != nil {
			return Errorf("invalid arguments: %v", err), nil
		}
		w := newToolResponseWriter(ctx)
		r := &ToolRequest[A]{name: req.Name, args: a}
		if err := fn(ctx, session, w, r); err != nil {
			return nil, err
		}
		return w.Result(), nil
	}

	return StaticTool{Descriptor: desc, Handler: handler}
}

func decodeArguments[A any](schema mcp.ToolInputSchema, raw json.RawMessage) (A, error) {
	var a A
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}
	if err := validateArguments(schema, raw); err != nil {
		return a, err
	}
	if d, ok := any(&a).(Defaulter); ok {
		d.SetDefaults()
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if !schema.AdditionalProperties {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&a); err != nil {
		return a, err
	}
	if v, ok := any(&a).(Validator); ok {
		if err := v.Validate(); err != nil {
			return a, err
		}
	}
	return a, nil
}

// reflectToMCPInputSchema reflects A into the simplified mcp.ToolInputSchema.
// The schema is closed: additionalProperties is always false.
func reflectToMCPInputSchema[A any]() mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(A))

	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]mcp.SchemaProperty{},
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toMCPProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Default:     s.Default,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toMCPProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

// ToolsContainer owns a threadsafe, ordered set of tools and dispatches calls
// to them. It implements ToolsCapability.
type ToolsContainer struct {
	mu       sync.RWMutex
	tools    []mcp.Tool
	handlers map[string]ToolHandler
	pageSize int
}

var _ ToolsCapability = (*ToolsContainer)(nil)

// NewToolsContainer constructs an empty ToolsContainer.
func NewToolsContainer() *ToolsContainer {
	return &ToolsContainer{
		handlers: make(map[string]ToolHandler),
		pageSize: DefaultPageSize,
	}
}

// SetPageSize sets the pagination size used by ListTools. A non-positive
// value is ignored.
func (st *ToolsContainer) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	st.mu.Lock()
	st.pageSize = n
	st.mu.Unlock()
}

// RegisterTool adds a tool. Registering a name twice returns
// ErrDuplicateTool and leaves the container unchanged.
func (st *ToolsContainer) RegisterTool(def StaticTool) error {
	name := def.Descriptor.Name
	if name == "" {
		return fmt.Errorf("mcpservice: tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("mcpservice: tool %q has no handler", name)
	}

	st.mu.Lock()
	if _, exists := st.handlers[name]; exists {
		st.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	st.tools = append(st.tools, def.Descriptor)
	st.handlers[name] = def.Handler
	st.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current tool descriptors in registration order.
func (st *ToolsContainer) Snapshot() []mcp.Tool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]mcp.Tool, len(st.tools))
	copy(out, st.tools)
	return out
}

// Len reports the number of registered tools.
func (st *ToolsContainer) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.tools)
}

func (st *ToolsContainer) ListTools(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Tool], error) {
	st.mu.RLock()
	pageSize := st.pageSize
	st.mu.RUnlock()
	return paginate(st.Snapshot(), cursor, pageSize)
}

func (st *ToolsContainer) CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	st.mu.RLock()
	h := st.handlers[req.Name]
	st.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, req.Name)
	}
	return h(ctx, session, req)
}

// Errorf returns an error CallToolResult with a single text block and IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: msg}}, IsError: true}
}
