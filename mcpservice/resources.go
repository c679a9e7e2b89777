package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/yosida95/uritemplate/v3"
)

var (
	// ErrDuplicateResource is returned when a resource name, URI or URI
	// template is registered twice.
	ErrDuplicateResource = errors.New("mcpservice: duplicate resource")
	// ErrResourceNotFound is returned by ReadResource when no fixed URI or
	// template matches.
	ErrResourceNotFound = errors.New("mcpservice: resource not found")
)

// ResourceHandler reads a resource. vars holds the URI template variables
// matched from uri; it is empty for fixed resources.
type ResourceHandler func(ctx context.Context, session sessions.Session, uri string, vars map[string]string) ([]mcp.ResourceContents, error)

// StaticResource is one registrable resource: either a fixed URI
// (Descriptor) or a URI template (Template).
type StaticResource struct {
	Descriptor *mcp.Resource
	Template   *mcp.ResourceTemplate
	Handler    ResourceHandler
}

// Name returns the descriptor or template name.
func (r StaticResource) Name() string {
	if r.Template != nil {
		return r.Template.Name
	}
	if r.Descriptor != nil {
		return r.Descriptor.Name
	}
	return ""
}

// ResourceOption configures NewResource and NewResourceTemplate.
type ResourceOption func(*resourceConfig)

type resourceConfig struct {
	description string
	mimeType    string
}

// WithResourceDescription sets the description shown in listings.
func WithResourceDescription(desc string) ResourceOption {
	return func(c *resourceConfig) { c.description = desc }
}

// WithResourceMimeType sets the advertised MIME type.
func WithResourceMimeType(mime string) ResourceOption {
	return func(c *resourceConfig) { c.mimeType = mime }
}

// NewResource builds a fixed-URI resource.
func NewResource(uri, name string, h ResourceHandler, opts ...ResourceOption) StaticResource {
	cfg := resourceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return StaticResource{
		Descriptor: &mcp.Resource{URI: uri, Name: name, Description: cfg.description, MimeType: cfg.mimeType},
		Handler:    h,
	}
}

// NewResourceTemplate builds an RFC 6570 templated resource such as
// "problem://{titleSlug}".
func NewResourceTemplate(pattern, name string, h ResourceHandler, opts ...ResourceOption) StaticResource {
	cfg := resourceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return StaticResource{
		Template: &mcp.ResourceTemplate{URITemplate: pattern, Name: name, Description: cfg.description, MimeType: cfg.mimeType},
		Handler:  h,
	}
}

type templateEntry struct {
	desc     mcp.ResourceTemplate
	compiled *uritemplate.Template
	handler  ResourceHandler
}

// ResourcesContainer owns a threadsafe set of fixed and templated resources.
// It implements ResourcesCapability.
type ResourcesContainer struct {
	mu        sync.RWMutex
	resources []mcp.Resource
	fixed     map[string]ResourceHandler
	templates []templateEntry
	names     map[string]struct{}

	pageSize int
}

var _ ResourcesCapability = (*ResourcesContainer)(nil)

// NewResourcesContainer constructs an empty container.
func NewResourcesContainer() *ResourcesContainer {
	return &ResourcesContainer{
		fixed:    make(map[string]ResourceHandler),
		names:    make(map[string]struct{}),
		pageSize: DefaultPageSize,
	}
}

// SetPageSize sets the pagination size of both listings. A non-positive
// value is ignored.
func (rc *ResourcesContainer) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	rc.mu.Lock()
	rc.pageSize = n
	rc.mu.Unlock()
}

// RegisterResource adds a fixed or templated resource. Names, URIs and
// template strings must be unique; a template that fails to parse is
// rejected.
func (rc *ResourcesContainer) RegisterResource(def StaticResource) error {
	if (def.Descriptor == nil) == (def.Template == nil) {
		return fmt.Errorf("mcpservice: resource must set exactly one of Descriptor or Template")
	}
	name := def.Name()
	if name == "" {
		return fmt.Errorf("mcpservice: resource name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("mcpservice: resource %q has no handler", name)
	}

	var entry *templateEntry
	if def.Template != nil {
		compiled, err := uritemplate.New(def.Template.URITemplate)
		if err != nil {
			return fmt.Errorf("mcpservice: resource %q: invalid uri template %q: %w", name, def.Template.URITemplate, err)
		}
		entry = &templateEntry{desc: *def.Template, compiled: compiled, handler: def.Handler}
	}

	rc.mu.Lock()
	if _, dup := rc.names[name]; dup {
		rc.mu.Unlock()
		return fmt.Errorf("%w: name %s", ErrDuplicateResource, name)
	}
	if entry != nil {
		for _, t := range rc.templates {
			if t.desc.URITemplate == entry.desc.URITemplate {
				rc.mu.Unlock()
				return fmt.Errorf("%w: template %s", ErrDuplicateResource, entry.desc.URITemplate)
			}
		}
		rc.templates = append(rc.templates, *entry)
	} else {
		if _, dup := rc.fixed[def.Descriptor.URI]; dup {
			rc.mu.Unlock()
			return fmt.Errorf("%w: uri %s", ErrDuplicateResource, def.Descriptor.URI)
		}
		rc.resources = append(rc.resources, *def.Descriptor)
		rc.fixed[def.Descriptor.URI] = def.Handler
	}
	rc.names[name] = struct{}{}
	rc.mu.Unlock()
	return nil
}

// Resources returns a copy of the fixed resource descriptors.
func (rc *ResourcesContainer) Resources() []mcp.Resource {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]mcp.Resource, len(rc.resources))
	copy(out, rc.resources)
	return out
}

// Templates returns a copy of the template descriptors.
func (rc *ResourcesContainer) Templates() []mcp.ResourceTemplate {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]mcp.ResourceTemplate, len(rc.templates))
	for i, t := range rc.templates {
		out[i] = t.desc
	}
	return out
}

func (rc *ResourcesContainer) ListResources(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Resource], error) {
	rc.mu.RLock()
	pageSize := rc.pageSize
	rc.mu.RUnlock()
	return paginate(rc.Resources(), cursor, pageSize)
}

func (rc *ResourcesContainer) ListResourceTemplates(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.ResourceTemplate], error) {
	rc.mu.RLock()
	pageSize := rc.pageSize
	rc.mu.RUnlock()
	return paginate(rc.Templates(), cursor, pageSize)
}

// ReadResource resolves uri against fixed resources first, then against
// templates in registration order.
func (rc *ResourcesContainer) ReadResource(ctx context.Context, session sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	h, vars, ok := rc.resolve(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	return h(ctx, session, uri, vars)
}

func (rc *ResourcesContainer) resolve(uri string) (ResourceHandler, map[string]string, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if h, ok := rc.fixed[uri]; ok {
		return h, map[string]string{}, true
	}
	for _, t := range rc.templates {
		values := t.compiled.Match(uri)
		if values == nil {
			continue
		}
		vars := make(map[string]string, len(t.compiled.Varnames()))
		for _, name := range t.compiled.Varnames() {
			vars[name] = values.Get(name).String()
		}
		return t.handler, vars, true
	}
	return nil, nil, false
}
