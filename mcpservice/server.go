package mcpservice

import (
	"context"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

// ServerOption configures a concrete ServerCapabilities implementation.
type ServerOption func(*server)

type server struct {
	staticInfo *mcp.ImplementationInfo

	staticProtocolVersion string
	staticInstructions    *string

	staticResourcesCap ResourcesCapability
	staticToolsCap     ToolsCapability
}

// NewServer builds a ServerCapabilities using functional options.
func NewServer(opts ...ServerOption) ServerCapabilities {
	s := &server{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithServerInfo sets a static server info value.
func WithServerInfo(info mcp.ImplementationInfo) ServerOption {
	return func(s *server) { s.staticInfo = &info }
}

// WithPreferredProtocolVersion sets a static preferred protocol version string.
func WithPreferredProtocolVersion(version string) ServerOption {
	return func(s *server) { s.staticProtocolVersion = version }
}

// WithInstructions sets static human-readable instructions returned during initialize.
func WithInstructions(instr string) ServerOption {
	return func(s *server) { s.staticInstructions = &instr }
}

// WithResourcesCapability wires a ResourcesCapability used for all sessions.
func WithResourcesCapability(cap ResourcesCapability) ServerOption {
	return func(s *server) { s.staticResourcesCap = cap }
}

// WithToolsCapability wires a ToolsCapability used for all sessions.
func WithToolsCapability(cap ToolsCapability) ServerOption {
	return func(s *server) { s.staticToolsCap = cap }
}

// WithRegistry wires both containers of a Registry. An empty container is
// still advertised, so clients may list it and get an empty page.
func WithRegistry(r *Registry) ServerOption {
	return func(s *server) {
		if r == nil {
			return
		}
		s.staticToolsCap = r.Tools()
		s.staticResourcesCap = r.Resources()
	}
}

// GetServerInfo falls back to a generic identity so initialize never
// advertises an empty name.
func (s *server) GetServerInfo(ctx context.Context, session sessions.Session) (mcp.ImplementationInfo, error) {
	if s.staticInfo != nil {
		return *s.staticInfo, nil
	}
	return mcp.ImplementationInfo{Name: "mcp-server", Version: "0.0.0"}, nil
}

func (s *server) GetPreferredProtocolVersion(ctx context.Context) (string, bool, error) {
	if s.staticProtocolVersion != "" {
		return s.staticProtocolVersion, true, nil
	}
	return "", false, nil
}

func (s *server) GetInstructions(ctx context.Context, session sessions.Session) (string, bool, error) {
	if s.staticInstructions != nil {
		return *s.staticInstructions, true, nil
	}
	return "", false, nil
}

func (s *server) GetResourcesCapability(ctx context.Context, session sessions.Session) (ResourcesCapability, bool, error) {
	if s.staticResourcesCap != nil {
		return s.staticResourcesCap, true, nil
	}
	return nil, false, nil
}

func (s *server) GetToolsCapability(ctx context.Context, session sessions.Session) (ToolsCapability, bool, error) {
	if s.staticToolsCap != nil {
		return s.staticToolsCap, true, nil
	}
	return nil, false, nil
}
