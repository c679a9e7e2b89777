package mcpservice

import (
	"context"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

// ServerCapabilities is everything the engine needs to answer initialize and
// route tools/* and resources/* requests.
type ServerCapabilities interface {
	// GetServerInfo returns the implementation info surfaced in initialize.
	GetServerInfo(ctx context.Context, session sessions.Session) (mcp.ImplementationInfo, error)

	// GetPreferredProtocolVersion returns the server's preferred MCP protocol
	// version. If ok is false the client's requested version is echoed.
	GetPreferredProtocolVersion(ctx context.Context) (version string, ok bool, err error)

	// GetInstructions returns optional human-readable instructions included in
	// the initialize result.
	GetInstructions(ctx context.Context, session sessions.Session) (instructions string, ok bool, err error)

	GetResourcesCapability(ctx context.Context, session sessions.Session) (cap ResourcesCapability, ok bool, err error)

	GetToolsCapability(ctx context.Context, session sessions.Session) (cap ToolsCapability, ok bool, err error)
}

// ResourcesCapability lists and reads resources. Implementations MUST be safe
// for concurrent use.
type ResourcesCapability interface {
	// ListResources and ListResourceTemplates return ErrInvalidCursor for a
	// cursor they did not issue.
	ListResources(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Resource], error)

	ListResourceTemplates(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.ResourceTemplate], error)

	// ReadResource returns the contents for a resource URI. Unknown URIs
	// return ErrResourceNotFound.
	ReadResource(ctx context.Context, session sessions.Session, uri string) ([]mcp.ResourceContents, error)
}

// ToolsCapability lists and invokes tools. Implementations MUST be safe for
// concurrent use.
type ToolsCapability interface {
	// ListTools returns ErrInvalidCursor for a cursor it did not issue.
	ListTools(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Tool], error)

	// CallTool invokes a named tool. Unknown names return ErrToolNotFound.
	// Argument and execution failures are reported in-band through
	// CallToolResult.IsError rather than as Go errors.
	CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}
