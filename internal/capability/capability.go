// Package capability defines the contract shared by tool and resource units
// and the uniform result envelope every unit returns.
//
// A unit is constructed with its dependencies and registers itself against a
// Server. Its handler never fails the protocol call: upstream faults, auth
// short-circuits and panics all degrade to a failure envelope of the form
// {"error": <fixed unit label>, "message": <cause>}.
package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
)

// Server is the registration surface units are bound to.
type Server interface {
	RegisterTool(mcpservice.StaticTool) error
	RegisterResource(mcpservice.StaticResource) error
}

// Tool is a named tool unit.
type Tool interface {
	Name() string
	Description() string
	Register(Server) error
}

// Resource is a resource unit addressed by a URI or URI template.
type Resource interface {
	Name() string
	Description() string
	Register(Server) error
}

// ErrAuthRequired matches errors produced by AuthRequired.
var ErrAuthRequired = errors.New("authentication required")

type authRequiredError struct {
	action string
}

func (e *authRequiredError) Error() string {
	return "Authentication required to " + e.action
}

func (e *authRequiredError) Is(target error) bool {
	return target == ErrAuthRequired
}

// AuthRequired returns the error auth-gated units report when the provider
// has no signed-in session. action completes the sentence, for example
// "fetch user status".
func AuthRequired(action string) error {
	return &authRequiredError{action: action}
}

// Guard runs fn and turns a panic into an error.
func Guard(fn func() (any, error)) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// ToolFunc is the body of a tool unit: it maps validated arguments to a
// payload.
type ToolFunc[A any] func(ctx context.Context, args A) (any, error)

// HandleTool adapts fn into an mcpservice tool handler that always produces
// an envelope. errLabel is the fixed string reported under "error".
func HandleTool[A any](log *slog.Logger, errLabel string, fn ToolFunc[A]) func(context.Context, sessions.Session, mcpservice.ToolResponseWriter, *mcpservice.ToolRequest[A]) error {
	return func(ctx context.Context, _ sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[A]) error {
		payload, err := Guard(func() (any, error) { return fn(ctx, r.Args()) })
		if err != nil {
			log.WarnContext(ctx, "tool.call.fail", slog.String("tool", r.Name()), slog.String("err", err.Error()))
			return w.SetResult(ToolFailure(errLabel, err))
		}
		return w.SetResult(ToolSuccess(errLabel, payload))
	}
}

// ResourceFunc is the body of a resource unit. vars holds the URI template
// variables.
type ResourceFunc func(ctx context.Context, uri string, vars map[string]string) (any, error)

// HandleResource adapts fn into an mcpservice resource handler that always
// produces an envelope with the given MIME type.
func HandleResource(log *slog.Logger, errLabel, mimeType string, fn ResourceFunc) mcpservice.ResourceHandler {
	return func(ctx context.Context, _ sessions.Session, uri string, vars map[string]string) ([]mcp.ResourceContents, error) {
		payload, err := Guard(func() (any, error) { return fn(ctx, uri, vars) })
		if err != nil {
			log.WarnContext(ctx, "resource.read.fail", slog.String("uri", uri), slog.String("err", err.Error()))
			return ResourceFailure(uri, mimeType, errLabel, err), nil
		}
		return ResourceSuccess(uri, mimeType, errLabel, payload), nil
	}
}
