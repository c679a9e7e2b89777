// Package resources contains the LeetCode resource units: the static
// reference lists and the per-problem and per-solution templates.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/catalog"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
)

// Provider is the upstream surface the resource units call.
type Provider interface {
	Problem(ctx context.Context, titleSlug string) (json.RawMessage, error)
	SolutionArticle(ctx context.Context, topicID string) (json.RawMessage, error)
}

var _ Provider = (*leetcode.Client)(nil)

// New constructs every resource unit. dataset is the YAML reference list
// document; nil selects the embedded one. A malformed dataset fails
// construction.
func New(p Provider, log *slog.Logger, dataset []byte) ([]capability.Resource, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("module", "resources"))
	if dataset == nil {
		dataset = catalog.Embedded()
	}
	cat, err := catalog.Parse(dataset)
	if err != nil {
		return nil, err
	}

	return []capability.Resource{
		&staticList{
			name:        "problem-categories",
			uri:         "categories://problems/all",
			description: "A list of all problem classification categories in LeetCode platform. These categories help organize and filter coding problems by topic area. Returns an array of all available problem categories.",
			items:       cat.Categories,
			log:         log,
		},
		&staticList{
			name:        "problem-tags",
			uri:         "tags://problems/all",
			description: "A detailed collection of algorithmic and data structure tags used by LeetCode to categorize problems, such as 'dynamic-programming', 'binary-search', 'array' or 'tree'. Returns an array of all available problem tags for filtering and searching problems.",
			items:       cat.Tags,
			log:         log,
		},
		&staticList{
			name:        "problem-langs",
			uri:         "langs://problems/all",
			description: "A complete list of all programming languages officially supported by LeetCode for code submission and problem solving. Returns an array of all available programming languages on the platform.",
			items:       cat.Langs,
			log:         log,
		},
		&problemDetail{provider: p, log: log},
		&problemSolution{provider: p, log: log},
	}, nil
}

// RegisterAll constructs the resource units from the embedded dataset and
// registers each against server.
func RegisterAll(server capability.Server, p Provider, log *slog.Logger) error {
	units, err := New(p, log, nil)
	if err != nil {
		return fmt.Errorf("construct resources: %w", err)
	}
	for _, u := range units {
		if err := u.Register(server); err != nil {
			return fmt.Errorf("register resource %s: %w", u.Name(), err)
		}
	}
	if log != nil {
		log.Info("resources.register.ok", slog.Int("count", len(units)))
	}
	return nil
}

type staticList struct {
	name        string
	uri         string
	description string
	items       []string
	log         *slog.Logger
}

func (r *staticList) Name() string        { return r.name }
func (r *staticList) Description() string { return r.description }

func (r *staticList) Register(s capability.Server) error {
	h := capability.HandleResource(r.log, "Failed to read "+r.name, mcp.MimeTypeJSON,
		func(context.Context, string, map[string]string) (any, error) {
			return r.items, nil
		})
	return s.RegisterResource(mcpservice.NewResource(r.uri, r.name, h,
		mcpservice.WithResourceDescription(r.description),
		mcpservice.WithResourceMimeType(mcp.MimeTypeJSON),
	))
}

type problemDetail struct {
	provider Provider
	log      *slog.Logger
}

func (r *problemDetail) Name() string { return "problem-detail" }
func (r *problemDetail) Description() string {
	return "Provides details about a specific LeetCode problem, including its description, examples, constraints, and metadata. The titleSlug parameter in the URI identifies the specific problem."
}

func (r *problemDetail) Register(s capability.Server) error {
	h := capability.HandleResource(r.log, "Failed to fetch problem detail", mcp.MimeTypeJSON, r.read)
	return s.RegisterResource(mcpservice.NewResourceTemplate("problem://{titleSlug}", r.Name(), h,
		mcpservice.WithResourceDescription(r.Description()),
		mcpservice.WithResourceMimeType(mcp.MimeTypeJSON),
	))
}

func (r *problemDetail) read(ctx context.Context, _ string, vars map[string]string) (any, error) {
	slug := vars["titleSlug"]
	data, err := r.provider.Problem(ctx, slug)
	if err != nil {
		return nil, err
	}
	return struct {
		TitleSlug string          `json:"titleSlug"`
		Problem   json.RawMessage `json:"problem"`
	}{slug, data}, nil
}

type problemSolution struct {
	provider Provider
	log      *slog.Logger
}

func (r *problemSolution) Name() string { return "problem-solution" }
func (r *problemSolution) Description() string {
	return "Provides the complete content and metadata of a specific problem solution, including the full article text and author information. The topicId parameter in the URI identifies the solution; it comes from the 'topicId' field returned by the 'list_problem_solutions' tool."
}

func (r *problemSolution) Register(s capability.Server) error {
	h := capability.HandleResource(r.log, "Failed to fetch solution", mcp.MimeTypeJSON, r.read)
	return s.RegisterResource(mcpservice.NewResourceTemplate("solution://{topicId}", r.Name(), h,
		mcpservice.WithResourceDescription(r.Description()),
		mcpservice.WithResourceMimeType(mcp.MimeTypeJSON),
	))
}

func (r *problemSolution) read(ctx context.Context, _ string, vars map[string]string) (any, error) {
	topicID := vars["topicId"]
	data, err := r.provider.SolutionArticle(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return struct {
		TopicID  string          `json:"topicId"`
		Solution json.RawMessage `json:"solution"`
	}{topicID, data}, nil
}
