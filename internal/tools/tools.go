// Package tools contains the LeetCode tool units and the registry that binds
// them to one upstream provider.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
)

// Provider is the upstream surface the tool units call. *leetcode.Client
// implements it.
type Provider interface {
	IsAuthenticated() bool

	DailyChallenge(ctx context.Context) (json.RawMessage, error)
	ProblemSimplified(ctx context.Context, titleSlug string) (json.RawMessage, error)
	SearchProblems(ctx context.Context, p leetcode.SearchParams) (json.RawMessage, error)

	UserContestRanking(ctx context.Context, username string, attended bool) (json.RawMessage, error)

	SolutionArticle(ctx context.Context, topicID string) (json.RawMessage, error)
	SolutionArticles(ctx context.Context, questionSlug string, p leetcode.ArticleParams) (json.RawMessage, error)
	Submit(ctx context.Context, p leetcode.SubmitParams) (json.RawMessage, error)

	AllSubmissions(ctx context.Context, p leetcode.SubmissionListParams) (json.RawMessage, error)
	ProgressQuestionList(ctx context.Context, p leetcode.ProgressParams) (json.RawMessage, error)
	SubmissionDetail(ctx context.Context, id int64) (json.RawMessage, error)
	RecentACSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error)
	RecentSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error)
	UserProfile(ctx context.Context, username string) (json.RawMessage, error)
	UserStatus(ctx context.Context) (json.RawMessage, error)
}

var _ Provider = (*leetcode.Client)(nil)

// Option configures RegisterAll.
type Option func(*options)

type options struct {
	submission bool
	now        func() time.Time
}

// WithSubmission registers submit_leetcode_solution. It is off by default
// because it posts code to the judge on the user's behalf.
func WithSubmission(enabled bool) Option {
	return func(o *options) { o.submission = enabled }
}

// WithClock overrides the clock used for the daily challenge date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New constructs every tool unit bound to p.
func New(p Provider, log *slog.Logger, opts ...Option) []capability.Tool {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("module", "tools"))

	units := []capability.Tool{
		newDailyChallenge(p, log, o.now),
		newGetProblem(p, log),
		newSearchProblems(p, log),

		newUserContestRanking(p, log),

		newGetProblemSolution(p, log),
		newListProblemSolutions(p, log),

		newAllSubmissions(p, log),
		newProblemProgress(p, log),
		newSubmissionReport(p, log),
		newRecentACSubmissions(p, log),
		newRecentSubmissions(p, log),
		newUserProfile(p, log),
		newUserStatus(p, log),
	}
	if o.submission {
		units = append(units, newSubmitSolution(p, log))
	}
	return units
}

// RegisterAll constructs the tool units and registers each against server.
// The first registration error aborts.
func RegisterAll(server capability.Server, p Provider, log *slog.Logger, opts ...Option) error {
	units := New(p, log, opts...)
	for _, u := range units {
		if err := u.Register(server); err != nil {
			return fmt.Errorf("register tool %s: %w", u.Name(), err)
		}
	}
	if log != nil {
		log.Info("tools.register.ok", slog.Int("count", len(units)))
	}
	return nil
}

var readOnly = mcp.ToolAnnotations{ReadOnlyHint: true, OpenWorldHint: true}

// unit carries what every tool shares.
type unit struct {
	name        string
	description string
	provider    Provider
	log         *slog.Logger
}

func (u unit) Name() string        { return u.name }
func (u unit) Description() string { return u.description }

// register adds a read-only tool built from fn.
func register[A any](s capability.Server, u unit, errLabel string, fn capability.ToolFunc[A]) error {
	return s.RegisterTool(mcpservice.NewTool(u.name,
		capability.HandleTool(u.log, errLabel, fn),
		mcpservice.WithToolDescription(u.description),
		mcpservice.WithToolAnnotations(readOnly),
	))
}
