package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/catalog"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
)

type noArgs struct{}

type dailyChallenge struct {
	unit
	now func() time.Time
}

func newDailyChallenge(p Provider, log *slog.Logger, now func() time.Time) *dailyChallenge {
	return &dailyChallenge{
		unit: unit{
			name:        "get_daily_challenge",
			description: "Retrieves today's LeetCode Daily Challenge problem with complete details, including problem description, constraints, and examples.",
			provider:    p,
			log:         log,
		},
		now: now,
	}
}

func (u *dailyChallenge) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch daily challenge", u.handle)
}

func (u *dailyChallenge) handle(ctx context.Context, _ noArgs) (any, error) {
	data, err := u.provider.DailyChallenge(ctx)
	if err != nil {
		return nil, err
	}
	return struct {
		Date    string          `json:"date"`
		Problem json.RawMessage `json:"problem"`
	}{u.now().UTC().Format(time.DateOnly), data}, nil
}

type getProblemArgs struct {
	TitleSlug string `json:"titleSlug" jsonschema_description:"The URL slug/identifier of the problem (e.g., 'two-sum', 'add-two-numbers') as it appears in the LeetCode URL"`
}

type getProblem struct{ unit }

func newGetProblem(p Provider, log *slog.Logger) *getProblem {
	return &getProblem{unit{
		name:        "get_problem",
		description: "Retrieves details about a specific LeetCode problem, including its description, examples, constraints, and related information.",
		provider:    p,
		log:         log,
	}}
}

func (u *getProblem) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch problem details", u.handle)
}

func (u *getProblem) handle(ctx context.Context, a getProblemArgs) (any, error) {
	data, err := u.provider.ProblemSimplified(ctx, a.TitleSlug)
	if err != nil {
		return nil, err
	}
	return struct {
		TitleSlug string          `json:"titleSlug"`
		Problem   json.RawMessage `json:"problem"`
	}{a.TitleSlug, data}, nil
}

type searchProblemsArgs struct {
	Category       string   `json:"category,omitempty" jsonschema:"enum=all-code-essentials,enum=algorithms,enum=database,enum=pandas,enum=javascript,enum=shell,enum=concurrency,default=all-code-essentials" jsonschema_description:"Problem category filter (e.g., 'algorithms', 'database', 'shell') to narrow down the problem domain"`
	Tags           []string `json:"tags,omitempty" jsonschema_description:"List of topic tags to filter problems by (e.g., ['array', 'dynamic-programming', 'tree'])"`
	Difficulty     string   `json:"difficulty,omitempty" jsonschema:"enum=EASY,enum=MEDIUM,enum=HARD" jsonschema_description:"Problem difficulty level filter to show only problems of a specific difficulty"`
	SearchKeywords string   `json:"searchKeywords,omitempty" jsonschema_description:"Keywords to search in problem titles and descriptions"`
	Limit          int      `json:"limit,omitempty" jsonschema:"default=10" jsonschema_description:"Maximum number of problems to return in a single request (for pagination)"`
	Offset         int      `json:"offset,omitempty" jsonschema_description:"Number of problems to skip (for pagination)"`
}

func (a *searchProblemsArgs) SetDefaults() {
	a.Category = "all-code-essentials"
	a.Limit = 10
}

func (a *searchProblemsArgs) Validate() error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	if !cat.HasCategory(a.Category) {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	for _, tag := range a.Tags {
		if !cat.HasTag(tag) {
			return fmt.Errorf("unknown tag %q", tag)
		}
	}
	if a.Limit < 0 || a.Offset < 0 {
		return fmt.Errorf("limit and offset must not be negative")
	}
	return nil
}

type searchFilters struct {
	Category       string   `json:"category"`
	Tags           []string `json:"tags,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	SearchKeywords string   `json:"searchKeywords,omitempty"`
}

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type searchProblems struct{ unit }

func newSearchProblems(p Provider, log *slog.Logger) *searchProblems {
	return &searchProblems{unit{
		name:        "search_problems",
		description: "Searches for LeetCode problems based on multiple filter criteria including categories, tags, difficulty levels, and keywords, with pagination support.",
		provider:    p,
		log:         log,
	}}
}

func (u *searchProblems) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to search problems", u.handle)
}

func (u *searchProblems) handle(ctx context.Context, a searchProblemsArgs) (any, error) {
	data, err := u.provider.SearchProblems(ctx, leetcode.SearchParams{
		Category:       a.Category,
		Tags:           a.Tags,
		Difficulty:     a.Difficulty,
		SearchKeywords: a.SearchKeywords,
		Limit:          a.Limit,
		Offset:         a.Offset,
	})
	if err != nil {
		return nil, err
	}
	return struct {
		Filters    searchFilters   `json:"filters"`
		Pagination pagination      `json:"pagination"`
		Problems   json.RawMessage `json:"problems"`
	}{
		Filters:    searchFilters{a.Category, a.Tags, a.Difficulty, a.SearchKeywords},
		Pagination: pagination{a.Limit, a.Offset},
		Problems:   data,
	}, nil
}
