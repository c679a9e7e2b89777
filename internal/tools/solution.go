package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
)

type problemSolutionArgs struct {
	TopicID string `json:"topicId" jsonschema_description:"The unique topic ID of the solution article, as returned by list_problem_solutions"`
}

type getProblemSolution struct{ unit }

func newGetProblemSolution(p Provider, log *slog.Logger) *getProblemSolution {
	return &getProblemSolution{unit{
		name:        "get_problem_solution",
		description: "Retrieves the complete content and metadata of a specific solution article, including the full explanation and code. Use list_problem_solutions to find topic IDs.",
		provider:    p,
		log:         log,
	}}
}

func (u *getProblemSolution) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch solution details", u.handle)
}

func (u *getProblemSolution) handle(ctx context.Context, a problemSolutionArgs) (any, error) {
	data, err := u.provider.SolutionArticle(ctx, a.TopicID)
	if err != nil {
		return nil, err
	}
	return struct {
		TopicID  string          `json:"topicId"`
		Solution json.RawMessage `json:"solution"`
	}{a.TopicID, data}, nil
}

type listSolutionsArgs struct {
	QuestionSlug string   `json:"questionSlug" jsonschema_description:"The URL slug/identifier of the problem to retrieve solutions for (e.g., 'two-sum')"`
	Limit        int      `json:"limit,omitempty" jsonschema:"default=10" jsonschema_description:"Maximum number of solutions to return per request"`
	Skip         int      `json:"skip,omitempty" jsonschema:"default=0" jsonschema_description:"Number of solutions to skip before collecting results"`
	OrderBy      string   `json:"orderBy,omitempty" jsonschema:"enum=HOT,enum=MOST_RECENT,enum=MOST_VOTES,default=HOT" jsonschema_description:"Sorting criteria: HOT for trending, MOST_VOTES by upvotes, MOST_RECENT by publication date"`
	UserInput    string   `json:"userInput,omitempty" jsonschema_description:"Search term to filter solutions by title, content, or author name"`
	TagSlugs     []string `json:"tagSlugs,omitempty" jsonschema_description:"Tag identifiers to filter solutions by language or topic (e.g., 'python', 'dynamic-programming')"`
}

func (a *listSolutionsArgs) SetDefaults() {
	a.Limit = 10
	a.OrderBy = "HOT"
	a.TagSlugs = []string{}
}

type listProblemSolutions struct{ unit }

func newListProblemSolutions(p Provider, log *slog.Logger) *listProblemSolutions {
	return &listProblemSolutions{unit{
		name:        "list_problem_solutions",
		description: "Retrieves a list of community solutions for a specific LeetCode problem, including only metadata like topicId. To view the full content of a solution, use the 'get_problem_solution' tool with the topicId returned by this tool.",
		provider:    p,
		log:         log,
	}}
}

func (u *listProblemSolutions) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch solutions", u.handle)
}

func (u *listProblemSolutions) handle(ctx context.Context, a listSolutionsArgs) (any, error) {
	data, err := u.provider.SolutionArticles(ctx, a.QuestionSlug, leetcode.ArticleParams{
		Limit:     a.Limit,
		Skip:      a.Skip,
		OrderBy:   a.OrderBy,
		UserInput: a.UserInput,
		TagSlugs:  a.TagSlugs,
	})
	if err != nil {
		return nil, err
	}
	return struct {
		QuestionSlug     string          `json:"questionSlug"`
		SolutionArticles json.RawMessage `json:"solutionArticles"`
	}{a.QuestionSlug, data}, nil
}

type submitArgs struct {
	Code         string `json:"code" jsonschema_description:"The solution code to submit"`
	Language     string `json:"language" jsonschema_description:"The programming language of the code (e.g., 'python3', 'java', 'cpp')"`
	QuestionID   string `json:"questionId" jsonschema_description:"The numeric ID of the question (e.g., '1' for Two Sum)"`
	QuestionSlug string `json:"questionSlug" jsonschema_description:"The URL slug of the question (e.g., 'two-sum')"`
}

type submitSolution struct{ unit }

func newSubmitSolution(p Provider, log *slog.Logger) *submitSolution {
	return &submitSolution{unit{
		name:        "submit_leetcode_solution",
		description: "Submits solution code to a specific LeetCode problem and returns the execution result. Requires authentication.",
		provider:    p,
		log:         log,
	}}
}

func (u *submitSolution) Register(s capability.Server) error {
	return s.RegisterTool(mcpservice.NewTool(u.name,
		capability.HandleTool(u.log, "Failed to submit LeetCode solution", u.handle),
		mcpservice.WithToolDescription(u.description),
		mcpservice.WithToolAnnotations(mcp.ToolAnnotations{OpenWorldHint: true}),
	))
}

func (u *submitSolution) handle(ctx context.Context, a submitArgs) (any, error) {
	if !u.provider.IsAuthenticated() {
		return nil, capability.AuthRequired("submit a solution")
	}
	u.log.InfoContext(ctx, "tool.submit.start", slog.String("slug", a.QuestionSlug), slog.String("lang", a.Language))
	return u.provider.Submit(ctx, leetcode.SubmitParams{
		Code:         a.Code,
		Language:     a.Language,
		QuestionID:   a.QuestionID,
		QuestionSlug: a.QuestionSlug,
	})
}
