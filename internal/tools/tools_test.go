package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/tools"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubProvider answers every operation with the same payload or error and
// records what was called.
type stubProvider struct {
	authed  bool
	payload json.RawMessage
	err     error

	mu    sync.Mutex
	calls []string
	args  []any
}

func (s *stubProvider) record(op string, args any) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.args = append(s.args, args)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubProvider) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *stubProvider) lastArgs() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.args) == 0 {
		return nil
	}
	return s.args[len(s.args)-1]
}

func (s *stubProvider) IsAuthenticated() bool { return s.authed }
func (s *stubProvider) DailyChallenge(ctx context.Context) (json.RawMessage, error) {
	return s.record("DailyChallenge", nil)
}
func (s *stubProvider) ProblemSimplified(ctx context.Context, slug string) (json.RawMessage, error) {
	return s.record("ProblemSimplified", slug)
}
func (s *stubProvider) SearchProblems(ctx context.Context, p leetcode.SearchParams) (json.RawMessage, error) {
	return s.record("SearchProblems", p)
}
func (s *stubProvider) UserContestRanking(ctx context.Context, username string, attended bool) (json.RawMessage, error) {
	return s.record("UserContestRanking", attended)
}
func (s *stubProvider) SolutionArticle(ctx context.Context, topicID string) (json.RawMessage, error) {
	return s.record("SolutionArticle", topicID)
}
func (s *stubProvider) SolutionArticles(ctx context.Context, slug string, p leetcode.ArticleParams) (json.RawMessage, error) {
	return s.record("SolutionArticles", p)
}
func (s *stubProvider) Submit(ctx context.Context, p leetcode.SubmitParams) (json.RawMessage, error) {
	return s.record("Submit", p)
}
func (s *stubProvider) AllSubmissions(ctx context.Context, p leetcode.SubmissionListParams) (json.RawMessage, error) {
	return s.record("AllSubmissions", p)
}
func (s *stubProvider) ProgressQuestionList(ctx context.Context, p leetcode.ProgressParams) (json.RawMessage, error) {
	return s.record("ProgressQuestionList", p)
}
func (s *stubProvider) SubmissionDetail(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.record("SubmissionDetail", id)
}
func (s *stubProvider) RecentACSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error) {
	return s.record("RecentACSubmissions", limit)
}
func (s *stubProvider) RecentSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error) {
	return s.record("RecentSubmissions", limit)
}
func (s *stubProvider) UserProfile(ctx context.Context, username string) (json.RawMessage, error) {
	return s.record("UserProfile", username)
}
func (s *stubProvider) UserStatus(ctx context.Context) (json.RawMessage, error) {
	return s.record("UserStatus", nil)
}

func newRegistry(t *testing.T, p tools.Provider, opts ...tools.Option) *mcpservice.Registry {
	t.Helper()
	reg := mcpservice.NewRegistry()
	if err := tools.RegisterAll(reg, p, discard, opts...); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return reg
}

func call(t *testing.T, reg *mcpservice.Registry, name, args string) (*mcp.CallToolResult, map[string]any) {
	t.Helper()
	res, err := reg.Tools().CallTool(t.Context(), nil, &mcp.CallToolRequestReceived{Name: name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) != 1 || res.Content[0].Type != mcp.ContentTypeText {
		t.Fatalf("CallTool(%s): expected one text element, got %+v", name, res.Content)
	}
	var payload map[string]any
	_ = json.Unmarshal([]byte(res.Content[0].Text), &payload)
	return res, payload
}

type toolCase struct {
	name     string
	args     string
	errLabel string
	auth     string
}

var allTools = []toolCase{
	{"get_daily_challenge", `{}`, "Failed to fetch daily challenge", ""},
	{"get_problem", `{"titleSlug":"two-sum"}`, "Failed to fetch problem details", ""},
	{"search_problems", `{"tags":["array"],"difficulty":"EASY"}`, "Failed to search problems", ""},
	{"get_user_contest_ranking", `{"username":"alice"}`, "Failed to fetch user contest ranking", ""},
	{"get_problem_solution", `{"topicId":"123"}`, "Failed to fetch solution details", ""},
	{"list_problem_solutions", `{"questionSlug":"two-sum"}`, "Failed to fetch solutions", ""},
	{"get_all_submissions", `{"lang":"python3","status":"AC"}`, "Failed to fetch user submissions", "fetch user submissions"},
	{"get_problem_progress", `{"questionStatus":"SOLVED"}`, "Failed to fetch problem progress", "fetch user progress question list"},
	{"get_problem_submission_report", `{"id":42}`, "Failed to fetch submission detail", "fetch user submission detail"},
	{"get_recent_ac_submissions", `{"username":"alice"}`, "Failed to fetch recent accepted submissions", ""},
	{"get_recent_submissions", `{"username":"alice"}`, "Failed to fetch recent submissions", ""},
	{"get_user_profile", `{"username":"alice"}`, "Failed to fetch user profile", ""},
	{"get_user_status", `{}`, "Failed to fetch user status", "fetch user status"},
	{"submit_leetcode_solution", `{"code":"x","language":"python3","questionId":"1","questionSlug":"two-sum"}`, "Failed to submit LeetCode solution", "submit a solution"},
}

func TestRegisterAll_Names(t *testing.T) {
	t.Parallel()
	names := func(reg *mcpservice.Registry) []string {
		var out []string
		for _, tool := range reg.Tools().Snapshot() {
			out = append(out, tool.Name)
		}
		return out
	}

	defaults := names(newRegistry(t, &stubProvider{}))
	if len(defaults) != 13 || slices.Contains(defaults, "submit_leetcode_solution") {
		t.Fatalf("unexpected default tool set: %v", defaults)
	}

	withSubmit := names(newRegistry(t, &stubProvider{}, tools.WithSubmission(true)))
	want := make([]string, 0, len(allTools))
	for _, tc := range allTools {
		want = append(want, tc.name)
	}
	if !slices.Equal(withSubmit, want) {
		t.Fatalf("tool names = %v, want %v", withSubmit, want)
	}
}

func TestRegisterAll_IdenticalAcrossServers(t *testing.T) {
	t.Parallel()
	a, err := json.Marshal(newRegistry(t, &stubProvider{}, tools.WithSubmission(true)).Tools().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(newRegistry(t, &stubProvider{}, tools.WithSubmission(true)).Tools().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("descriptors differ between registries:\n%s\n%s", a, b)
	}
}

func TestRegisterAll_DuplicateIsFatal(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t, &stubProvider{})
	err := tools.RegisterAll(reg, &stubProvider{}, discard)
	if !errors.Is(err, mcpservice.ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestUnits_Success(t *testing.T) {
	t.Parallel()
	p := &stubProvider{authed: true, payload: json.RawMessage(`{"ok":true}`)}
	reg := newRegistry(t, p, tools.WithSubmission(true))

	for _, tc := range allTools {
		res, payload := call(t, reg, tc.name, tc.args)
		if res.IsError {
			t.Fatalf("%s: unexpected isError: %s", tc.name, res.Content[0].Text)
		}
		if payload == nil {
			t.Fatalf("%s: text is not a JSON object: %s", tc.name, res.Content[0].Text)
		}
		if _, hasErr := payload["error"]; hasErr {
			t.Fatalf("%s: success payload carries error: %s", tc.name, res.Content[0].Text)
		}
	}
	if n := len(p.called()); n != len(allTools) {
		t.Fatalf("expected one provider call per tool, got %d", n)
	}
}

func TestUnits_Failure(t *testing.T) {
	t.Parallel()
	p := &stubProvider{authed: true, err: errors.New("boom")}
	reg := newRegistry(t, p, tools.WithSubmission(true))

	for _, tc := range allTools {
		_, payload := call(t, reg, tc.name, tc.args)
		if payload["error"] != tc.errLabel || payload["message"] != "boom" {
			t.Fatalf("%s: unexpected failure payload %v", tc.name, payload)
		}
	}
}

func TestUnits_AuthRequired(t *testing.T) {
	t.Parallel()
	p := &stubProvider{authed: false, payload: json.RawMessage(`{}`)}
	reg := newRegistry(t, p, tools.WithSubmission(true))

	for _, tc := range allTools {
		if tc.auth == "" {
			continue
		}
		_, payload := call(t, reg, tc.name, tc.args)
		if payload["error"] != tc.errLabel || payload["message"] != "Authentication required to "+tc.auth {
			t.Fatalf("%s: unexpected auth payload %v", tc.name, payload)
		}
	}
	if calls := p.called(); len(calls) != 0 {
		t.Fatalf("auth-gated tools reached the provider: %v", calls)
	}
}

func TestDailyChallenge_UsesUTCDate(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("EST", -5*60*60)
	clock := func() time.Time { return time.Date(2025, 3, 1, 23, 30, 0, 0, loc) }
	p := &stubProvider{payload: json.RawMessage(`{"title":"Example Problem"}`)}
	reg := newRegistry(t, p, tools.WithClock(clock))

	res, _ := call(t, reg, "get_daily_challenge", ``)
	if got, want := res.Content[0].Text, `{"date":"2025-03-02","problem":{"title":"Example Problem"}}`; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
}

func TestGetProblem_NotFound(t *testing.T) {
	t.Parallel()
	p := &stubProvider{err: errors.New("not found")}
	reg := newRegistry(t, p)

	res, _ := call(t, reg, "get_problem", `{"titleSlug":"two-sum"}`)
	if got, want := res.Content[0].Text, `{"error":"Failed to fetch problem details","message":"not found"}`; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
	if p.lastArgs() != "two-sum" {
		t.Fatalf("provider received %v", p.lastArgs())
	}
}

func TestSearchProblems_Defaults(t *testing.T) {
	t.Parallel()
	p := &stubProvider{payload: json.RawMessage(`{"total":0,"questions":[]}`)}
	reg := newRegistry(t, p)

	res, _ := call(t, reg, "search_problems", `{}`)
	want := `{"filters":{"category":"all-code-essentials"},"pagination":{"limit":10,"offset":0},"problems":{"total":0,"questions":[]}}`
	if got := res.Content[0].Text; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
	params, _ := p.lastArgs().(leetcode.SearchParams)
	if params.Category != "all-code-essentials" || params.Limit != 10 || params.Offset != 0 {
		t.Fatalf("provider received %+v", params)
	}
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()
	p := &stubProvider{authed: true, payload: json.RawMessage(`{}`)}
	reg := newRegistry(t, p)

	cases := []struct{ name, tool, args string }{
		{"unknown tag", "search_problems", `{"tags":["not-a-tag"]}`},
		{"bad category", "search_problems", `{"category":"cooking"}`},
		{"bad difficulty", "search_problems", `{"difficulty":"TRIVIAL"}`},
		{"missing slug", "get_problem", `{}`},
		{"unknown field", "get_problem", `{"titleSlug":"a","extra":1}`},
		{"bad order", "list_problem_solutions", `{"questionSlug":"a","orderBy":"OLDEST"}`},
		{"bad lang", "get_all_submissions", `{"lang":"cobol"}`},
		{"bad status", "get_all_submissions", `{"status":"TLE"}`},
	}
	for _, tc := range cases {
		res, _ := call(t, reg, tc.tool, tc.args)
		if !res.IsError || !strings.HasPrefix(res.Content[0].Text, "invalid arguments:") {
			t.Fatalf("%s: expected invalid arguments result, got %+v", tc.name, res)
		}
	}
	if calls := p.called(); len(calls) != 0 {
		t.Fatalf("invalid calls reached the provider: %v", calls)
	}
}

func TestListProblemSolutions_Defaults(t *testing.T) {
	t.Parallel()
	p := &stubProvider{payload: json.RawMessage(`{"totalNum":0,"hasNextPage":false,"articles":[]}`)}
	reg := newRegistry(t, p)

	res, _ := call(t, reg, "list_problem_solutions", `{"questionSlug":"two-sum"}`)
	if got, want := res.Content[0].Text, `{"questionSlug":"two-sum","solutionArticles":{"totalNum":0,"hasNextPage":false,"articles":[]}}`; got != want {
		t.Fatalf("text = %s, want %s", got, want)
	}
	params, _ := p.lastArgs().(leetcode.ArticleParams)
	if params.Limit != 10 || params.Skip != 0 || params.OrderBy != "HOT" || params.TagSlugs == nil {
		t.Fatalf("provider received %+v", params)
	}
}

func TestContestRanking_AttendedDefault(t *testing.T) {
	t.Parallel()
	p := &stubProvider{payload: json.RawMessage(`{}`)}
	reg := newRegistry(t, p)

	call(t, reg, "get_user_contest_ranking", `{"username":"alice"}`)
	if p.lastArgs() != true {
		t.Fatalf("expected attended=true by default, got %v", p.lastArgs())
	}
	call(t, reg, "get_user_contest_ranking", `{"username":"alice","attended":false}`)
	if p.lastArgs() != false {
		t.Fatalf("expected attended=false, got %v", p.lastArgs())
	}
}
