package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/catalog"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
)

type allSubmissionsArgs struct {
	Limit        int    `json:"limit,omitempty" jsonschema:"default=20" jsonschema_description:"Maximum number of submissions to return per page (defaults to 20)"`
	Offset       int    `json:"offset,omitempty" jsonschema:"default=0" jsonschema_description:"Number of submissions to skip for pagination"`
	QuestionSlug string `json:"questionSlug,omitempty" jsonschema_description:"Slug of the problem to filter submissions (e.g., 'two-sum')"`
	Lang         string `json:"lang,omitempty" jsonschema_description:"Programming language filter (e.g., 'python3', 'cpp', 'java')"`
	Status       string `json:"status,omitempty" jsonschema:"enum=AC,enum=WA" jsonschema_description:"Submission status filter: 'AC' for Accepted, 'WA' for Wrong Answer"`
	LastKey      string `json:"lastKey,omitempty" jsonschema_description:"Pagination token from a previous response"`
}

func (a *allSubmissionsArgs) SetDefaults() { a.Limit = 20 }

func (a *allSubmissionsArgs) Validate() error {
	if a.Lang == "" {
		return nil
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	if !cat.HasLang(a.Lang) {
		return fmt.Errorf("unknown lang %q", a.Lang)
	}
	return nil
}

type allSubmissions struct{ unit }

func newAllSubmissions(p Provider, log *slog.Logger) *allSubmissions {
	return &allSubmissions{unit{
		name:        "get_all_submissions",
		description: "Retrieves a paginated list of user submissions for a specific problem or all problems, with filtering options. Requires authentication.",
		provider:    p,
		log:         log,
	}}
}

func (u *allSubmissions) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch user submissions", u.handle)
}

func (u *allSubmissions) handle(ctx context.Context, a allSubmissionsArgs) (any, error) {
	if !u.provider.IsAuthenticated() {
		return nil, capability.AuthRequired("fetch user submissions")
	}
	return u.provider.AllSubmissions(ctx, leetcode.SubmissionListParams{
		Offset:       a.Offset,
		Limit:        a.Limit,
		QuestionSlug: a.QuestionSlug,
		Lang:         a.Lang,
		Status:       a.Status,
		LastKey:      a.LastKey,
	})
}

type problemProgressArgs struct {
	Offset         int      `json:"offset,omitempty" jsonschema:"default=0" jsonschema_description:"The number of questions to skip for pagination purposes"`
	Limit          int      `json:"limit,omitempty" jsonschema:"default=100" jsonschema_description:"The maximum number of questions to return in a single request"`
	QuestionStatus string   `json:"questionStatus,omitempty" jsonschema:"enum=ATTEMPTED,enum=SOLVED" jsonschema_description:"Filter by question status: ATTEMPTED or SOLVED"`
	Difficulty     []string `json:"difficulty,omitempty" jsonschema_description:"Filter by difficulty levels (e.g., ['EASY', 'MEDIUM', 'HARD'])"`
}

func (a *problemProgressArgs) SetDefaults() { a.Limit = 100 }

type problemProgress struct{ unit }

func newProblemProgress(p Provider, log *slog.Logger) *problemProgress {
	return &problemProgress{unit{
		name:        "get_problem_progress",
		description: "Retrieves the current user's problem-solving status with filtering options, including detailed solution history for attempted or solved questions (requires authentication).",
		provider:    p,
		log:         log,
	}}
}

func (u *problemProgress) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch problem progress", u.handle)
}

func (u *problemProgress) handle(ctx context.Context, a problemProgressArgs) (any, error) {
	if !u.provider.IsAuthenticated() {
		return nil, capability.AuthRequired("fetch user progress question list")
	}
	return u.provider.ProgressQuestionList(ctx, leetcode.ProgressParams{
		Offset:         a.Offset,
		Limit:          a.Limit,
		QuestionStatus: a.QuestionStatus,
		Difficulty:     a.Difficulty,
	})
}

type submissionReportArgs struct {
	ID int64 `json:"id" jsonschema_description:"The numerical submission ID to retrieve detailed information for"`
}

type submissionReport struct{ unit }

func newSubmissionReport(p Provider, log *slog.Logger) *submissionReport {
	return &submissionReport{unit{
		name:        "get_problem_submission_report",
		description: "Retrieves detailed information about a specific LeetCode submission by its ID, including source code, runtime stats, and test results (requires authentication).",
		provider:    p,
		log:         log,
	}}
}

func (u *submissionReport) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch submission detail", u.handle)
}

func (u *submissionReport) handle(ctx context.Context, a submissionReportArgs) (any, error) {
	if !u.provider.IsAuthenticated() {
		return nil, capability.AuthRequired("fetch user submission detail")
	}
	data, err := u.provider.SubmissionDetail(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return struct {
		SubmissionID int64           `json:"submissionId"`
		Submission   json.RawMessage `json:"submission"`
	}{a.ID, data}, nil
}

type recentArgs struct {
	Username string `json:"username" jsonschema_description:"LeetCode username to retrieve submissions for"`
	Limit    int    `json:"limit,omitempty" jsonschema:"default=10" jsonschema_description:"Maximum number of submissions to return (defaults to 10)"`
}

func (a *recentArgs) SetDefaults() { a.Limit = 10 }

type recentACSubmissions struct{ unit }

func newRecentACSubmissions(p Provider, log *slog.Logger) *recentACSubmissions {
	return &recentACSubmissions{unit{
		name:        "get_recent_ac_submissions",
		description: "Retrieves a user's recent accepted (AC) submissions on LeetCode, focusing only on successfully completed problems.",
		provider:    p,
		log:         log,
	}}
}

func (u *recentACSubmissions) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch recent accepted submissions", u.handle)
}

func (u *recentACSubmissions) handle(ctx context.Context, a recentArgs) (any, error) {
	data, err := u.provider.RecentACSubmissions(ctx, a.Username, a.Limit)
	if err != nil {
		return nil, err
	}
	return struct {
		Username      string          `json:"username"`
		ACSubmissions json.RawMessage `json:"acSubmissions"`
	}{a.Username, data}, nil
}

type recentSubmissions struct{ unit }

func newRecentSubmissions(p Provider, log *slog.Logger) *recentSubmissions {
	return &recentSubmissions{unit{
		name:        "get_recent_submissions",
		description: "Retrieves a user's recent submissions on LeetCode, including both accepted and failed submissions with detailed metadata.",
		provider:    p,
		log:         log,
	}}
}

func (u *recentSubmissions) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch recent submissions", u.handle)
}

func (u *recentSubmissions) handle(ctx context.Context, a recentArgs) (any, error) {
	data, err := u.provider.RecentSubmissions(ctx, a.Username, a.Limit)
	if err != nil {
		return nil, err
	}
	return struct {
		Username    string          `json:"username"`
		Submissions json.RawMessage `json:"submissions"`
	}{a.Username, data}, nil
}

type userProfileArgs struct {
	Username string `json:"username" jsonschema_description:"LeetCode username to retrieve the profile for"`
}

type userProfile struct{ unit }

func newUserProfile(p Provider, log *slog.Logger) *userProfile {
	return &userProfile{unit{
		name:        "get_user_profile",
		description: "Retrieves profile information about a LeetCode user, including user stats, solved problems, and profile details.",
		provider:    p,
		log:         log,
	}}
}

func (u *userProfile) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch user profile", u.handle)
}

func (u *userProfile) handle(ctx context.Context, a userProfileArgs) (any, error) {
	data, err := u.provider.UserProfile(ctx, a.Username)
	if err != nil {
		return nil, err
	}
	return struct {
		Username string          `json:"username"`
		Profile  json.RawMessage `json:"profile"`
	}{a.Username, data}, nil
}

type userStatus struct{ unit }

func newUserStatus(p Provider, log *slog.Logger) *userStatus {
	return &userStatus{unit{
		name:        "get_user_status",
		description: "Retrieves the current user's status on LeetCode, including login status and user information (requires authentication).",
		provider:    p,
		log:         log,
	}}
}

func (u *userStatus) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch user status", u.handle)
}

func (u *userStatus) handle(ctx context.Context, _ noArgs) (any, error) {
	if !u.provider.IsAuthenticated() {
		return nil, capability.AuthRequired("fetch user status")
	}
	return u.provider.UserStatus(ctx)
}
