package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/capability"
)

type contestRankingArgs struct {
	Username string `json:"username" jsonschema_description:"LeetCode username to retrieve contest ranking information for"`
	Attended bool   `json:"attended,omitempty" jsonschema:"default=true" jsonschema_description:"Whether to include only the contests the user has participated in (true) or all contests (false); defaults to true"`
}

func (a *contestRankingArgs) SetDefaults() { a.Attended = true }

type userContestRanking struct{ unit }

func newUserContestRanking(p Provider, log *slog.Logger) *userContestRanking {
	return &userContestRanking{unit{
		name:        "get_user_contest_ranking",
		description: "Retrieves a user's contest ranking information on LeetCode, including overall ranking, participation history, and performance metrics across contests.",
		provider:    p,
		log:         log,
	}}
}

func (u *userContestRanking) Register(s capability.Server) error {
	return register(s, u.unit, "Failed to fetch user contest ranking", u.handle)
}

func (u *userContestRanking) handle(ctx context.Context, a contestRankingArgs) (any, error) {
	data, err := u.provider.UserContestRanking(ctx, a.Username, a.Attended)
	if err != nil {
		return nil, err
	}
	return struct {
		Username       string          `json:"username"`
		ContestRanking json.RawMessage `json:"contestRanking"`
	}{a.Username, data}, nil
}
