package leetcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type userProfile struct {
	Username           string          `json:"username"`
	RealName           string          `json:"realName"`
	UserAvatar         string          `json:"userAvatar"`
	CountryName        string          `json:"countryName"`
	GithubURL          string          `json:"githubUrl"`
	Company            string          `json:"company"`
	School             string          `json:"school"`
	Ranking            int             `json:"ranking"`
	TotalSubmissionNum json.RawMessage `json:"totalSubmissionNum"`
}

// UserProfile returns the public profile of username. An unknown user yields
// the upstream {"matchedUser":null} object unchanged.
func (c *Client) UserProfile(ctx context.Context, username string) (json.RawMessage, error) {
	var data struct {
		MatchedUser *struct {
			Username  string  `json:"username"`
			GithubURL *string `json:"githubUrl"`
			Profile   struct {
				RealName    string  `json:"realName"`
				UserAvatar  string  `json:"userAvatar"`
				CountryName *string `json:"countryName"`
				Company     *string `json:"company"`
				School      *string `json:"school"`
				Ranking     int     `json:"ranking"`
			} `json:"profile"`
			SubmitStats struct {
				TotalSubmissionNum json.RawMessage `json:"totalSubmissionNum"`
			} `json:"submitStats"`
		} `json:"matchedUser"`
	}
	vars := map[string]any{"username": username}
	if err := c.graphql(ctx, "getUserProfile", userProfileQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return json.RawMessage(`{"matchedUser":null}`), nil
	}

	u := data.MatchedUser
	out := userProfile{
		Username:           u.Username,
		RealName:           u.Profile.RealName,
		UserAvatar:         u.Profile.UserAvatar,
		CountryName:        deref(u.Profile.CountryName),
		GithubURL:          deref(u.GithubURL),
		Company:            deref(u.Profile.Company),
		School:             deref(u.Profile.School),
		Ranking:            u.Profile.Ranking,
		TotalSubmissionNum: u.SubmitStats.TotalSubmissionNum,
	}
	if isNull(out.TotalSubmissionNum) {
		out.TotalSubmissionNum = json.RawMessage(`[]`)
	}
	return json.Marshal(out)
}

// UserContestRanking returns the contest rating summary and history of
// username. When attended is set only contests the user took part in are
// kept.
func (c *Client) UserContestRanking(ctx context.Context, username string, attended bool) (json.RawMessage, error) {
	var data struct {
		Ranking json.RawMessage  `json:"userContestRanking"`
		History []map[string]any `json:"userContestRankingHistory"`
	}
	vars := map[string]any{"username": username}
	if err := c.graphql(ctx, "userContestRankingInfo", userContestRankingQuery, vars, &data); err != nil {
		return nil, err
	}

	history := make([]map[string]any, 0, len(data.History))
	for _, h := range data.History {
		if attended {
			if ok, _ := h["attended"].(bool); !ok {
				continue
			}
		}
		history = append(history, h)
	}
	ranking := data.Ranking
	if len(ranking) == 0 {
		ranking = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Ranking json.RawMessage  `json:"userContestRanking"`
		History []map[string]any `json:"userContestRankingHistory"`
	}{ranking, history})
}

// RecentSubmissions returns the latest submissions of username.
func (c *Client) RecentSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error) {
	var data struct {
		List json.RawMessage `json:"recentSubmissionList"`
	}
	vars := map[string]any{"username": username, "limit": limit}
	if err := c.graphql(ctx, "recentSubmissions", recentSubmissionsQuery, vars, &data); err != nil {
		return nil, err
	}
	return listOrEmpty(data.List), nil
}

// RecentACSubmissions returns the latest accepted submissions of username.
func (c *Client) RecentACSubmissions(ctx context.Context, username string, limit int) (json.RawMessage, error) {
	var data struct {
		List json.RawMessage `json:"recentAcSubmissionList"`
	}
	vars := map[string]any{"username": username, "limit": limit}
	if err := c.graphql(ctx, "recentAcSubmissions", recentACSubmissionsQuery, vars, &data); err != nil {
		return nil, err
	}
	return listOrEmpty(data.List), nil
}

// UserStatus reports who the session cookie belongs to.
func (c *Client) UserStatus(ctx context.Context) (json.RawMessage, error) {
	if err := c.requireAuth("fetch user status"); err != nil {
		return nil, err
	}
	var data struct {
		Status *struct {
			IsSignedIn bool   `json:"isSignedIn"`
			Username   string `json:"username"`
			Avatar     string `json:"avatar"`
			IsAdmin    bool   `json:"isAdmin"`
		} `json:"userStatus"`
	}
	if err := c.graphql(ctx, "globalData", userStatusQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Status == nil {
		return nil, fmt.Errorf("leetcode: user status missing from response")
	}
	return json.Marshal(data.Status)
}

// SubmissionListParams filters AllSubmissions. Status is "AC" or "WA"; Lang
// is matched against each submission's language slug.
type SubmissionListParams struct {
	Offset       int
	Limit        int
	QuestionSlug string
	Lang         string
	Status       string
	LastKey      string
}

const defaultSubmissionLimit = 20

var submissionStatusCodes = map[string]int{"AC": 10, "WA": 11}

// AllSubmissions pages through the authenticated user's submissions.
func (c *Client) AllSubmissions(ctx context.Context, p SubmissionListParams) (json.RawMessage, error) {
	if err := c.requireAuth("fetch user submissions"); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultSubmissionLimit
	}
	vars := map[string]any{
		"offset":       p.Offset,
		"limit":        p.Limit,
		"questionSlug": p.QuestionSlug,
	}
	if p.LastKey != "" {
		vars["lastKey"] = p.LastKey
	}
	if code, ok := submissionStatusCodes[strings.ToUpper(p.Status)]; ok {
		vars["status"] = code
	}

	var data struct {
		List *struct {
			LastKey     *string          `json:"lastKey"`
			HasNext     bool             `json:"hasNext"`
			Submissions []map[string]any `json:"submissions"`
		} `json:"questionSubmissionList"`
	}
	if err := c.graphql(ctx, "submissionList", allSubmissionsQuery, vars, &data); err != nil {
		return nil, err
	}

	out := struct {
		Submissions []map[string]any `json:"submissions"`
		HasNext     bool             `json:"hasNext"`
		LastKey     *string          `json:"lastKey"`
	}{Submissions: []map[string]any{}}
	if data.List != nil {
		out.HasNext = data.List.HasNext
		out.LastKey = data.List.LastKey
		for _, s := range data.List.Submissions {
			if p.Lang != "" {
				if lang, _ := s["lang"].(string); !strings.EqualFold(lang, p.Lang) {
					continue
				}
			}
			out.Submissions = append(out.Submissions, s)
		}
	}
	return json.Marshal(out)
}

// ProgressParams filters ProgressQuestionList.
type ProgressParams struct {
	Offset         int
	Limit          int
	QuestionStatus string
	Difficulty     []string
}

// ProgressQuestionList returns the authenticated user's per-question
// progress.
func (c *Client) ProgressQuestionList(ctx context.Context, p ProgressParams) (json.RawMessage, error) {
	if err := c.requireAuth("fetch user progress question list"); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultSubmissionLimit
	}
	filters := map[string]any{"skip": p.Offset, "limit": p.Limit}
	if p.QuestionStatus != "" {
		filters["questionStatus"] = p.QuestionStatus
	}
	if len(p.Difficulty) > 0 {
		filters["difficulty"] = p.Difficulty
	}

	var data struct {
		List json.RawMessage `json:"userProgressQuestionList"`
	}
	vars := map[string]any{"filters": filters}
	if err := c.graphql(ctx, "userProgressQuestionList", progressQuestionListQuery, vars, &data); err != nil {
		return nil, err
	}
	if isNull(data.List) {
		return json.RawMessage(`{"totalNum":0,"questions":[]}`), nil
	}
	return data.List, nil
}

// SubmissionDetail returns the full record of one of the authenticated
// user's submissions.
func (c *Client) SubmissionDetail(ctx context.Context, id int64) (json.RawMessage, error) {
	if err := c.requireAuth("fetch user submission detail"); err != nil {
		return nil, err
	}
	var data struct {
		Detail json.RawMessage `json:"submissionDetails"`
	}
	vars := map[string]any{"submissionId": id}
	if err := c.graphql(ctx, "submissionDetails", submissionDetailQuery, vars, &data); err != nil {
		return nil, err
	}
	if isNull(data.Detail) {
		return nil, fmt.Errorf("submission %s not found", strconv.FormatInt(id, 10))
	}
	return data.Detail, nil
}

func listOrEmpty(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return json.RawMessage("[]")
	}
	return raw
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
