package leetcode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DailyChallenge returns today's daily coding challenge as served upstream.
func (c *Client) DailyChallenge(ctx context.Context) (json.RawMessage, error) {
	var data struct {
		Daily json.RawMessage `json:"activeDailyCodingChallengeQuestion"`
	}
	if err := c.graphql(ctx, "questionOfToday", dailyChallengeQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Daily, nil
}

// Problem returns the full question record for titleSlug.
func (c *Client) Problem(ctx context.Context, titleSlug string) (json.RawMessage, error) {
	return c.cached(ctx, "problem:"+titleSlug, func(ctx context.Context) (json.RawMessage, error) {
		var data struct {
			Question json.RawMessage `json:"question"`
		}
		vars := map[string]any{"titleSlug": titleSlug}
		if err := c.graphql(ctx, "questionData", problemQuery, vars, &data); err != nil {
			return nil, err
		}
		if isNull(data.Question) {
			return nil, fmt.Errorf("problem %s not found", titleSlug)
		}
		return data.Question, nil
	})
}

type tagRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type codeSnippet struct {
	Lang     string `json:"lang"`
	LangSlug string `json:"langSlug"`
	Code     string `json:"code"`
}

type question struct {
	QuestionID       string        `json:"questionId"`
	Title            string        `json:"title"`
	TitleSlug        string        `json:"titleSlug"`
	Content          string        `json:"content"`
	Difficulty       string        `json:"difficulty"`
	TopicTags        []tagRef      `json:"topicTags"`
	CodeSnippets     []codeSnippet `json:"codeSnippets"`
	ExampleTestcases string        `json:"exampleTestcases"`
	Hints            []string      `json:"hints"`
	SimilarQuestions string        `json:"similarQuestions"`
}

type similarQuestion struct {
	TitleSlug  string `json:"titleSlug"`
	Difficulty string `json:"difficulty"`
}

type simplifiedProblem struct {
	TitleSlug        string            `json:"titleSlug"`
	QuestionID       string            `json:"questionId"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Difficulty       string            `json:"difficulty"`
	TopicTags        []string          `json:"topicTags"`
	CodeSnippets     []codeSnippet     `json:"codeSnippets"`
	ExampleTestcases string            `json:"exampleTestcases"`
	Hints            []string          `json:"hints"`
	SimilarQuestions []similarQuestion `json:"similarQuestions"`
}

// snippetLangs are the code templates kept by ProblemSimplified.
var snippetLangs = map[string]bool{"cpp": true, "python3": true, "java": true}

const maxSimilarQuestions = 3

// ProblemSimplified returns a trimmed projection of Problem suited to
// model context: tag slugs, three code templates and the first similar
// questions.
func (c *Client) ProblemSimplified(ctx context.Context, titleSlug string) (json.RawMessage, error) {
	return c.cached(ctx, "problem-simplified:"+titleSlug, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := c.Problem(ctx, titleSlug)
		if err != nil {
			return nil, err
		}
		var q question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("leetcode: decode problem %s: %w", titleSlug, err)
		}

		out := simplifiedProblem{
			TitleSlug:        q.TitleSlug,
			QuestionID:       q.QuestionID,
			Title:            q.Title,
			Content:          q.Content,
			Difficulty:       q.Difficulty,
			TopicTags:        make([]string, 0, len(q.TopicTags)),
			CodeSnippets:     []codeSnippet{},
			ExampleTestcases: q.ExampleTestcases,
			Hints:            q.Hints,
			SimilarQuestions: []similarQuestion{},
		}
		if out.Hints == nil {
			out.Hints = []string{}
		}
		for _, t := range q.TopicTags {
			out.TopicTags = append(out.TopicTags, t.Slug)
		}
		for _, s := range q.CodeSnippets {
			if snippetLangs[s.LangSlug] {
				out.CodeSnippets = append(out.CodeSnippets, s)
			}
		}
		if q.SimilarQuestions != "" {
			var similar []similarQuestion
			if err := json.Unmarshal([]byte(q.SimilarQuestions), &similar); err != nil {
				c.log.WarnContext(ctx, "leetcode.similar_questions.parse.fail",
					slog.String("slug", titleSlug), slog.String("err", err.Error()))
			} else {
				out.SimilarQuestions = similar[:min(len(similar), maxSimilarQuestions)]
			}
		}
		return json.Marshal(out)
	})
}

// SearchParams filters SearchProblems. Empty fields are not sent.
type SearchParams struct {
	Category       string
	Tags           []string
	Difficulty     string
	SearchKeywords string
	Limit          int
	Offset         int
}

type searchQuestion struct {
	Title      string   `json:"title"`
	TitleSlug  string   `json:"titleSlug"`
	Difficulty string   `json:"difficulty"`
	AcRate     float64  `json:"acRate"`
	TopicTags  []string `json:"topicTags"`
}

type searchResult struct {
	Total     int              `json:"total"`
	Questions []searchQuestion `json:"questions"`
}

// SearchProblems lists problems matching p.
func (c *Client) SearchProblems(ctx context.Context, p SearchParams) (json.RawMessage, error) {
	filters := map[string]any{}
	if p.Difficulty != "" {
		filters["difficulty"] = strings.ToUpper(p.Difficulty)
	}
	if len(p.Tags) > 0 {
		filters["tags"] = p.Tags
	}
	if p.SearchKeywords != "" {
		filters["searchKeywords"] = p.SearchKeywords
	}
	vars := map[string]any{
		"limit":   p.Limit,
		"skip":    p.Offset,
		"filters": filters,
	}
	if p.Category != "" {
		vars["categorySlug"] = p.Category
	}

	var data struct {
		List *struct {
			Total     int `json:"total"`
			Questions []struct {
				Title      string   `json:"title"`
				TitleSlug  string   `json:"titleSlug"`
				Difficulty string   `json:"difficulty"`
				AcRate     float64  `json:"acRate"`
				TopicTags  []tagRef `json:"topicTags"`
			} `json:"questions"`
		} `json:"problemsetQuestionList"`
	}
	if err := c.graphql(ctx, "problemsetQuestionList", searchProblemsQuery, vars, &data); err != nil {
		return nil, err
	}

	out := searchResult{Questions: []searchQuestion{}}
	if data.List != nil {
		out.Total = data.List.Total
		for _, q := range data.List.Questions {
			tags := make([]string, 0, len(q.TopicTags))
			for _, t := range q.TopicTags {
				tags = append(tags, t.Slug)
			}
			out.Questions = append(out.Questions, searchQuestion{
				Title:      q.Title,
				TitleSlug:  q.TitleSlug,
				Difficulty: q.Difficulty,
				AcRate:     q.AcRate,
				TopicTags:  tags,
			})
		}
	}
	return json.Marshal(out)
}

// ArticleParams pages and filters SolutionArticles.
type ArticleParams struct {
	Limit     int
	Skip      int
	OrderBy   string
	UserInput string
	TagSlugs  []string
}

const (
	defaultArticleLimit   = 5
	defaultArticleOrderBy = "HOT"
)

type articleList struct {
	TotalNum    int              `json:"totalNum"`
	HasNextPage bool             `json:"hasNextPage"`
	Articles    []map[string]any `json:"articles"`
}

// SolutionArticles lists community solutions for a problem. Articles the
// caller cannot see are dropped and each kept article gains an articleUrl.
func (c *Client) SolutionArticles(ctx context.Context, questionSlug string, p ArticleParams) (json.RawMessage, error) {
	if p.Limit <= 0 {
		p.Limit = defaultArticleLimit
	}
	if p.OrderBy == "" {
		p.OrderBy = defaultArticleOrderBy
	}
	if p.TagSlugs == nil {
		p.TagSlugs = []string{}
	}
	vars := map[string]any{
		"questionSlug": questionSlug,
		"first":        p.Limit,
		"skip":         p.Skip,
		"orderBy":      p.OrderBy,
		"userInput":    p.UserInput,
		"tagSlugs":     p.TagSlugs,
	}

	var data struct {
		Articles *struct {
			TotalNum int `json:"totalNum"`
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
			Edges []struct {
				Node map[string]any `json:"node"`
			} `json:"edges"`
		} `json:"ugcArticleSolutionArticles"`
	}
	if err := c.graphql(ctx, "ugcArticleSolutionArticles", solutionArticlesQuery, vars, &data); err != nil {
		return nil, err
	}

	out := articleList{Articles: []map[string]any{}}
	if data.Articles != nil {
		out.TotalNum = data.Articles.TotalNum
		out.HasNextPage = data.Articles.PageInfo.HasNextPage
		for _, e := range data.Articles.Edges {
			node := e.Node
			if node == nil {
				continue
			}
			if canSee, _ := node["canSee"].(bool); !canSee {
				continue
			}
			if topicID := node["topicId"]; topicID != nil {
				if slug, _ := node["slug"].(string); slug != "" {
					node["articleUrl"] = fmt.Sprintf("%s/problems/%s/solutions/%v/%s", c.baseURL, questionSlug, topicID, slug)
				}
			}
			out.Articles = append(out.Articles, node)
		}
	}
	return json.Marshal(out)
}

// SolutionArticle returns the full content of one solution article.
func (c *Client) SolutionArticle(ctx context.Context, topicID string) (json.RawMessage, error) {
	return c.cached(ctx, "solution:"+topicID, func(ctx context.Context) (json.RawMessage, error) {
		var data struct {
			Article json.RawMessage `json:"ugcArticleSolutionArticle"`
		}
		vars := map[string]any{"topicId": topicID}
		if err := c.graphql(ctx, "ugcArticleSolutionArticle", solutionArticleQuery, vars, &data); err != nil {
			return nil, err
		}
		if isNull(data.Article) {
			return nil, fmt.Errorf("solution %s not found", topicID)
		}
		return data.Article, nil
	})
}
