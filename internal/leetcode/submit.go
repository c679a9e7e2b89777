package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SubmitParams identifies a solution to judge.
type SubmitParams struct {
	Code         string
	Language     string
	QuestionID   string
	QuestionSlug string
}

type submitRequest struct {
	Lang       string `json:"lang"`
	QuestionID string `json:"question_id"`
	TypedCode  string `json:"typed_code"`
}

type pendingResult struct {
	SubmissionID int64  `json:"submissionId"`
	State        string `json:"state"`
	TimedOut     bool   `json:"timedOut"`
	Message      string `json:"message"`
}

const stateSuccess = "SUCCESS"

// Submit sends a solution to the judge and polls for its verdict. When the
// verdict is not ready after the configured attempts a PENDING payload
// carrying the submission id is returned instead of an error.
func (c *Client) Submit(ctx context.Context, p SubmitParams) (json.RawMessage, error) {
	if err := c.requireAuth("submit a solution"); err != nil {
		return nil, err
	}
	body, err := json.Marshal(submitRequest{Lang: p.Language, QuestionID: p.QuestionID, TypedCode: p.Code})
	if err != nil {
		return nil, err
	}

	slug := url.PathEscape(p.QuestionSlug)
	endpoint := fmt.Sprintf("%s/problems/%s/submit/", c.baseURL, slug)
	referer := fmt.Sprintf("%s/problems/%s/", c.baseURL, slug)
	resp, _, err := c.send(ctx, http.MethodPost, endpoint, referer, body)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusForbidden {
		c.log.InfoContext(ctx, "leetcode.submit.csrf_retry", slog.String("slug", p.QuestionSlug))
		if rerr := c.refreshCSRF(ctx); rerr != nil {
			return nil, fmt.Errorf("%w (csrf refresh: %v)", err, rerr)
		}
		resp, _, err = c.send(ctx, http.MethodPost, endpoint, referer, body)
	}
	if err != nil {
		return nil, err
	}

	var submitted struct {
		SubmissionID int64 `json:"submission_id"`
	}
	if err := json.Unmarshal(resp, &submitted); err != nil {
		return nil, fmt.Errorf("leetcode: decode submit response: %w", err)
	}
	if submitted.SubmissionID == 0 {
		return nil, fmt.Errorf("leetcode: submit response has no submission id")
	}
	c.log.InfoContext(ctx, "leetcode.submit.ok",
		slog.String("slug", p.QuestionSlug), slog.Int64("submission_id", submitted.SubmissionID))

	return c.pollSubmission(ctx, submitted.SubmissionID, referer)
}

func (c *Client) pollSubmission(ctx context.Context, id int64, referer string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/submissions/detail/%s/check/", c.baseURL, strconv.FormatInt(id, 10))
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		body, _, err := c.send(ctx, http.MethodGet, endpoint, referer, nil)
		if err != nil {
			return nil, err
		}
		var check struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(body, &check); err != nil {
			return nil, fmt.Errorf("leetcode: decode submission check: %w", err)
		}
		c.log.DebugContext(ctx, "leetcode.submit.poll",
			slog.Int64("submission_id", id), slog.Int("attempt", attempt), slog.String("state", check.State))
		if check.State == stateSuccess {
			return body, nil
		}
		timer.Reset(c.pollInterval)
	}

	c.log.WarnContext(ctx, "leetcode.submit.poll.timeout", slog.Int64("submission_id", id))
	return json.Marshal(pendingResult{
		SubmissionID: id,
		State:        "PENDING",
		TimedOut:     true,
		Message:      fmt.Sprintf("submission %d is still being judged after %d checks", id, c.pollAttempts),
	})
}
