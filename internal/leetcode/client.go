// Package leetcode is the upstream access provider: a small client for
// LeetCode's GraphQL API and the submission REST endpoints, authenticated with
// the browser session cookie and CSRF token.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://leetcode.com"
	DefaultTimeout      = 30 * time.Second
	DefaultRateLimit    = 5
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
	DefaultCacheTTL     = time.Hour

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
	cacheBucket      = "leetcode"
	maxErrorBody     = 512
)

var (
	// ErrMissingSession is returned by New when no session cookie is configured.
	ErrMissingSession = errors.New("leetcode: session cookie is required")
	// ErrAuthRequired is wrapped by operations that need a signed-in user when
	// the client has no CSRF token.
	ErrAuthRequired = errors.New("authentication required")
)

// HTTPError reports a non-2xx upstream response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("leetcode: unexpected status %d: %s", e.Status, e.Body)
}

// GraphQLError carries the errors[] array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("leetcode: %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// Config configures a Client. Zero values select the package defaults.
type Config struct {
	BaseURL   string
	Session   string
	CSRFToken string
	Timeout   time.Duration
	// RateLimit is the sustained number of upstream requests per second.
	// Negative disables limiting.
	RateLimit    float64
	PollAttempts int
	PollInterval time.Duration
	CacheTTL     time.Duration
	UserAgent    string

	// Cache stores immutable payloads (problems, solution articles). Nil
	// disables caching.
	Cache      storage.Storage
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to LeetCode. It is safe for concurrent use.
type Client struct {
	baseURL      string
	session      string
	userAgent    string
	pollAttempts int
	pollInterval time.Duration
	cacheTTL     time.Duration

	http    *http.Client
	limiter *rate.Limiter
	cache   storage.Storage
	log     *slog.Logger

	mu   sync.RWMutex
	csrf string
}

// New builds a Client. When cfg.CSRFToken is empty the token is fetched once
// from the csrftoken cookie of the home page; failing to obtain it leaves the
// client unauthenticated but usable for public queries.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Session) == "" {
		return nil, ErrMissingSession
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		session:      strings.TrimSpace(cfg.Session),
		userAgent:    cfg.UserAgent,
		pollAttempts: cfg.PollAttempts,
		pollInterval: cfg.PollInterval,
		cacheTTL:     cfg.CacheTTL,
		http:         cfg.HTTPClient,
		cache:        cfg.Cache,
		log:          cfg.Logger,
		csrf:         strings.TrimSpace(cfg.CSRFToken),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.pollAttempts <= 0 {
		c.pollAttempts = DefaultPollAttempts
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = DefaultCacheTTL
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With(slog.String("module", "leetcode"))

	switch {
	case cfg.RateLimit < 0:
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	case cfg.RateLimit == 0:
		c.limiter = rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit)
	default:
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}

	if c.csrf == "" {
		if err := c.refreshCSRF(ctx); err != nil {
			c.log.WarnContext(ctx, "leetcode.csrf.fetch.fail", slog.String("err", err.Error()))
		}
	}
	c.log.InfoContext(ctx, "leetcode.client.ready", slog.Bool("authenticated", c.IsAuthenticated()))
	return c, nil
}

// IsAuthenticated reports whether both the session cookie and a CSRF token
// are available.
func (c *Client) IsAuthenticated() bool {
	return c.session != "" && c.csrfToken() != ""
}

func (c *Client) csrfToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

// refreshCSRF loads the home page and picks the csrftoken cookie, falling
// back to the token embedded in the page body.
func (c *Client) refreshCSRF(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", "LEETCODE_SESSION="+c.session)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	token := ""
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			token = cookie.Value
			break
		}
	}
	if token == "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		const marker = `"csrfToken":"`
		if i := bytes.Index(body, []byte(marker)); i >= 0 {
			rest := body[i+len(marker):]
			if j := bytes.IndexByte(rest, '"'); j > 0 {
				token = string(rest[:j])
			}
		}
	}
	if token == "" {
		return errors.New("leetcode: csrftoken cookie not found")
	}

	c.mu.Lock()
	c.csrf = token
	c.mu.Unlock()
	c.log.DebugContext(ctx, "leetcode.csrf.refresh.ok")
	return nil
}

// do waits for the rate limiter and performs req.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) setCommonHeaders(req *http.Request, referer string) {
	csrf := c.csrfToken()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("X-CSRFToken", csrf)
	req.Header.Set("Cookie", fmt.Sprintf("LEETCODE_SESSION=%s; csrftoken=%s", c.session, csrf))
}

// send performs an authenticated request and returns the body of a 2xx
// response.
func (c *Client) send(ctx context.Context, method, url, referer string, body []byte) ([]byte, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req, referer)

	resp, err := c.do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("leetcode: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("leetcode: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &HTTPError{Status: resp.StatusCode, Body: truncate(string(b), maxErrorBody)}
	}
	return b, resp.StatusCode, nil
}

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphql runs query and decodes its data object into out.
func (c *Client) graphql(ctx context.Context, op, query string, vars map[string]any, out any) error {
	start := time.Now()
	payload, err := json.Marshal(graphQLRequest{OperationName: op, Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("leetcode: encode %s: %w", op, err)
	}

	body, _, err := c.send(ctx, http.MethodPost, c.baseURL+"/graphql", c.baseURL+"/", payload)
	if err != nil {
		c.log.WarnContext(ctx, "leetcode.graphql.fail", slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("leetcode: decode %s: %w", op, err)
	}
	if len(resp.Errors) > 0 {
		gqlErr := &GraphQLError{Operation: op}
		for _, e := range resp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		c.log.WarnContext(ctx, "leetcode.graphql.fail", slog.String("op", op), slog.String("err", gqlErr.Error()))
		return gqlErr
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("leetcode: decode %s data: %w", op, err)
		}
	}
	c.log.DebugContext(ctx, "leetcode.graphql.ok", slog.String("op", op), slog.Duration("dur", time.Since(start)))
	return nil
}

// cached serves key from the cache, calling fetch and storing its result on a
// miss. Cache faults never fail the call.
func (c *Client) cached(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if c.cache == nil {
		return fetch(ctx)
	}
	item, err := c.cache.Get(ctx, key, storage.WithCache(cacheBucket))
	if err != nil {
		c.log.WarnContext(ctx, "leetcode.cache.get.fail", slog.String("key", key), slog.String("err", err.Error()))
	} else if item != nil {
		c.log.DebugContext(ctx, "leetcode.cache.hit", slog.String("key", key))
		return json.RawMessage(item.Data), nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, v, storage.WithCache(cacheBucket), storage.WithTTL(c.cacheTTL)); err != nil {
		c.log.WarnContext(ctx, "leetcode.cache.set.fail", slog.String("key", key), slog.String("err", err.Error()))
	}
	return v, nil
}

func (c *Client) requireAuth(op string) error {
	if !c.IsAuthenticated() {
		return fmt.Errorf("%w to %s", ErrAuthRequired, op)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
