package gauntlet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var ErrUpstreamFetch = errors.New("upstream gauntlet fetch failed")

const (
	searchPath      = "/gamedata/public/v1/gauntlet/search"
	defaultPageSize = 100
	defaultRetries  = 3
	defaultTimeout  = 60 * time.Second
)

type ClientConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	PageSize   int
	MaxRetries int
	Logger     *slog.Logger
}

// Client talks to the third-party game API. All reads are idempotent, so
// transport and 5xx failures retry with exponential backoff up to
// MaxRetries; 4xx responses fail immediately.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageSize   int
	maxRetries int
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// SearchRequest is the upstream search body. Zero-value Players means all.
type SearchRequest struct {
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Players   []string `json:"players"`
	Mode      string   `json:"mode"`
	Count     int      `json:"count"`
	Cursor    string   `json:"cursor,omitempty"`
}

// rawPage tolerates the cursor field name drifting between API versions.
type rawPage struct {
	Games       []json.RawMessage `json:"games"`
	Cursor      string            `json:"cursor"`
	NextCursor  string            `json:"nextCursor"`
	NextCursor2 string            `json:"next_cursor"`
}

func (p *rawPage) nextCursor() string {
	if p.Cursor != "" {
		return p.Cursor
	}
	if p.NextCursor != "" {
		return p.NextCursor
	}
	return p.NextCursor2
}

// SearchPage fetches a single page of games.
func (c *Client) SearchPage(ctx context.Context, req SearchRequest) ([]GameRecord, string, error) {
	records, _, cursor, err := c.searchPage(ctx, req)
	return records, cursor, err
}

// searchPage also reports the raw upstream game count, before unparseable
// entries are dropped. Pagination keys off that count: a full page with a
// skipped game is still a full page.
func (c *Client) searchPage(ctx context.Context, req SearchRequest) ([]GameRecord, int, string, error) {
	if req.Mode == "" {
		req.Mode = "Ranked"
	}
	if req.Count <= 0 {
		req.Count = c.pageSize
	}
	if req.Players == nil {
		req.Players = []string{}
	}

	var page rawPage
	if err := c.doWithRetry(ctx, req, &page); err != nil {
		return nil, 0, "", err
	}

	records := make([]GameRecord, 0, len(page.Games))
	for _, raw := range page.Games {
		rec, err := Normalize(raw)
		if err != nil {
			c.logger.Warn("skipping unparseable game record", slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}
	return records, len(page.Games), page.nextCursor(), nil
}

// FetchAllMatches follows the next-cursor chain over the requested window.
// The loop terminates when the upstream page comes back shorter than the
// requested count, even if the API still hands back a cursor.
func (c *Client) FetchAllMatches(ctx context.Context, startDate, endDate time.Time) ([]GameRecord, error) {
	req := SearchRequest{
		StartDate: startDate.UTC().Format(time.RFC3339),
		EndDate:   endDate.UTC().Format(time.RFC3339),
		Count:     c.pageSize,
	}

	var all []GameRecord
	for {
		records, fetched, cursor, err := c.searchPage(ctx, req)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		if fetched < req.Count || cursor == "" {
			break
		}
		req.Cursor = cursor
	}
	return all, nil
}

func (c *Client) doWithRetry(ctx context.Context, req SearchRequest, out *rawPage) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %w", ErrUpstreamFetch, err)
	}

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.doOnce(ctx, body, out)
		if lastErr == nil {
			return nil
		}
		var retryable *retryableError
		if !errors.As(lastErr, &retryable) {
			return lastErr
		}
		if attempt == c.maxRetries {
			break
		}
		c.logger.Warn("upstream fetch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", lastErr))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrUpstreamFetch, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// retryableError marks transport and 5xx failures that backoff may resolve.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) doOnce(ctx context.Context, body []byte, out *rawPage) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrUpstreamFetch, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &retryableError{fmt.Errorf("%w: %w", ErrUpstreamFetch, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{fmt.Errorf("%w: reading response: %w", ErrUpstreamFetch, err)}
	}

	switch {
	case resp.StatusCode >= 500:
		return &retryableError{fmt.Errorf("%w: upstream returned %d", ErrUpstreamFetch, resp.StatusCode)}
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: upstream returned %d: %s", ErrUpstreamFetch, resp.StatusCode, truncate(respBody, 256))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: unparseable payload: %w", ErrUpstreamFetch, err)
	}
	return nil
}

// Forward relays an arbitrary search body upstream with the fixed fields the
// proxy always sets, returning the upstream status and body verbatim.
func (c *Client) Forward(ctx context.Context, body map[string]interface{}) (int, []byte, error) {
	merged := make(map[string]interface{}, len(body)+4)
	for k, v := range body {
		merged[k] = v
	}
	merged["mode"] = "Ranked"
	if _, ok := merged["count"]; !ok {
		merged["count"] = c.pageSize
	}
	merged["sort"] = map[string]interface{}{"startTime": "desc"}
	merged["filter"] = map[string]interface{}{}

	raw, err := json.Marshal(merged)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: encoding proxy body: %w", ErrUpstreamFetch, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: building proxy request: %w", ErrUpstreamFetch, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading proxy response: %w", ErrUpstreamFetch, err)
	}
	return resp.StatusCode, respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
