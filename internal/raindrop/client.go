package raindrop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dropsum/internal/model"
)

const (
	defaultBaseURL = "https://api.raindrop.io/rest/v1"
	pageSize       = 50

	// Pause between page fetches, applied only when another page
	// is actually needed.
	defaultPageDelay = 500 * time.Millisecond
)

// ErrUnauthorized marks a 401 from the source service: the access
// token is missing or invalid. Callers render credential guidance
// for this one specifically.
var ErrUnauthorized = errors.New("raindrop rejected the access token")

// APIError is a non-2xx response from the source service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("raindrop API error: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) work on 401s while the
// caller still sees the carried status code.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client is a paginated, rate-limited client for the Raindrop REST API.
type Client struct {
	token      string
	baseURL    string
	pageDelay  time.Duration
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithPageDelay overrides the inter-page delay.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) { c.pageDelay = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client authenticated with the given bearer token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:     token,
		baseURL:   defaultBaseURL,
		pageDelay: defaultPageDelay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Items []model.BookmarkItem `json:"items"`
	Count int                  `json:"count"`
}

// Fetch pages through a collection and returns its items in fetch
// order. A tagFilter restricts the search to one tag; maxItems of 0
// means no cap. The last page of a terminating run incurs no
// trailing delay.
func (c *Client) Fetch(ctx context.Context, collection int64, tagFilter string, maxItems int) ([]model.BookmarkItem, error) {
	return c.fetchPages(ctx, collection, tagFilter, func(all []model.BookmarkItem) bool {
		return maxItems > 0 && len(all) >= maxItems
	}, maxItems)
}

// FetchUntilVideoCount pages through a collection and stops as soon
// as the cumulative count of items satisfying isVideo reaches target,
// trading completeness of the local copy for fewer round trips.
// All fetched items are returned, not only the videos.
func (c *Client) FetchUntilVideoCount(ctx context.Context, collection int64, tagFilter string, isVideo func(model.BookmarkItem) bool, target int) ([]model.BookmarkItem, error) {
	videos := 0
	seen := 0
	return c.fetchPages(ctx, collection, tagFilter, func(all []model.BookmarkItem) bool {
		for _, item := range all[seen:] {
			if isVideo(item) {
				videos++
			}
		}
		seen = len(all)
		return target > 0 && videos >= target
	}, 0)
}

// fetchPages drives pagination. done is consulted after every page;
// maxItems of 0 means no truncation of the returned slice.
func (c *Client) fetchPages(ctx context.Context, collection int64, tagFilter string, done func([]model.BookmarkItem) bool, maxItems int) ([]model.BookmarkItem, error) {
	var all []model.BookmarkItem

	for page := 0; ; page++ {
		items, err := c.fetchPage(ctx, collection, tagFilter, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		// A short page means no more data.
		if len(items) < pageSize || done(all) {
			break
		}

		// Another fetch is coming, honor the rate limit.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	if maxItems > 0 && len(all) > maxItems {
		all = all[:maxItems]
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, collection int64, tagFilter string, page int) ([]model.BookmarkItem, error) {
	q := url.Values{}
	q.Set("perpage", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if tagFilter != "" {
		q.Set("search", "#"+tagFilter)
	}
	endpoint := fmt.Sprintf("%s/raindrops/%d?%s", c.baseURL, collection, q.Encode())

	var resp listResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UpdateTags replaces the tag list of one bookmark.
func (c *Client) UpdateTags(ctx context.Context, itemID int64, tags []string) error {
	endpoint := fmt.Sprintf("%s/raindrop/%d", c.baseURL, itemID)

	body, err := json.Marshal(map[string][]string{"tags": tags})
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Verify checks connectivity and credentials against the user endpoint.
func (c *Client) Verify(ctx context.Context) error {
	return c.get(ctx, c.baseURL+"/user", nil)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("raindrop request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
