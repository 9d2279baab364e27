package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"e6dl/internal/http"
	"e6dl/internal/model"
)

const (
	domainNSFW = "e621.net"
	domainSFW  = "e926.net"
)

// Client talks to the posts API.
//
// The SFW flag routes requests to the content-filtered domain (e926)
// instead of the unfiltered one (e621). The two domains share the same
// request and response shapes; only the visible content differs.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an API client using the given HTTP client.
func NewClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// postsResponse is the envelope the posts endpoint wraps results in.
type postsResponse struct {
	Posts []model.Post `json:"posts"`
}

// SearchPosts queries one page of search results.
//
// Parameters:
//   - tags: space-separated search tags
//   - limit: maximum posts per page (the service caps this at 320)
//   - page: a page number, or before/after syntax like "b12345" / "a12345"
//   - sfw: route to the content-filtered domain
//
// The page token is passed through verbatim; the service interprets it.
func (c *Client) SearchPosts(ctx context.Context, tags string, limit int, page string, sfw bool) ([]model.Post, error) {
	domain := domainNSFW
	if sfw {
		domain = domainSFW
	}

	query := url.Values{}
	query.Set("tags", tags)
	query.Set("page", page)
	query.Set("limit", strconv.Itoa(limit))

	searchURL := fmt.Sprintf("https://%s/posts.json?%s", domain, query.Encode())

	body, err := c.httpClient.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	var pr postsResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return pr.Posts, nil
}

// DownloadFile streams a post's asset to destPath.
//
// This is a thin passthrough to the HTTP client so that callers only
// need the api.Client.
func (c *Client) DownloadFile(ctx context.Context, fileURL, destPath string, onProgress func(written, total int64)) error {
	return c.httpClient.DownloadFile(ctx, fileURL, destPath, onProgress)
}

// DefaultClient builds a Client with the standard e6dl User-Agent and a
// 60 second request timeout.
func DefaultClient(userAgent string, timeoutSeconds int) *Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return NewClient(http.NewClient(userAgent, time.Duration(timeoutSeconds)*time.Second))
}
