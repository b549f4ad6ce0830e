// Package apiclient wraps the CraftyXhub HTTP API. Responses are decoded into
// explicit types and validated; shapes that do not match are rejected with
// errors.ErrMalformedResponse.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

// Client represents an HTTP client for the CraftyXhub API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	validate   *validator.Validate
}

type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Bearer auth is layered on top of
// its transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenSource authenticates content requests with tokens from ts. A
// sessions.Provider is a TokenSource.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a new API client for baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		validate:   validator.New(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateVariants calls POST /ai/generate and returns the unwrapped variants.
func (c *Client) GenerateVariants(ctx context.Context, req GenerateRequest) ([]Variant, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s", err.Error())
	}
	var resp generateResponse
	if err := c.do(ctx, c.authedClient(), http.MethodPost, "/ai/generate", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Variants, nil
}

// ListPosts calls GET /posts and returns the unwrapped posts.
func (c *Client) ListPosts(ctx context.Context, q PostsQuery) ([]Post, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.CategoryID > 0 {
		params.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var resp postsResponse
	if err := c.do(ctx, c.authedClient(), http.MethodGet, "/posts", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// ListCategories calls GET /categories. The body is a bare array.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, c.authedClient(), http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		return nil, errors.Wrapf(errors.ErrMalformedResponse, "GET /categories: expected an array")
	}
	for i := range categories {
		if err := c.validate.Struct(&categories[i]); err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedResponse, "GET /categories[%d]: %s", i, err.Error())
		}
	}
	return categories, nil
}

// GetDashboardStats calls GET /dashboard/stats.
func (c *Client) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	var wire dashboardStatsWire
	if err := c.do(ctx, c.authedClient(), http.MethodGet, "/dashboard/stats", nil, nil, &wire); err != nil {
		return DashboardStats{}, err
	}
	return wire.stats(), nil
}

// authedClient adds bearer auth from the token source, when there is one.
func (c *Client) authedClient() *http.Client {
	if c.tokens == nil {
		return c.httpClient
	}
	return bearerClient(c.httpClient, c.tokens)
}

func bearerClient(base *http.Client, ts oauth2.TokenSource) *http.Client {
	client := *base
	client.Transport = &oauth2.Transport{Source: ts, Base: base.Transport}
	return &client
}

// do sends the request and decodes a 2xx JSON body into out. Structs are validated
// after decoding.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", errors.ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			return errors.Wrapf(errors.ErrNotAuthenticated, "%s %s: %s", method, path, strings.TrimSpace(string(respBody)))
		}
		return errors.Wrapf(errors.ErrUpstream, "%s %s (status %d): %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.ErrMalformedResponse, "%s %s: %s", method, path, err.Error())
	}
	if isStruct(out) {
		if err := c.validate.Struct(out); err != nil {
			return errors.Wrapf(errors.ErrMalformedResponse, "%s %s: %s", method, path, err.Error())
		}
	}
	return nil
}

func isStruct(v any) bool {
	return reflect.Indirect(reflect.ValueOf(v)).Kind() == reflect.Struct
}
