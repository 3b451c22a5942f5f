package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is used when New is given an empty base URL.
	DefaultBaseURL = "http://localhost:8000/api"

	maxErrorBody = 1 << 20
)

// Client is a typed client for the docshare HTTP API.
// Authentication is the job of the http.Client transport; see package gateway.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client for baseURL, e.g. "http://localhost:8000/api".
func New(baseURL string, httpClient *http.Client, options ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[api New] invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("[api New] base url %q must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: httpClient,
		log:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends in (if any) as JSON and decodes a 2xx body into out (if any).
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[api %s] encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("[api %s] %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(op, req, out)
}

// send dispatches req and decodes the answer.
func (c *Client) send(op string, req *http.Request, out interface{}) error {
	resp, err := c.do(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[api %s] %w: %v", op, dserrors.ErrMalformedResponse, err)
	}
	return nil
}

// do dispatches req and turns transport failures and non-2xx answers into
// errors. On success the caller owns the response body.
func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("[api %s] %w", op, ctxErr)
		}
		return nil, fmt.Errorf("[api %s] %w: %v", op, dserrors.ErrTransport, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := dserrors.NewAPIError(resp.StatusCode, raw)
	c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("api error")
	return nil, fmt.Errorf("[api %s] %w", op, apiErr)
}

// decodeList accepts a bare JSON array or a paginated {"results": [...]} page.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	}
	var list []T
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func getList[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("[api %s] %w: %v", op, dserrors.ErrMalformedResponse, err)
	}
	return items, nil
}
