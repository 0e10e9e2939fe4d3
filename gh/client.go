package gh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/sirupsen/logrus"
)

// TokenSource returns the current access token, or "" when unauthenticated.
// A function rather than a string so a re-authenticated session takes effect
// without rebuilding the client.
type TokenSource func() string

// Client is a thin wrapper over the provider's REST surface. It translates
// HTTP status codes into the typed error taxonomy and records granted OAuth
// scopes from response headers. It never retries: retry policy belongs to
// callers, and a blind retry on a write could duplicate a commit.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   TokenSource
	log     *logrus.Entry

	mu     sync.Mutex
	scopes []string
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, token TokenSource) *Client {
	return NewClientWithHTTP(baseURL, token, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a client using the supplied HTTP client.
func NewClientWithHTTP(baseURL string, token TokenSource, httpc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		token:   token,
		log:     logging.NewLogger("gh"),
	}
}

// Scopes returns the OAuth scopes granted to the current token, as reported
// by the most recent API response.
func (c *Client) Scopes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scopes...)
}

// HasScope reports whether the current token carries the named scope.
func (c *Client) HasScope(name string) bool {
	for _, s := range c.Scopes() {
		if s == name {
			return true
		}
	}
	return false
}

type apiMessage struct {
	Message string `json:"message"`
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do issues a single authenticated request. body is JSON-encoded when
// non-nil; out is JSON-decoded when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("API request")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.TransportError(err)
	}
	defer resp.Body.Close()

	c.recordScopes(resp.Header.Get("X-OAuth-Scopes"))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.TransportError(fmt.Errorf("malformed response body: %w", err))
		}
		return nil
	}

	return c.statusError(resp, path)
}

// statusError maps a non-2xx response onto the error taxonomy.
func (c *Client) statusError(resp *http.Response, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var msg apiMessage
	_ = json.Unmarshal(raw, &msg)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.AuthExpired()
	case http.StatusNotFound:
		return errors.NotFound(path)
	case http.StatusConflict:
		return errors.ConflictDetected(path)
	case http.StatusUnprocessableEntity:
		return errors.ValidationFailed(msg.Message)
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.StatusCode == http.StatusTooManyRequests || resp.Header.Get("X-RateLimit-Remaining") == "0" {
			reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
			return errors.RateLimited(reset)
		}
	}
	return errors.Unknown(resp.StatusCode, string(raw))
}

func (c *Client) recordScopes(header string) {
	if header == "" {
		return
	}
	parts := strings.Split(header, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	c.mu.Lock()
	c.scopes = scopes
	c.mu.Unlock()
}

// escapePath escapes each segment of a repository-relative path for use in a
// request URL, preserving the separating slashes.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
