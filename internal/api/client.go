package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"consult-client/internal/models"
)

const defaultTimeout = 10 * time.Second

var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrNotFound     = errors.New("api: not found")
)

// StatusError is returned for non-2xx responses that are not covered by a
// sentinel error.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// TokenSource supplies the bearer credential attached to every request.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// Options configures the base client.
type Options struct {
	// Tokens, when set, provides the bearer credential per request.
	Tokens TokenSource
	// OnSessionExpired is invoked on every 401 response, before the error
	// is returned. The auth store's Clear hangs off this hook so a dead
	// session is wiped exactly once per detection, matching the forced
	// logout the front end performs.
	OnSessionExpired func()
	Timeout          time.Duration
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// Client is the shared HTTP layer under the typed sub-clients. It owns
// JSON encoding, bearer injection, the request timeout and global 401
// handling.
type Client struct {
	base             *url.URL
	http             *http.Client
	tokens           TokenSource
	onSessionExpired func()
	logger           *zap.Logger
}

// New builds a client for the service rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:             base,
		http:             httpClient,
		tokens:           opts.Tokens,
		onSessionExpired: opts.OnSessionExpired,
		logger:           logger,
	}, nil
}

// do performs one JSON request. body and out may be nil; query may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("api: read credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("session rejected by server", zap.String("path", path))
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, method, path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody models.ErrorResponse
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Message != "" {
			msg = errBody.Message
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
