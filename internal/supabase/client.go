// Package supabase implements backend.Backend against a hosted Supabase project,
// speaking PostgREST for data and GoTrue for auth.
package supabase

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

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"vocabquiz/internal/backend"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1/"
)

// APIError is a non-2xx response from either API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// Client talks to one Supabase project
type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client
	logger     *logrus.Entry
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger.WithField("component", "supabase") }
}

// New creates a client for the project at projectURL using its anon key
func New(projectURL, anonKey string, opts ...Option) (*Client, error) {
	if projectURL == "" || anonKey == "" {
		return nil, errors.New("supabase: project URL and anon key are required")
	}
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("supabase: invalid project URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("supabase: invalid project URL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    u,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logrus.StandardLogger().WithField("component", "supabase"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ backend.Backend = (*Client)(nil)

// clientFor returns an HTTP client that sends token as the bearer. Without a
// user token the anon key is used, which row-level security treats as anonymous.
func (c *Client) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		token = c.anonKey
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil
func (c *Client) do(ctx context.Context, token, method, endpoint string, headers http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.clientFor(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("supabase request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Supabase request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeAPIError understands both the PostgREST and GoTrue error shapes
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	apiErr.Code = payload.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = payload.Error
	}
	if apiErr.Code == "" {
		var code string
		if json.Unmarshal(payload.Code, &code) == nil {
			apiErr.Code = code
		}
	}
	for _, msg := range []string{payload.Msg, payload.ErrorDescription, payload.Message} {
		if msg != "" {
			apiErr.Message = msg
			break
		}
	}
	return apiErr
}
