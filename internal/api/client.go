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

	"github.com/sethvargo/go-retry"

	"github.com/electrophobia/epterm/internal/observability"
)

// TokenStore is the part of the session store the client needs.
type TokenStore interface {
	Token() string
	Clear() error
}

// Client is the single chokepoint for calls to the ElectroPhobia REST API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	userAgent      string
	timeout        time.Duration
	retries        int
	retryDelay     time.Duration
	onUnauthorized func()

	Experiences *Resource[Experience]
	Projects    *Resource[Project]
	Blogs       *BlogResource
	Products    *Resource[Product]
	Contacts    *ContactResource
}

// Options configure a Client. Zero values pick the defaults.
type Options struct {
	BaseURL string
	Tokens  TokenStore
	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration
	// Retries is how many extra attempts a GET gets after a transport error or 5xx.
	Retries    int
	RetryDelay time.Duration
	// OnUnauthorized runs after a 401 cleared the session.
	OnUnauthorized func()
	HTTPClient     *http.Client
}

const (
	defaultBaseURL    = "http://localhost:5000/api"
	defaultUserAgent  = "epterm/0.1"
	defaultRetryDelay = 500 * time.Millisecond
	maxErrorBody      = 4 << 10
)

// NewClient builds a Client for the API rooted at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	c := &Client{
		baseURL:        base,
		http:           httpClient,
		tokens:         opts.Tokens,
		userAgent:      defaultUserAgent,
		timeout:        opts.Timeout,
		retries:        max(opts.Retries, 0),
		retryDelay:     retryDelay,
		onUnauthorized: opts.OnUnauthorized,
	}
	c.Experiences = newResource[Experience](c, "experiences", "experience")
	c.Projects = newResource[Project](c, "projects", "project")
	c.Blogs = &BlogResource{Resource: newResource[Blog](c, "blogs", "blog")}
	c.Products = newResource[Product](c, "products", "product")
	c.Contacts = &ContactResource{Resource: newResource[Contact](c, "contacts", "contact")}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends one request and decodes the envelope's data into dest, which may be nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, dest any) error {
	raw, err := c.do(ctx, Request{Method: method, Endpoint: endpoint, Body: body})
	if err != nil {
		return err
	}
	if dest == nil || len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Data, dest); err != nil {
		return &TransportError{Op: "decode data", Err: err}
	}
	return nil
}

// Request describes one API call.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
	// Header entries override the defaults, including Content-Type.
	Header http.Header
	// Anonymous requests carry no token and never clear the session on 401.
	Anonymous bool
}

// do sends req and returns the undecoded envelope. GETs are retried per Options.
func (c *Client) do(ctx context.Context, req Request) (*rawEnvelope, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Method != http.MethodGet || c.retries == 0 {
		return c.once(ctx, req)
	}

	var env *rawEnvelope
	backoff := retry.WithMaxRetries(uint64(c.retries), retry.NewConstant(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		env, err = c.once(ctx, req)
		if err != nil && retryable(ctx, err) {
			observability.LoggerFromContext(ctx).Debug("retrying api call", "endpoint", req.Endpoint, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) once(ctx context.Context, req Request) (*rawEnvelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	token := ""
	if !req.Anonymous && c.tokens != nil {
		token = c.tokens.Token()
	}
	log := observability.LoggerFromContext(ctx)
	log.Debug("api call", "method", req.Method, "endpoint", req.Endpoint, "has_token", token != "")

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Endpoint, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
		c.expireSession(ctx)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("non-JSON response", "endpoint", req.Endpoint, "status", resp.StatusCode, "content_type", contentType, "body", string(snippet))
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &APIError{Status: resp.StatusCode, Message: "unauthorized"}
		}
		return nil, &TransportError{Op: fmt.Sprintf("expected JSON but got %q; is the backend server running?", contentType)}
	}

	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransportError{Op: "decode response", Err: err}
	}
	env, err := parseEnvelope(payload)
	if err != nil {
		return nil, &TransportError{Op: "decode response", Err: err}
	}
	log.Debug("api response", "endpoint", req.Endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}

func (c *Client) expireSession(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.Clear(); err != nil {
			observability.LoggerFromContext(ctx).Warn("clear session after 401", "err", err)
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) resolve(endpoint string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsTransport(err) {
		return true
	}
	return StatusOf(err) >= 500
}

func isJSON(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

func parseBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
