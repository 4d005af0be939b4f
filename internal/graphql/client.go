// Package graphql talks to the remote auth service over GraphQL, either as
// HTTP POSTs or over a graphql-transport-ws WebSocket.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/render"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "sessionctl/1.0"
	maxErrorBody     = 64 << 10
	errorBodyWidth   = 0
)

// Client is the HTTP GraphQL client.
type Client struct {
	http      *http.Client
	endpoint  string
	userAgent string
	logger    hclog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is ignored;
// each call supplies its own.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the GraphQL endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		endpoint:  endpoint,
		userAgent: defaultUserAgent,
		logger:    hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do posts req and decodes the response data into dst.
func (c *Client) Do(ctx context.Context, jar http.CookieJar, req Request, dst any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/graphql-response+json, application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	// Copy so concurrent calls with different jars never share one client.
	hc := *c.http
	hc.Jar = jar

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting %s: %w", req.OperationName, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("graphql response", "operation", req.OperationName, "request_id", requestID,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	// GraphQL-over-HTTP servers may answer errors with 4xx and a JSON body.
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "json")
	if resp.StatusCode/100 != 2 && !isJSON {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: render.PlainText(string(raw), errorBodyWidth)}
	}

	var gr Response
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		if resp.StatusCode/100 != 2 {
			return &StatusError{Code: resp.StatusCode}
		}
		return fmt.Errorf("decoding %s response: %w", req.OperationName, err)
	}
	if err := decode(&gr, dst); err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx HTTP response without a GraphQL body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}
