package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/citasalud/bookingcore/internal/infrastructure/observability"
	"github.com/citasalud/bookingcore/pkg/config"
)

// Client is the raw REST client for the hosted backend: the auth API under
// /auth/v1 and the table query API under /rest/v1. Every call runs under a
// per-call deadline, so a request that outlives the timeout is aborted at
// the transport instead of racing on after failure has been reported.
type Client struct {
	baseURL    string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewClient creates a new backend client
func NewClient(cfg *config.BackendConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, fmt.Errorf("backend anon key is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		timeout: timeout,
		// The deadline lives on the per-call context, not here, so callers
		// can impose a shorter one of their own.
		httpClient: &http.Client{},
	}, nil
}

// SetMetrics attaches backend-call metrics recording
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// Ping verifies connectivity with a minimal table read
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	return c.do(ctx, call{
		method:    http.MethodGet,
		path:      "/rest/v1/profiles",
		query:     q,
		operation: "ping",
	}, nil)
}

type call struct {
	method    string
	path      string
	query     url.Values
	token     string
	body      any
	headers   map[string]string
	operation string
}

func (c *Client) do(ctx context.Context, cl call, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "backend."+cl.operation)
	defer span.End()

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.addHeaders(req, cl.token)
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordBackendCall(ctx, c.metrics, cl.operation, 0, time.Since(start))
		mapped := mapTransportError(ctx, err)
		observability.RecordError(span, mapped)
		return mapped
	}
	defer resp.Body.Close()
	observability.RecordBackendCall(ctx, c.metrics, cl.operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp)
		observability.RecordError(span, apiErr)
		return apiErr
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", c.anonKey)
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")
}
