// Package backend is the HTTP client for the external occasion-reminder API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/reminder-bff/internal/config"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const maxResponseBytes = 1 << 20

// Client calls the backend API. Every call is bounded by the client timeout.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

func NewClientFromConfig(cfg config.BackendConfig) *Client {
	return NewClient(cfg.GetBackendURL(), cfg.GetBackendTimeout(), nil)
}

// Response is a raw backend reply that handlers may relay to the browser.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Do sends a JSON request. bearer is added as an Authorization header when set.
// The returned error is only non-nil when the backend could not be reached or
// its reply could not be read; HTTP error statuses are returned in Response.
func (c *Client) Do(ctx context.Context, method, path, bearer string, body any) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := tracing.Start(ctx, "backend "+method+" "+path,
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	resp, err := c.do(ctx, method, path, bearer, body)
	if err == nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	tracing.End(span, err)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[backend %s %s] encoding body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("[backend %s %s] %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUpstreamUnavailable, method+" "+path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.New(apperrors.KindUpstreamUnavailable, "reading "+path, err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: data}, nil
}

// statusError classifies a non-2xx reply from an authenticated call.
func statusError(path string, resp *Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(apperrors.KindUnauthenticated, fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
	default:
		return apperrors.New(apperrors.KindUpstreamUnavailable, fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
	}
}
