// Package api is the REST client for the project/cost-management server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the connection settings for the REST API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client issues authenticated JSON requests. Failed calls are not retried.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	observer Observer
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config, observer Observer) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	requestID := uuid.NewString()
	status, err := c.roundTrip(ctx, requestID, method, path, query, body, out)
	c.observer.OnCallComplete(CallEvent{
		RequestID: requestID,
		Method:    method,
		Path:      path,
		Status:    status,
		Latency:   time.Since(start),
		ErrorCode: errorCode(err),
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, requestID, method, path string, query url.Values, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return 0, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &Error{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    parseErrorMessage(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return resp.StatusCode, nil
	}
	if err := decodeBody(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

// decodeBody accepts both bare payloads and the {"data": ...} envelope some
// endpoints wrap their results in.
func decodeBody(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 && (env.Data[0] == '[' || env.Data[0] == '{') {
			if err := json.Unmarshal(env.Data, out); err == nil {
				return nil
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

// Ping checks whether the API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := c.do(ctx, http.MethodGet, "/dashboard/summary", nil, nil, nil)
	var apiErr *Error
	if errors.As(err, &apiErr) {
		// Any HTTP answer means the server is reachable.
		return nil
	}
	return err
}
