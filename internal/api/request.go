package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20

	// maxRetryAfter bounds how long a Retry-After header can stall a fetch.
	maxRetryAfter = 30 * time.Second
)

// APIError is a non-2xx answer from a trend API. Message and Code come from
// the JSON error envelope when the provider sends one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("trend api %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("trend api %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the provider may answer differently later:
// server errors, rate limiting and request timeouts.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return e.StatusCode >= 500
}

// IsAuth reports a rejected or missing API key.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports an unknown platform or endpoint.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// errorEnvelope accepts both {"error":"msg"} and
// {"error":{"code":"...","message":"..."}}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Body:       body,
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || len(env.Error) == 0 {
		return e
	}
	var msg string
	if json.Unmarshal(env.Error, &msg) == nil && msg != "" {
		e.Message = msg
		return e
	}
	var detail errorDetail
	if json.Unmarshal(env.Error, &detail) == nil {
		e.Code = detail.Code
		if detail.Message != "" {
			e.Message = detail.Message
		}
	}
	return e
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates
// and garbage yield zero.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp, body)
	}

	return body, nil
}

// doWithRetry retries retryable API errors with jittered exponential backoff.
// A Retry-After longer than the current backoff replaces it.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff * [0.5, 1.5)
			wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			c.logger.Debug("retrying trend request",
				"attempt", attempt,
				"wait", wait,
				"path", path,
				"err", lastErr,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s %s: gave up after %d attempts: %w", method, path, c.maxRetries+1, lastErr)
}

// get performs a GET request with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
