package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://trends.example.com/v1/", "test-key")

		if c.baseURL != "https://trends.example.com/v1" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
		}
		if c.apiKey != "test-key" {
			t.Errorf("apiKey = %q, want %q", c.apiKey, "test-key")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 2 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 2)
		}
		if c.pageLimit != 500 {
			t.Errorf("pageLimit = %d, want %d", c.pageLimit, 500)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://trends.example.com", "key",
			WithTimeout(5*time.Second),
			WithRetries(4, 50*time.Millisecond),
			WithPageLimit(25),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 4 || c.retryBackoff != 50*time.Millisecond {
			t.Errorf("retries = %d/%v, want 4/50ms", c.maxRetries, c.retryBackoff)
		}
		if c.pageLimit != 25 {
			t.Errorf("pageLimit = %d, want 25", c.pageLimit)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		hc := &http.Client{Timeout: time.Second}
		c := NewClient("https://trends.example.com", "", WithHTTPClient(hc))
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
	})
}

func TestAPIError(t *testing.T) {
	if got := (&APIError{StatusCode: 404, Message: "Not Found"}).Error(); got != "trend api 404: Not Found" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{StatusCode: 400, Code: "bad_window", Message: "from after to"}).Error(); got != "trend api 400 bad_window: from after to" {
		t.Errorf("Error() with code = %q", got)
	}

	tests := []struct {
		code      int
		retryable bool
		auth      bool
		notFound  bool
	}{
		{500, true, false, false},
		{502, true, false, false},
		{503, true, false, false},
		{429, true, false, false},
		{408, true, false, false},
		{400, false, false, false},
		{401, false, true, false},
		{403, false, true, false},
		{404, false, false, true},
		{499, false, false, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.retryable {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.retryable)
		}
		if got := err.IsAuth(); got != tt.auth {
			t.Errorf("IsAuth() for status %d = %v, want %v", tt.code, got, tt.auth)
		}
		if got := err.IsNotFound(); got != tt.notFound {
			t.Errorf("IsNotFound() for status %d = %v, want %v", tt.code, got, tt.notFound)
		}
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		body       string
		wantCode   string
		wantMsg    string
		wantWait   time.Duration
	}{
		{"plain body", 502, "", "upstream down", "", "Bad Gateway", 0},
		{"string envelope", 401, "", `{"error":"bad key"}`, "", "bad key", 0},
		{"object envelope", 400, "", `{"error":{"code":"bad_window","message":"from after to"}}`, "bad_window", "from after to", 0},
		{"retry after seconds", 429, "3", `{}`, "", "Too Many Requests", 3 * time.Second},
		{"retry after capped", 429, "3600", ``, "", "Too Many Requests", maxRetryAfter},
		{"retry after date ignored", 503, "Wed, 21 Oct 2026 07:28:00 GMT", ``, "", "Service Unavailable", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			e := newAPIError(resp, []byte(tt.body))
			if e.Code != tt.wantCode || e.Message != tt.wantMsg || e.RetryAfter != tt.wantWait {
				t.Errorf("got code %q msg %q wait %v, want %q %q %v", e.Code, e.Message, e.RetryAfter, tt.wantCode, tt.wantMsg, tt.wantWait)
			}
		})
	}
}

func TestDoRequest(t *testing.T) {
	t.Run("sends headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q", r.Header.Get("Accept"))
			}
			if r.Header.Get("Authorization") != "Bearer test-key" {
				t.Errorf("Authorization header = %q", r.Header.Get("Authorization"))
			}
			if !strings.HasPrefix(r.Header.Get("User-Agent"), "trendintel/") {
				t.Errorf("User-Agent header = %q", r.Header.Get("User-Agent"))
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "test-key")
		body, err := c.doRequest(context.Background(), http.MethodGet, "/status", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status":"ok"}` {
			t.Errorf("body = %q", string(body))
		}
	})

	t.Run("omits authorization without key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("Authorization header should be empty, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		if _, err := NewClient(server.URL, "").doRequest(context.Background(), http.MethodGet, "/status", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx returns APIError with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"bad key"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "key").doRequest(context.Background(), http.MethodGet, "/status", nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T (%v)", err, err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
		}
		if !strings.Contains(string(apiErr.Body), "bad key") {
			t.Errorf("Body = %q, want it to contain 'bad key'", string(apiErr.Body))
		}
		if apiErr.Message != "bad key" || !apiErr.IsAuth() {
			t.Errorf("Message = %q auth = %v, want provider message and auth error", apiErr.Message, apiErr.IsAuth())
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewClient(server.URL, "key").doRequest(ctx, http.MethodGet, "/status", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		status       int
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{"succeeds first try", 0, http.StatusOK, 3, false, 1},
		{"retries 5xx then succeeds", 2, http.StatusBadGateway, 3, false, 3},
		{"retries 429 then succeeds", 1, http.StatusTooManyRequests, 3, false, 2},
		{"gives up after max retries", 10, http.StatusServiceUnavailable, 2, true, 3},
		{"does not retry 4xx", 10, http.StatusBadRequest, 3, true, 1},
		{"does not retry rejected key", 10, http.StatusUnauthorized, 3, true, 1},
		{"retries request timeout", 1, http.StatusRequestTimeout, 3, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&attempts, 1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte(`{"ok":true}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, "key", WithRetries(tt.retries, 5*time.Millisecond))
			_, err := c.doWithRetry(context.Background(), http.MethodGet, "/trends/search", nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&attempts); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}

	t.Run("waits for Retry-After", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetries(1, 5*time.Millisecond))
		start := time.Now()
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/trends/search", nil); err != nil {
			t.Fatalf("doWithRetry: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("retried after %v, want Retry-After of 1s honoured", elapsed)
		}
	})

	t.Run("stops waiting when context is cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c := NewClient(server.URL, "key", WithRetries(5, time.Second))
		start := time.Now()
		_, err := c.doWithRetry(ctx, http.MethodGet, "/trends/search", nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
		if time.Since(start) > 900*time.Millisecond {
			t.Errorf("retry loop ignored cancellation, took %v", time.Since(start))
		}
	})
}

func TestGetTrends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trends/search" {
			t.Errorf("path = %q, want /trends/search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("keywords") != "investasi,saham" {
			t.Errorf("keywords = %q", q.Get("keywords"))
		}
		if q.Get("from") != "2026-01-01" || q.Get("to") != "2026-03-31" {
			t.Errorf("window = %s..%s", q.Get("from"), q.Get("to"))
		}
		json.NewEncoder(w).Encode(TrendsResponse{
			Data: []APITrendPoint{{Keyword: "investasi", Date: "2026-03-01", SearchVolume: ptr(70)}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	resp, err := c.GetTrends(context.Background(), TrendsOptions{
		Platform: "search",
		Keywords: []string{"investasi", "saham"},
		From:     "2026-01-01",
		To:       "2026-03-31",
	})
	if err != nil {
		t.Fatalf("GetTrends failed: %v", err)
	}
	if len(resp.Data) != 1 || *resp.Data[0].SearchVolume != 70 {
		t.Errorf("Data = %+v", resp.Data)
	}
	if resp.Data[0].CPC != nil {
		t.Errorf("CPC = %v, want nil for omitted metric", *resp.Data[0].CPC)
	}

	if _, err := c.GetTrends(context.Background(), TrendsOptions{}); err == nil {
		t.Error("GetTrends without platform expected error")
	}
}

func TestGetAllTrends(t *testing.T) {
	t.Run("follows cursor", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			if r.URL.Query().Get("limit") != "2" {
				t.Errorf("limit = %q, want 2", r.URL.Query().Get("limit"))
			}
			switch r.URL.Query().Get("cursor") {
			case "":
				json.NewEncoder(w).Encode(TrendsResponse{
					Data:   []APITrendPoint{{Keyword: "a", Date: "2026-03-01"}, {Keyword: "b", Date: "2026-03-01"}},
					Cursor: "page2",
				})
			case "page2":
				json.NewEncoder(w).Encode(TrendsResponse{
					Data: []APITrendPoint{{Keyword: "c", Date: "2026-03-01"}},
				})
			}
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithPageLimit(2))
		points, err := c.GetAllTrends(context.Background(), TrendsOptions{Platform: "video"})
		if err != nil {
			t.Fatalf("GetAllTrends failed: %v", err)
		}
		if len(points) != 3 {
			t.Errorf("len(points) = %d, want 3", len(points))
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("rejects repeated cursor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(TrendsResponse{Cursor: "same"})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "key").GetAllTrends(context.Background(), TrendsOptions{Platform: "social"})
		if err == nil || !strings.Contains(err.Error(), "repeated") {
			t.Errorf("err = %v, want repeated cursor error", err)
		}
	})
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok","version":"2.1"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, "key").GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "2.1" {
		t.Errorf("resp = %+v", resp)
	}
}

func ptr(v float64) *float64 { return &v }
