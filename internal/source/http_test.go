package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/config"
)

func newTestHTTPAdapter(t *testing.T, handler http.HandlerFunc) *HTTPAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := NewHTTPAdapter(NameSearch, PlatformSearch, config.HTTPSourceConfig{
		Enabled:    true,
		BaseURL:    server.URL,
		Confidence: 0.8,
	}, nil, api.WithRetries(1, time.Millisecond))
	a.now = func() time.Time { return time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC) }
	return a
}

func TestHTTPAdapter_Fetch(t *testing.T) {
	a := newTestHTTPAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trends/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("from") != "2026-03-25" || r.URL.Query().Get("to") != "2026-03-31" {
			t.Errorf("window = %s..%s", r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		}
		vol := 70.0
		json.NewEncoder(w).Encode(api.TrendsResponse{Data: []api.APITrendPoint{
			{Keyword: "Investasi Untuk Pemula", Date: "2026-03-30", SearchVolume: &vol},
			{Keyword: "unrequested", Date: "2026-03-30", SearchVolume: &vol},
			{Keyword: "saham", Date: "2025-01-01", SearchVolume: &vol},
			{Keyword: "", Date: "2026-03-30"},
		}})
	})

	window := NewDateWindow(a.now(), 7)
	points, err := a.Fetch(context.Background(), []string{"investasi untuk pemula", "saham"}, window)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1 (unrequested, out-of-window and malformed dropped)", len(points))
	}

	p := points[0]
	if p.Keyword != "investasi untuk pemula" || p.Platform != PlatformSearch || p.Source != NameSearch {
		t.Errorf("point = %+v", p)
	}
	if p.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", p.Confidence)
	}
	if p.NicheID != "" {
		t.Errorf("NicheID = %q, want empty for the caller to stamp", p.NicheID)
	}
	if !p.FetchedAt.Equal(a.now()) {
		t.Errorf("FetchedAt = %v", p.FetchedAt)
	}
}

func TestHTTPAdapter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    ErrorKind
	}{
		{
			name:    "server down",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			want:    KindUnavailable,
		},
		{
			name:    "bad key",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			want:    KindUnauthorized,
		},
		{
			name:    "unknown platform",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			want:    KindNotFound,
		},
		{
			name:    "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data": [`)) },
			want:    KindBadResponse,
		},
		{
			name: "every row malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[{"keyword":"saham","date":"not-a-date"}]}`))
			},
			want: KindBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestHTTPAdapter(t, tt.handler)
			_, err := a.Fetch(context.Background(), []string{"saham"}, NewDateWindow(a.now(), 7))
			if KindOf(err) != tt.want {
				t.Errorf("err = %v, want kind %q", err, tt.want)
			}
		})
	}
}

func TestHTTPAdapter_Timeout(t *testing.T) {
	a := newTestHTTPAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := a.Fetch(ctx, []string{"saham"}, NewDateWindow(a.now(), 7))
	if KindOf(err) != KindTimeout {
		t.Errorf("err = %v, want kind timeout", err)
	}
}
