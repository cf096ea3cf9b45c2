package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pathwise/trendintel/internal/config"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Trending</title>
  <item>
    <title>Investasi untuk pemula makin dicari</title>
    <description>Minat &lt;b&gt;saham&lt;/b&gt; naik.</description>
    <pubDate>Mon, 30 Mar 2026 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Tips investasi, untuk pemula!</title>
    <pubDate>Mon, 30 Mar 2026 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Investasi untuk pemula: arsip lama</title>
    <pubDate>Thu, 01 Jan 2026 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Sahamku bukan keyword</title>
    <pubDate>Mon, 30 Mar 2026 12:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

func TestRSSAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	a := NewRSSAdapter(config.RSSSourceConfig{
		Enabled:    true,
		Feeds:      []string{server.URL, server.URL + "/missing-but-served"},
		Confidence: 0.5,
	}, time.Second, nil)
	now := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	points, err := a.Fetch(context.Background(), []string{"Investasi untuk pemula", "saham"}, NewDateWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got := make(map[string]float64)
	for _, p := range points {
		if p.Platform != RSSPlatform || p.Source != "rss-trending" || p.Confidence != 0.5 {
			t.Errorf("point identity = %s/%s/%v", p.Platform, p.Source, p.Confidence)
		}
		if !p.Date.Equal(time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Date = %v, want 2026-03-30", p.Date)
		}
		got[p.Keyword] = *p.ContentDensity
	}

	// Both feeds serve the same document, so every in-window mention counts twice.
	if got["investasi untuk pemula"] != 4 {
		t.Errorf("investasi untuk pemula mentions = %v, want 4", got["investasi untuk pemula"])
	}
	if got["saham"] != 2 {
		t.Errorf("saham mentions = %v, want 2", got["saham"])
	}
}

func TestRSSAdapter_AllFeedsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := NewRSSAdapter(config.RSSSourceConfig{Enabled: true, Feeds: []string{server.URL}}, time.Second, nil)
	_, err := a.Fetch(context.Background(), []string{"saham"}, NewDateWindow(time.Now(), 7))
	if err == nil {
		t.Fatal("expected error when every feed fails")
	}
	if KindOf(err) == "" {
		t.Errorf("err = %T, want *SourceError", err)
	}
}

func TestMentionText(t *testing.T) {
	tests := map[string]string{
		"<b>Investasi</b>, untuk pemula!": "investasi untuk pemula",
		"AI-tools 2026":                   "ai tools 2026",
		"":                                "",
	}
	for in, want := range tests {
		if got := mentionText(in); got != want {
			t.Errorf("mentionText(%q) = %q, want %q", in, got, want)
		}
	}
}
