package progress

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pathwise/trendintel/internal/model"
)

func TestMulti(t *testing.T) {
	var got []model.Stage
	rec := ObserverFunc(func(e Event) { got = append(got, e.Stage) })

	Multi{rec, nil, Discard, rec}.Observe(Event{Stage: model.StageScoring})

	if len(got) != 2 {
		t.Errorf("got %d calls, want 2", len(got))
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewLogObserver(logger).Observe(Event{PathID: "content_monetization", Stage: model.StageFailed, Message: "no data"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "path_id=content_monetization") {
		t.Errorf("unexpected log line: %s", out)
	}
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	if err := hub.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hub.Stop(ctx)
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestHub_ReplaysLatest(t *testing.T) {
	hub, url := startHub(t)

	hub.Observe(Event{PathID: "p1", Stage: model.StageFetching, Percent: 10})
	hub.Observe(Event{PathID: "p1", Stage: model.StageScoring, Percent: 50})

	conn := dial(t, url+"?pathId=p1")

	var e Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.PathID != "p1" {
		t.Errorf("path = %q, want p1", e.PathID)
	}

	latest, ok := hub.Latest("p1")
	if !ok || latest.Stage != model.StageScoring {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
}

func TestHub_FiltersByPath(t *testing.T) {
	hub, url := startHub(t)

	hub.Observe(Event{PathID: "other", Stage: model.StageFetching})
	hub.Observe(Event{PathID: "wanted", Stage: model.StageDone, Percent: 100})

	conn := dial(t, url+"?pathId=wanted")

	var e Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.PathID != "wanted" {
		t.Errorf("received event for %q, want only wanted", e.PathID)
	}
}

func TestHub_NotRunning(t *testing.T) {
	hub := NewHub(nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/progress", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
