package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/pathwise/trendintel/internal/model"
)

// Event is one progress update of a pipeline run.
type Event struct {
	PathID  string      `json:"pathId"`
	Stage   model.Stage `json:"stage"`
	Message string      `json:"message"`
	Percent int         `json:"percent"`
	Time    time.Time   `json:"time"`
}

// Observer receives progress events. Observe must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Multi fans an event out to every observer in order.
type Multi []Observer

func (m Multi) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Discard drops every event.
var Discard Observer = ObserverFunc(func(Event) {})

// LogObserver writes events to a logger. Failures log at warn.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(e Event) {
	level := slog.LevelInfo
	if e.Stage == model.StageFailed {
		level = slog.LevelWarn
	}
	o.logger.Log(context.Background(), level, "pipeline progress",
		"path_id", e.PathID,
		"stage", e.Stage,
		"percent", e.Percent,
		"message", e.Message,
	)
}
