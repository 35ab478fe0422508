package observer

import (
	"context"
	"log/slog"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

// Log forwards events to a structured logger.
type Log struct {
	logger *slog.Logger
}

var _ ports.Observer = (*Log)(nil)

// NewLog wraps logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs the event at a level derived from its kind.
func (l *Log) Notify(event domain.Event) {
	if l.logger == nil {
		return
	}
	l.logger.Log(context.Background(), slogLevel(event.Level), event.Message,
		"tag", event.Tag,
		"event_level", string(event.Level),
	)
}

func slogLevel(level domain.EventLevel) slog.Level {
	switch level {
	case domain.LevelError:
		return slog.LevelError
	case domain.LevelWarning, domain.LevelCancelled:
		return slog.LevelWarn
	case domain.LevelProgress, domain.LevelSuccess:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
