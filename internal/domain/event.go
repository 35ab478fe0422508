package domain

import "time"

// EventLevel classifies progress notifications.
type EventLevel string

const (
	LevelInfo      EventLevel = "info"
	LevelSuccess   EventLevel = "success"
	LevelWarning   EventLevel = "warning"
	LevelError     EventLevel = "error"
	LevelProgress  EventLevel = "progress"
	LevelCancelled EventLevel = "cancelled"
)

// Event is a human-readable progress notification emitted during a run.
type Event struct {
	Time    time.Time
	Level   EventLevel
	Tag     string
	Message string
}

// String renders the event as "[TAG] message".
func (e Event) String() string {
	if e.Tag == "" {
		return e.Message
	}
	return "[" + e.Tag + "] " + e.Message
}
