// Package observer delivers pipeline progress events to terminals, logs and channels.
package observer

import (
	"fmt"
	"io"
	"sync"

	"gamescorer/internal/domain"
	"gamescorer/internal/logging"
	"gamescorer/internal/ports"
)

const ansiReset = "\033[0m"

var levelColors = map[domain.EventLevel]string{
	domain.LevelSuccess:   "\033[32m",
	domain.LevelWarning:   "\033[33m",
	domain.LevelError:     "\033[31m",
	domain.LevelProgress:  "\033[36m",
	domain.LevelCancelled: "\033[38;5;208m",
}

// Console prints one "[TAG] message" line per event.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

var _ ports.Observer = (*Console)(nil)

// NewConsole writes to w, colouring lines when w is a terminal.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, color: logging.IsTerminal(w)}
}

// NewPlainConsole writes to w without colour codes.
func NewPlainConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify writes the event. Write errors are dropped.
func (c *Console) Notify(event domain.Event) {
	line := event.String()
	if c.color {
		if code, ok := levelColors[event.Level]; ok {
			line = code + line + ansiReset
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, line)
}
