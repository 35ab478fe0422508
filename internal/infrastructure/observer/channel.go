package observer

import (
	"sync"
	"sync/atomic"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

// Channel delivers events into a buffered channel. Notify never blocks: events
// that do not fit are dropped and counted. Delivered events keep emission order.
type Channel struct {
	mu      sync.RWMutex
	events  chan domain.Event
	closed  bool
	dropped atomic.Int64
}

var _ ports.Observer = (*Channel)(nil)

// NewChannel creates an observer with the given buffer size (minimum 1).
func NewChannel(buffer int) *Channel {
	return &Channel{events: make(chan domain.Event, max(buffer, 1))}
}

// Events exposes the receive side. It is closed by Close.
func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

// Notify enqueues event or drops it when the buffer is full or the observer is closed.
func (c *Channel) Notify(event domain.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many events could not be delivered.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops delivery and closes the channel. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

// Pump forwards delivered events to next until the channel is closed.
func (c *Channel) Pump(next ports.Observer) {
	for event := range c.events {
		next.Notify(event)
	}
}
