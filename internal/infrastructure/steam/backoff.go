package steam

import (
	"math/rand/v2"
	"time"
)

// Backoff tracks the retry delay shared by every fetch issued through one Client.
// The delay ratchets upward across consecutive retries and falls back to its
// initial value after any successful fetch. It is not safe for concurrent use.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	jitter  func() time.Duration
}

// NewBackoff builds a backoff whose jitter is drawn uniformly from [jitterMin, jitterMax).
func NewBackoff(initial, max, jitterMin, jitterMax time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
		jitter:  uniformJitter(jitterMin, jitterMax),
	}
}

// Next returns the delay before retry number attempt (zero-based) and stores it as
// the new current delay. Delays above max are clamped to max plus jitter.
func (b *Backoff) Next(attempt int) time.Duration {
	jitter := b.jitter()
	delay := 2*time.Duration(attempt)*b.current + jitter
	if delay <= b.max {
		b.current = delay
	} else {
		b.current = b.max + jitter
	}
	return b.current
}

// Reset restores the initial delay.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current exposes the delay the next computation starts from.
func (b *Backoff) Current() time.Duration {
	return b.current
}

func uniformJitter(min, max time.Duration) func() time.Duration {
	if max <= min {
		return func() time.Duration { return min }
	}
	return func() time.Duration { return min + rand.N(max-min) }
}
