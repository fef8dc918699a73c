package channel

import "time"

// backoff tracks the reconnect delay schedule. The delay starts at base,
// doubles on every failed attempt and is capped at max. Reset on every
// successful connection.
type backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
	next    time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max < base {
		max = base
	}
	return &backoff{base: base, max: max, next: base}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule.
func (b *backoff) Next() time.Duration {
	delay := b.next
	b.attempt++
	doubled := b.next * 2
	if doubled > b.max {
		doubled = b.max
	}
	b.next = doubled
	return delay
}

// Attempt returns the number of failed attempts since the last reset.
func (b *backoff) Attempt() int {
	return b.attempt
}

// Reset restores the schedule to its initial state.
func (b *backoff) Reset() {
	b.attempt = 0
	b.next = b.base
}
