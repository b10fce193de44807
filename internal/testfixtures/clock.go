package testfixtures

import (
	"sync"
	"time"
)

// Clock is a controllable time source for services under test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start, or to ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// NextMonth moves the clock to the first day of the following month at the
// same time of day in loc, as the monthly export schedule does.
func (c *Clock) NextMonth(loc *time.Location) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	local := c.current.In(loc)
	c.current = time.Date(local.Year(), local.Month()+1, 1, local.Hour(), local.Minute(), 0, 0, loc)
	return c.current
}
