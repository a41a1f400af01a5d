// Package utils provides logging and time helpers shared by the CLI and collectors.
package utils

import (
	"sync"
	"time"
)

// Clock provides an interface for time operations, making code testable.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then returns the current time on a channel.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock instance.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse and then returns the current time on a channel.
func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// MockClock implements Clock for testing purposes.
// After advances the clock immediately and records the requested wait.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	waits       []time.Duration
	blockAfter  bool
}

// NewMockClock creates a new MockClock instance with the given start time.
func NewMockClock(startTime time.Time) *MockClock {
	return &MockClock{currentTime: startTime}
}

// Now returns the mock current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// After advances the clock by d and returns a channel that already holds the new time.
// When Block has been called the returned channel never fires.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	if c.blockAfter {
		return ch
	}
	c.currentTime = c.currentTime.Add(d)
	ch <- c.currentTime
	return ch
}

// Block makes subsequent After calls never fire, simulating a long wait.
func (c *MockClock) Block() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockAfter = true
}

// Waits returns the durations requested through After.
func (c *MockClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

// Advance advances the mock clock by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}
