// Package progress provides progress reporting for long-running sweeps.
package progress

import "sync"

// Callback is a function that reports progress during long operations.
// Parameters:
//   - current: Number of items completed
//   - total: Total number of items
//   - message: Human-readable description of the current step
//
// A nil Callback is valid and will be safely ignored by the Call() helper.
type Callback func(current, total int, message string)

// Call safely invokes the callback if non-nil.
func Call(cb Callback, current, total int, message string) {
	if cb != nil {
		cb(current, total, message)
	}
}

// Counter serializes progress reports from concurrent workers. Each Step
// increments the completed count and invokes the callback under a lock, so
// callbacks observe strictly increasing counts and never run concurrently.
type Counter struct {
	mu      sync.Mutex
	cb      Callback
	total   int
	current int
}

// NewCounter creates a counter reporting to cb. cb may be nil.
func NewCounter(cb Callback, total int) *Counter {
	return &Counter{cb: cb, total: total}
}

// Step records one completed item.
func (c *Counter) Step(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current++
	Call(c.cb, c.current, c.total, message)
}

// Completed returns the number of recorded items.
func (c *Counter) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
