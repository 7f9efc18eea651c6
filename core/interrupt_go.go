//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// critical stands in for the interrupt mask when the receiver runs on its
// own goroutine (host tools, tests). Every Assembler owns one, so slaves
// sharing a process never serialize on each other.
type critical struct {
	mu sync.Mutex
}

// disable enters the critical section
func (c *critical) disable() State {
	c.mu.Lock()
	return 0
}

// restore leaves the critical section
func (c *critical) restore(state State) {
	c.mu.Unlock()
}
