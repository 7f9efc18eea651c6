//go:build tinygo

package core

import "runtime/interrupt"

// critical masks interrupts. There is one CPU mask, so the struct is empty.
type critical struct{}

// disable disables interrupts and returns the previous state
func (c *critical) disable() interrupt.State {
	return interrupt.Disable()
}

// restore restores the interrupt state
func (c *critical) restore(state interrupt.State) {
	interrupt.Restore(state)
}
