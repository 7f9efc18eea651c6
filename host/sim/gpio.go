package sim

import (
	"sync"

	"uartslave/core"
)

// PinChange is called after every pin write
type PinChange func(pin core.GPIOPin, value bool)

// MemoryGPIO is a core.GPIODriver that keeps pin levels in memory
type MemoryGPIO struct {
	mu         sync.Mutex
	pins       map[core.GPIOPin]bool
	configured map[core.GPIOPin]bool
	writes     int
	onChange   PinChange
}

// NewMemoryGPIO creates a driver with every pin low and unconfigured
func NewMemoryGPIO() *MemoryGPIO {
	return &MemoryGPIO{
		pins:       make(map[core.GPIOPin]bool),
		configured: make(map[core.GPIOPin]bool),
	}
}

// OnChange sets a hook run after every write
func (g *MemoryGPIO) OnChange(fn PinChange) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// ConfigureOutput implements core.GPIODriver
func (g *MemoryGPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.configured[pin] = true
	return nil
}

// SetPin implements core.GPIODriver
func (g *MemoryGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	if !g.configured[pin] {
		g.configured[pin] = true
	}
	g.pins[pin] = value
	g.writes++
	fn := g.onChange
	g.mu.Unlock()

	if fn != nil {
		fn(pin, value)
	}
	return nil
}

// GetPin implements core.GPIODriver
func (g *MemoryGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pins[pin], nil
}

// Pin returns the level of pin
func (g *MemoryGPIO) Pin(pin core.GPIOPin) bool {
	v, _ := g.GetPin(pin)
	return v
}

// Port packs pins 0-7 into one byte, bit n = pin n
func (g *MemoryGPIO) Port() uint8 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var port uint8
	for pin := core.GPIOPin(0); pin < 8; pin++ {
		if g.pins[pin] {
			port |= 1 << pin
		}
	}
	return port
}

// Writes returns the number of pin writes so far
func (g *MemoryGPIO) Writes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes
}
