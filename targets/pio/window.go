package pio

import (
	"errors"

	"uartslave/core"
)

var (
	// ErrPinOutsideWindow is returned for a pin the state machine cannot drive
	ErrPinOutsideWindow = errors.New("pin outside PIO output window")
	// ErrWindowSize is returned for a window wider than 32 pins or empty
	ErrWindowSize = errors.New("PIO output window must be 1-32 pins")
)

// Window is the shadow state of a consecutive block of pins written by a
// single "out pins, N" instruction. Pins not enabled as outputs are written
// but stay inputs.
type Window struct {
	base  uint8
	count uint8
	value uint32 // Pin levels, bit 0 = base
	dirs  uint32 // Output enables
}

// NewWindow creates a window of count pins starting at base
func NewWindow(base, count uint8) (*Window, error) {
	if count == 0 || count > 32 {
		return nil, ErrWindowSize
	}
	return &Window{base: base, count: count}, nil
}

// Base returns the first pin of the window
func (w *Window) Base() uint8 {
	return w.base
}

// Count returns the window width
func (w *Window) Count() uint8 {
	return w.count
}

func (w *Window) bit(pin core.GPIOPin) (uint32, error) {
	if pin < core.GPIOPin(w.base) || pin >= core.GPIOPin(w.base)+core.GPIOPin(w.count) {
		return 0, ErrPinOutsideWindow
	}
	return 1 << (uint32(pin) - uint32(w.base)), nil
}

// Enable marks pin as an output
func (w *Window) Enable(pin core.GPIOPin) error {
	bit, err := w.bit(pin)
	if err != nil {
		return err
	}
	w.dirs |= bit
	return nil
}

// Enabled reports whether pin was enabled
func (w *Window) Enabled(pin core.GPIOPin) bool {
	bit, err := w.bit(pin)
	return err == nil && w.dirs&bit != 0
}

// Set updates the level of pin and returns the word to push to the FIFO
func (w *Window) Set(pin core.GPIOPin, value bool) (uint32, error) {
	bit, err := w.bit(pin)
	if err != nil {
		return w.value, err
	}
	if value {
		w.value |= bit
	} else {
		w.value &^= bit
	}
	return w.value, nil
}

// Get returns the last level written to pin
func (w *Window) Get(pin core.GPIOPin) (bool, error) {
	bit, err := w.bit(pin)
	if err != nil {
		return false, err
	}
	return w.value&bit != 0, nil
}

// Value returns the current output word
func (w *Window) Value() uint32 {
	return w.value
}
