//go:build rp2040 || rp2350

package main

import (
	"image/color"
	"machine"
	"sync/atomic"

	"tinygo.org/x/drivers/ws2812"

	"uartslave/core"
)

// On-board WS2812 (RP2040-Zero, Pico-compatible boards with a status pixel)
const statusPixelPin = machine.GPIO16

const (
	heartbeatPeriodUS = 500000
	dispatchFlashUS   = 50000
	overflowFlashUS   = 250000
)

var (
	colorOff      = color.RGBA{}
	colorIdle     = color.RGBA{G: 8}
	colorDispatch = color.RGBA{B: 40}
	colorOverflow = color.RGBA{R: 60}
	colorFault    = color.RGBA{R: 60, G: 10}
)

// StatusPixel shows slave activity on a single WS2812.
// Observe only records the event; Update does the slow pixel write from
// the main loop.
type StatusPixel struct {
	dev ws2812.Device

	pending uint32 // atomic: last observed LineState + 1, 0 when none

	flashUntil uint64
	flash      color.RGBA
	current    color.RGBA
	fault      bool
}

// NewStatusPixel configures pin and returns a dark status pixel
func NewStatusPixel(pin machine.Pin) *StatusPixel {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s := &StatusPixel{dev: ws2812.New(pin)}
	s.dev.WriteColors([]color.RGBA{colorOff})
	return s
}

// Observe is a core.DispatchObserver
func (s *StatusPixel) Observe(state core.LineState, line []byte) {
	atomic.StoreUint32(&s.pending, uint32(state)+1)
}

// Fault latches the pixel to the fault color
func (s *StatusPixel) Fault() {
	s.fault = true
	s.write(colorFault)
}

// Update advances the pixel; now is the hardware uptime in microseconds
func (s *StatusPixel) Update(now uint64) {
	if s.fault {
		return
	}

	if p := atomic.SwapUint32(&s.pending, 0); p != 0 {
		switch core.LineState(p - 1) {
		case core.StateLineComplete:
			s.flash, s.flashUntil = colorDispatch, now+dispatchFlashUS
		case core.StateLineOverflowed:
			s.flash, s.flashUntil = colorOverflow, now+overflowFlashUS
		}
	}

	c := colorOff
	switch {
	case now < s.flashUntil:
		c = s.flash
	case (now/heartbeatPeriodUS)%2 == 0:
		c = colorIdle
	}
	s.write(c)
}

func (s *StatusPixel) write(c color.RGBA) {
	if c == s.current {
		return
	}
	s.current = c
	s.dev.WriteColors([]color.RGBA{c})
}
