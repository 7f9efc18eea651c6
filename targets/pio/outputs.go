//go:build rp2040 || rp2350

package pio

// PIO output backend using tinygo-org/pio.
// One state machine owns a window of consecutive pins; every pin change
// pushes the whole window word, so the LED bank updates in a single cycle.

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"uartslave/core"
)

var errNoStateMachine = errors.New("no free PIO state machine")

// buildOutputProgram creates the output PIO program using AssemblerV0
func buildOutputProgram(count uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),              // 0: pull block
		asm.Out(rp2pio.OutDestPins, count).Encode(), // 1: out pins, count
		// .wrap
	}
}

// OutputBank implements core.GPIODriver on one PIO state machine
type OutputBank struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	window *Window
	offset uint8
	pioNum uint8
	smNum  uint8
}

// NewOutputBank claims a free state machine and starts the output program
// for count pins starting at base. All pins start low and as inputs until
// ConfigureOutput enables them.
func NewOutputBank(base, count uint8) (*OutputBank, error) {
	window, err := NewWindow(base, count)
	if err != nil {
		return nil, err
	}

	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, errNoStateMachine
	}

	pioHW := rp2pio.PIO0
	if pioNum == 1 {
		pioHW = rp2pio.PIO1
	}

	b := &OutputBank{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		window: window,
		pioNum: pioNum,
		smNum:  smNum,
	}
	if err := b.start(); err != nil {
		releasePIO(pioNum, smNum)
		return nil, err
	}
	return b, nil
}

func (b *OutputBank) start() error {
	// CRITICAL: Claim the state machine first!
	if !b.sm.TryClaim() {
		return errNoStateMachine
	}

	program := buildOutputProgram(b.window.Count())
	offset, err := b.pio.AddProgram(program, -1)
	if err != nil {
		return err
	}
	b.offset = offset

	base := machine.Pin(b.window.Base())

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(base, b.window.Count())

	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	b.sm.Init(offset, cfg)

	// Drive the whole window low before any pin becomes an output
	b.sm.SetPinsConsecutive(base, b.window.Count(), false)
	b.sm.SetEnabled(true)
	b.push(b.window.Value())

	return nil
}

// ConfigureOutput hands pin to the PIO and enables its output driver
func (b *OutputBank) ConfigureOutput(pin core.GPIOPin) error {
	if err := b.window.Enable(pin); err != nil {
		return err
	}

	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	// Pin directions must be set after Init
	b.sm.SetPindirsConsecutive(p, 1, true)
	return nil
}

// SetPin updates the shadow word and pushes it to the state machine
func (b *OutputBank) SetPin(pin core.GPIOPin, value bool) error {
	word, err := b.window.Set(pin, value)
	if err != nil {
		return err
	}
	b.push(word)
	return nil
}

// GetPin returns the last level written to pin
func (b *OutputBank) GetPin(pin core.GPIOPin) (bool, error) {
	return b.window.Get(pin)
}

func (b *OutputBank) push(word uint32) {
	// Wait for FIFO space and write; the program drains one word per pull
	for b.sm.IsTxFIFOFull() {
		// Busy wait - should be very brief
	}
	b.sm.TxPut(word)
}

// Stop disables the state machine and releases it
func (b *OutputBank) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Unclaim()
	releasePIO(b.pioNum, b.smNum)
}
