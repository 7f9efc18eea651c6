//go:build rp2040 || rp2350

package main

import (
	"errors"

	"uartslave/config"
	"uartslave/core"
	"uartslave/targets/pio"
)

// OutputBackend selects how LED outputs are driven
type OutputBackend uint8

const (
	BackendGPIO OutputBackend = iota // SIO pin writes
	BackendPIO                       // One PIO state machine owns the LED window
)

// ModeConfig determines which output backend to run
type ModeConfig struct {
	Backend OutputBackend

	// PIO window, used with BackendPIO
	PIOBase  uint8
	PIOCount uint8
}

var errBadPin = errors.New("pin out of range")

// GetMode derives the output backend from the slave config. The PIO
// window is the smallest pin block holding every output.
func GetMode(cfg *core.Config) ModeConfig {
	mode := ModeConfig{Backend: BackendGPIO}
	if cfg.Backend == config.BackendPIO {
		mode.Backend = BackendPIO
		mode.PIOBase, mode.PIOCount = config.OutputWindow(cfg.Outputs)
	}
	return mode
}

// NewOutputDriver builds the GPIO driver for mode
func NewOutputDriver(mode ModeConfig) (core.GPIODriver, error) {
	switch mode.Backend {
	case BackendPIO:
		bank, err := pio.NewOutputBank(mode.PIOBase, mode.PIOCount)
		if err != nil {
			return nil, err
		}
		return bank, nil
	default:
		return NewRPGPIODriver(), nil
	}
}
