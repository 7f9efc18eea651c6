package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"uartslave/core"
	"uartslave/protocol"
)

var (
	ErrCapacity       = errors.New("capacity must be at least 1")
	ErrTerminator     = errors.New("terminator must not be command text")
	ErrDefaultOutput  = errors.New("default output is not a configured output")
	ErrDuplicatePin   = errors.New("two outputs share one pin")
	ErrNoOutputs      = errors.New("no outputs configured")
	ErrUnknownCommand = errors.New("action names an unconfigured output")
	ErrBackend        = errors.New("backend must be \"gpio\" or \"pio\"")
	ErrOutputWindow   = errors.New("pio backend needs all outputs within 32 consecutive pins")
)

// Output backends
const (
	BackendGPIO = "gpio" // SIO pin writes
	BackendPIO  = "pio"  // One PIO state machine drives the output window
)

// maxWindow is the widest pin window one "out pins" instruction can write
const maxWindow = 32

// LoadConfig parses a JSON configuration and returns a validated slave Config
func LoadConfig(jsonData []byte) (*core.Config, error) {
	// device_id 0 is a valid address, so its default is preset rather
	// than applied after decoding
	config := core.Config{DeviceID: 1}

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *core.Config) {
	if config.Capacity == 0 {
		config.Capacity = protocol.DefaultLineCapacity
	}
	if config.Terminator == 0 {
		config.Terminator = protocol.DefaultTerminator
	}
	if config.DefaultOutput == "" {
		config.DefaultOutput = core.LEDWhite
	}
	if config.Backend == "" {
		config.Backend = BackendGPIO
	}
	if len(config.Outputs) == 0 {
		config.Outputs = make(map[string]core.GPIOPin, len(core.DefaultOutputPins))
		for name, pin := range core.DefaultOutputPins {
			config.Outputs[name] = pin
		}
	}
}

// Validate checks a configuration for values the slave cannot run with
func Validate(config *core.Config) error {
	if config.Capacity < 1 {
		return ErrCapacity
	}
	if !protocol.IsValidTerminator(config.Terminator) {
		return fmt.Errorf("%w: %q", ErrTerminator, config.Terminator)
	}
	if len(config.Outputs) == 0 {
		return ErrNoOutputs
	}
	if _, ok := config.Outputs[config.DefaultOutput]; !ok {
		return fmt.Errorf("%w: %s", ErrDefaultOutput, config.DefaultOutput)
	}

	pins := make(map[core.GPIOPin]string, len(config.Outputs))
	for name, pin := range config.Outputs {
		if other, dup := pins[pin]; dup {
			return fmt.Errorf("%w: %s and %s on pin %d", ErrDuplicatePin, other, name, pin)
		}
		pins[pin] = name
	}

	for _, cmd := range core.NewLEDRegistry().Commands() {
		if _, ok := config.Outputs[cmd.Output]; !ok {
			return fmt.Errorf("%w: %s needs %s", ErrUnknownCommand, cmd.Name, cmd.Output)
		}
	}

	switch config.Backend {
	case "", BackendGPIO:
	case BackendPIO:
		if _, count := OutputWindow(config.Outputs); count == 0 {
			return ErrOutputWindow
		}
	default:
		return fmt.Errorf("%w: %q", ErrBackend, config.Backend)
	}
	return nil
}

// OutputWindow returns the smallest block of consecutive pins holding every
// output. count is 0 when the outputs span more than 32 pins or use a pin
// the PIO cannot address.
func OutputWindow(outputs map[string]core.GPIOPin) (base, count uint8) {
	if len(outputs) == 0 {
		return 0, 0
	}
	lo, hi := core.GPIOPin(^uint32(0)), core.GPIOPin(0)
	for _, pin := range outputs {
		if pin < lo {
			lo = pin
		}
		if pin > hi {
			hi = pin
		}
	}
	if hi-lo+1 > maxWindow || hi > 255 {
		return 0, 0
	}
	return uint8(lo), uint8(hi - lo + 1)
}

// DefaultConfig returns the configuration of the reference LED board
func DefaultConfig() *core.Config {
	config := &core.Config{
		DeviceID: 1,
		Dispatch: core.DispatchDeferred,
	}
	applyDefaults(config)
	return config
}
