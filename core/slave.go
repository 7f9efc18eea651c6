package core

import (
	"context"
	"errors"
)

// Slave wires the line assembler, the interpreter and the output bank
// for one device.
type Slave struct {
	config      *Config
	assembler   *Assembler
	interpreter *Interpreter
	registry    *CommandRegistry
	outputs     *Outputs
}

// NewSlave configures every output low and returns a slave ready to
// receive bytes
func NewSlave(cfg *Config, driver GPIODriver) (*Slave, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if driver == nil {
		return nil, errors.New("GPIO driver not configured")
	}

	outputs := NewOutputs(driver)
	if err := outputs.ConfigureAll(cfg.Outputs); err != nil {
		return nil, err
	}

	registry := NewLEDRegistry()
	interp := NewInterpreter(cfg, registry, outputs)

	SetDebugEnabled(cfg.Debug)

	return &Slave{
		config:      cfg,
		assembler:   NewAssembler(cfg, interp),
		interpreter: interp,
		registry:    registry,
		outputs:     outputs,
	}, nil
}

// Receive feeds one byte to the assembler (receiver context)
func (s *Slave) Receive(b byte) {
	s.assembler.Receive(b)
}

// Busy reports whether a completed line is waiting for Poll. A receiver
// that can leave bytes in its own buffer stops reading while Busy.
func (s *Slave) Busy() bool {
	return s.assembler.Busy()
}

// Poll runs a pending deferred dispatch (main context)
func (s *Slave) Poll() bool {
	return s.assembler.Poll()
}

// Run polls until ctx is done
func (s *Slave) Run(ctx context.Context) error {
	return s.assembler.Run(ctx)
}

// Shutdown discards any partial line and drives all outputs low
func (s *Slave) Shutdown() {
	s.assembler.Reset()
	s.outputs.ShutdownAll()
}

// Config returns the configuration the slave was built with
func (s *Slave) Config() *Config {
	return s.config
}

// Assembler returns the line assembler
func (s *Slave) Assembler() *Assembler {
	return s.assembler
}

// Interpreter returns the command interpreter
func (s *Slave) Interpreter() *Interpreter {
	return s.interpreter
}

// Registry returns the action registry
func (s *Slave) Registry() *CommandRegistry {
	return s.registry
}

// Outputs returns the output bank
func (s *Slave) Outputs() *Outputs {
	return s.outputs
}
