// Named output lines (LEDs) driven through the GPIO HAL
package core

import (
	"errors"
	"sort"
	"sync"
)

// OutputOp is the effect an action has on one output line
type OutputOp uint8

const (
	OpSet    OutputOp = iota // Drive high
	OpClear                  // Drive low
	OpToggle                 // Invert current state
)

func (op OutputOp) String() string {
	switch op {
	case OpSet:
		return "set"
	case OpClear:
		return "clear"
	case OpToggle:
		return "toggle"
	}
	return "unknown"
}

var (
	// ErrUnknownOutput is returned for an output name that was never configured
	ErrUnknownOutput = errors.New("unknown output")
	// ErrDuplicatePin is returned when two outputs share one pin
	ErrDuplicatePin = errors.New("pin already assigned to another output")
)

// OutputLine is one configured output
type OutputLine struct {
	Name string
	Pin  GPIOPin
	On   bool // Last state written
}

// Outputs is the bank of named output lines
type Outputs struct {
	mu     sync.Mutex
	driver GPIODriver
	lines  map[string]*OutputLine
	byPin  map[GPIOPin]string
}

// NewOutputs creates an empty output bank over driver
func NewOutputs(driver GPIODriver) *Outputs {
	return &Outputs{
		driver: driver,
		lines:  make(map[string]*OutputLine),
		byPin:  make(map[GPIOPin]string),
	}
}

// Configure sets pin up as an output named name, initially low
func (o *Outputs) Configure(name string, pin GPIOPin) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if owner, exists := o.byPin[pin]; exists && owner != name {
		return ErrDuplicatePin
	}

	if err := o.driver.ConfigureOutput(pin); err != nil {
		return err
	}
	if err := o.driver.SetPin(pin, false); err != nil {
		return err
	}

	if old, exists := o.lines[name]; exists {
		delete(o.byPin, old.Pin)
	}
	o.lines[name] = &OutputLine{Name: name, Pin: pin}
	o.byPin[pin] = name
	return nil
}

// ConfigureAll configures every entry of outputs in pin order
func (o *Outputs) ConfigureAll(outputs map[string]GPIOPin) error {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return outputs[names[i]] < outputs[names[j]]
	})

	for _, name := range names {
		if err := o.Configure(name, outputs[name]); err != nil {
			return errors.New("output " + name + ": " + err.Error())
		}
	}
	return nil
}

// Apply performs op on the named output
func (o *Outputs) Apply(name string, op OutputOp) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	line, exists := o.lines[name]
	if !exists {
		return ErrUnknownOutput
	}

	var state bool
	switch op {
	case OpSet:
		state = true
	case OpClear:
		state = false
	case OpToggle:
		state = !line.On
	}

	if err := o.driver.SetPin(line.Pin, state); err != nil {
		return err
	}
	line.On = state
	return nil
}

// Set drives the named output high
func (o *Outputs) Set(name string) error {
	return o.Apply(name, OpSet)
}

// Clear drives the named output low
func (o *Outputs) Clear(name string) error {
	return o.Apply(name, OpClear)
}

// Toggle inverts the named output
func (o *Outputs) Toggle(name string) error {
	return o.Apply(name, OpToggle)
}

// State returns the last state written to the named output
func (o *Outputs) State(name string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	line, exists := o.lines[name]
	if !exists {
		return false, ErrUnknownOutput
	}
	return line.On, nil
}

// Has reports whether name is configured
func (o *Outputs) Has(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, exists := o.lines[name]
	return exists
}

// Lines returns a copy of every output, ordered by pin
func (o *Outputs) Lines() []OutputLine {
	o.mu.Lock()
	defer o.mu.Unlock()

	lines := make([]OutputLine, 0, len(o.lines))
	for _, line := range o.lines {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Pin < lines[j].Pin
	})
	return lines
}

// ShutdownAll drives every output low
func (o *Outputs) ShutdownAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, line := range o.lines {
		if err := o.driver.SetPin(line.Pin, false); err == nil {
			line.On = false
		}
	}
}
