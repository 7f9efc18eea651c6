package core

import (
	"sync/atomic"

	"uartslave/protocol"
)

// Output line names of the LED slave
const (
	LEDYellow = "LED_YELLOW"
	LEDRed    = "LED_RED"
	LEDGreen  = "LED_GREEN"
	LEDBlue   = "LED_BLUE"
	LEDWhite  = "LED_WHITE"
)

// DefaultOutputPins is the LED wiring of the reference board (PORTB bits)
var DefaultOutputPins = map[string]GPIOPin{
	LEDWhite:  0,
	LEDYellow: 1,
	LEDRed:    3,
	LEDGreen:  5,
	LEDBlue:   7,
}

// InitLEDCommands registers the recognized LED actions.
// Registration order is lookup-table order in the dictionary.
func InitLEDCommands(r *CommandRegistry) {
	for _, led := range []string{LEDYellow, LEDRed, LEDGreen, LEDBlue} {
		r.Register(led+"_ON", led, OpSet)
		r.Register(led+"_OFF", led, OpClear)
	}
}

// NewLEDRegistry returns a registry holding the LED action set
func NewLEDRegistry() *CommandRegistry {
	r := NewCommandRegistry()
	InitLEDCommands(r)
	return r
}

// Result tells which branch the interpreter took for a line
type Result uint8

const (
	ResultExecuted Result = iota // Recognized action applied
	ResultDefault                // Default output toggled
	ResultIgnored                // Addressed to another device, dropped
)

func (r Result) String() string {
	switch r {
	case ResultExecuted:
		return "executed"
	case ResultDefault:
		return "default"
	case ResultIgnored:
		return "ignored"
	}
	return "unknown"
}

// ParseCommand splits s<id>_<ACTION> into the device id and the action text.
// The action is a view into line.
func ParseCommand(line []byte) (device uint8, action []byte, ok bool) {
	if len(line) < 3 || line[0] != protocol.DevicePrefix {
		return 0, nil, false
	}

	sep := -1
	for i := 1; i < len(line); i++ {
		if line[i] == protocol.DeviceSeparator {
			sep = i
			break
		}
	}
	if sep < 0 || sep == len(line)-1 {
		return 0, nil, false
	}

	device, ok = parseUint8(line[1:sep])
	if !ok {
		return 0, nil, false
	}
	return device, line[sep+1:], true
}

// InterpreterStats counts interpreter outcomes
type InterpreterStats struct {
	Executed uint32
	Defaults uint32
	Ignored  uint32
	Errors   uint32
}

// Interpreter maps command lines to output effects. Lookup is a table:
// the first registered match wins, anything else fires the default action.
type Interpreter struct {
	deviceID      uint8
	registry      *CommandRegistry
	outputs       *Outputs
	defaultOutput string
	ignoreForeign bool

	executed uint32 // atomic
	defaults uint32 // atomic
	ignored  uint32 // atomic
	errors   uint32 // atomic
}

// NewInterpreter creates an interpreter for cfg.DeviceID
func NewInterpreter(cfg *Config, registry *CommandRegistry, outputs *Outputs) *Interpreter {
	interp := &Interpreter{
		deviceID:      1,
		registry:      registry,
		outputs:       outputs,
		defaultOutput: LEDWhite,
	}
	if cfg != nil {
		interp.deviceID = cfg.DeviceID
		interp.ignoreForeign = cfg.IgnoreForeign
		if cfg.DefaultOutput != "" {
			interp.defaultOutput = cfg.DefaultOutput
		}
	}
	return interp
}

// HandleLine implements LineHandler
func (interp *Interpreter) HandleLine(line []byte) {
	if _, err := interp.Execute(line); err != nil {
		atomic.AddUint32(&interp.errors, 1)
		DebugAsync("[CMD] " + err.Error())
	}
}

// Execute interprets one line and applies its effect
func (interp *Interpreter) Execute(line []byte) (Result, error) {
	device, action, ok := ParseCommand(line)
	if ok && device != interp.deviceID && interp.ignoreForeign {
		atomic.AddUint32(&interp.ignored, 1)
		return ResultIgnored, nil
	}

	if ok && device == interp.deviceID {
		if cmd, found := interp.registry.Lookup(action); found {
			atomic.AddUint32(&interp.executed, 1)
			return ResultExecuted, interp.outputs.Apply(cmd.Output, cmd.Op)
		}
	}

	atomic.AddUint32(&interp.defaults, 1)
	RecordEvent(EvtDefault, uint32(len(line)))
	return ResultDefault, interp.outputs.Toggle(interp.defaultOutput)
}

// Stats returns a copy of the interpreter counters
func (interp *Interpreter) Stats() InterpreterStats {
	return InterpreterStats{
		Executed: atomic.LoadUint32(&interp.executed),
		Defaults: atomic.LoadUint32(&interp.defaults),
		Ignored:  atomic.LoadUint32(&interp.ignored),
		Errors:   atomic.LoadUint32(&interp.errors),
	}
}
