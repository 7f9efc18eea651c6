package core

import (
	"errors"

	"uartslave/protocol"
)

// DispatchMode selects where completed lines are interpreted
type DispatchMode uint8

const (
	// DispatchDeferred posts a completion token from the receiver context;
	// the main context interprets the line via Poll or Run.
	DispatchDeferred DispatchMode = iota
	// DispatchInline interprets the line inside Receive, before it returns.
	DispatchInline
)

var errBadDispatchMode = errors.New("dispatch mode must be \"inline\" or \"deferred\"")

func (m DispatchMode) String() string {
	switch m {
	case DispatchInline:
		return "inline"
	case DispatchDeferred:
		return "deferred"
	}
	return "unknown"
}

// ParseDispatchMode parses "inline" or "deferred"
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch s {
	case "inline":
		return DispatchInline, nil
	case "deferred", "":
		return DispatchDeferred, nil
	}
	return DispatchDeferred, errBadDispatchMode
}

// MarshalText implements encoding.TextMarshaler
func (m DispatchMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *DispatchMode) UnmarshalText(text []byte) error {
	mode, err := ParseDispatchMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// LineState is the Assembler state
type LineState uint8

const (
	StateCollecting     LineState = iota // Default: appending bytes
	StateLineComplete                    // Terminator seen within capacity
	StateLineOverflowed                  // Terminator seen at or past capacity
)

func (s LineState) String() string {
	switch s {
	case StateCollecting:
		return "COLLECTING"
	case StateLineComplete:
		return "LINE_COMPLETE"
	case StateLineOverflowed:
		return "LINE_OVERFLOWED"
	}
	return "UNKNOWN"
}

// Config holds the slave configuration. Loaded and defaulted by package config.
type Config struct {
	Capacity      int                `json:"capacity"`       // Max line length before overflow
	Terminator    byte               `json:"terminator"`     // Byte value ending a line
	DeviceID      uint8              `json:"device_id"`      // N in s<N>_ACTION
	Dispatch      DispatchMode       `json:"dispatch"`       // "inline" or "deferred"
	DefaultOutput string             `json:"default_output"` // Toggled by unrecognized lines
	Outputs       map[string]GPIOPin `json:"outputs"`        // Output line name -> pin
	IgnoreForeign bool               `json:"ignore_foreign"` // Drop lines addressed to other devices
	Debug         bool               `json:"debug"`          // Enable debug output
	Backend       string             `json:"backend"`        // Firmware output driver: "gpio" or "pio"
}

// LineCapacity returns the configured capacity or the protocol default
func (c *Config) LineCapacity() int {
	if c == nil || c.Capacity < 1 {
		return protocol.DefaultLineCapacity
	}
	return c.Capacity
}

// LineTerminator returns the configured terminator or the protocol default
func (c *Config) LineTerminator() byte {
	if c == nil || c.Terminator == 0 {
		return protocol.DefaultTerminator
	}
	return c.Terminator
}

// LineHandler receives completed lines. The line is a read-only view that
// is only valid for the duration of the call.
type LineHandler interface {
	HandleLine(line []byte)
}

// LineHandlerFunc adapts a function to LineHandler
type LineHandlerFunc func(line []byte)

// HandleLine implements LineHandler
func (f LineHandlerFunc) HandleLine(line []byte) {
	f(line)
}

// DispatchObserver sees every dispatch step: completed lines just before
// they reach the LineHandler, and overflowed lines as they are discarded.
type DispatchObserver func(state LineState, line []byte)

// Stats counts Assembler activity
type Stats struct {
	BytesReceived   uint32 // Every byte handed to Receive
	BytesDropped    uint32 // Non-terminator bytes past capacity
	BusyDropped     uint32 // Bytes arriving while a line was pending
	LinesDispatched uint32 // Lines handed to the LineHandler
	LinesDiscarded  uint32 // Lines discarded on overflow
}

// Snapshot is a consistent view of the Assembler state
type Snapshot struct {
	State    LineState
	Line     string
	Ready    bool
	Overflow bool
}
