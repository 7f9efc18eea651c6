package serial

import (
	"errors"
	"fmt"
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Pipes and mocks (for testing and the virtual slave)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Parity of a serial frame
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// StandardBauds are the rates a slave UART can be configured for
var StandardBauds = []int{2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400}

var (
	ErrBaud     = errors.New("unsupported baud rate")
	ErrDataBits = errors.New("data bits must be 5-8")
	ErrStopBits = errors.New("stop bits must be 1 or 2")
	ErrParity   = errors.New("parity must be N, O or E")
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate, one of StandardBauds
	Baud int

	// Frame format, 8N1 by default
	DataBits int
	Parity   Parity
	StopBits int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the LED slave's link settings: 9600 8N1
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		ReadTimeout: 100, // 100ms read timeout
	}
}

// IsStandardBaud reports whether baud is in StandardBauds
func IsStandardBaud(baud int) bool {
	for _, b := range StandardBauds {
		if b == baud {
			return true
		}
	}
	return false
}

// Validate checks the frame settings
func (c *Config) Validate() error {
	if !IsStandardBaud(c.Baud) {
		return fmt.Errorf("%w: %d", ErrBaud, c.Baud)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: %d", ErrDataBits, c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: %d", ErrStopBits, c.StopBits)
	}
	switch c.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("%w: %q", ErrParity, byte(c.Parity))
	}
	return nil
}

// String formats the frame as e.g. "9600 8N1"
func (c *Config) String() string {
	return fmt.Sprintf("%d %d%c%d", c.Baud, c.DataBits, byte(c.Parity), c.StopBits)
}
