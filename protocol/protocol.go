// Package protocol implements the serial line protocol spoken by the slave:
// ASCII command lines of the form s<id>_<ACTION>, one byte at a time,
// ended by a terminator byte.
package protocol

// Version represents the firmware version
const Version = "0.1.0"

// Line protocol constants
const (
	DefaultLineCapacity = 20   // Maximum line length before overflow
	DefaultTerminator   = '\r' // Carriage return ends a line
	LineFeed            = '\n' // Ordinary payload on input, sent after CR by SendNewLine

	DevicePrefix    = 's' // First byte of every command line
	DeviceSeparator = '_' // Separates the device id from the action
)

// IsValidTerminator reports whether b can end a line without colliding
// with command text.
func IsValidTerminator(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return false
	case b == DeviceSeparator:
		return false
	}
	return true
}
