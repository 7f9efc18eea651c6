//go:build rp2040 || rp2350

package main

import (
	"machine"

	"uartslave/core"
)

// Command link settings. UART1 keeps GPIO0/GPIO1 free for the LED bank.
const (
	commandBaud = 9600
)

var commandUART = machine.UART1

// InitCommandUART configures the command UART, 8N1.
// TinyGo fills the receive ring from the UART interrupt.
func InitCommandUART() error {
	err := commandUART.Configure(machine.UARTConfig{
		BaudRate: commandBaud,
		TX:       machine.UART1_TX_PIN,
		RX:       machine.UART1_RX_PIN,
	})
	if err != nil {
		return err
	}
	return commandUART.SetFormat(8, 1, machine.ParityNone)
}

// UARTAvailable returns the number of bytes waiting in the receive ring
func UARTAvailable() int {
	return commandUART.Buffered()
}

// UARTRead reads a single byte from the receive ring
func UARTRead() (byte, error) {
	return commandUART.ReadByte()
}

// InitUSBDebug routes core debug output to USB CDC
func InitUSBDebug() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
}
