package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fwconfig "uartslave/config"
	"uartslave/core"
	"uartslave/host/serial"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, 20, cfg.Line.Capacity)
	assert.Equal(t, byte('\r'), cfg.Terminator())
	assert.Equal(t, uint8(1), cfg.SlaveID())
	assert.Equal(t, "uartslave", cfg.MQTT.Topic)

	fw := cfg.Firmware()
	assert.Equal(t, core.DispatchDeferred, fw.Dispatch)
	assert.Equal(t, core.LEDWhite, fw.DefaultOutput)
	assert.Equal(t, core.GPIOPin(3), fw.Outputs[core.LEDRed])
}

const sample = `
serial:
  device: /dev/ttyUSB0
  baud: 115200
  parity: E
  stop_bits: 2
line:
  capacity: 32
  terminator: ";"
slave:
  id: 0
  dispatch: inline
  ignore_foreign: true
mqtt:
  broker: tcp://localhost:1883
  topic: lab/leds
  qos: 1
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	port := cfg.SerialPort()
	assert.Equal(t, "/dev/ttyUSB0", port.Device)
	assert.Equal(t, "115200 8E2", port.String())

	assert.Equal(t, byte(';'), cfg.Terminator())
	assert.Equal(t, uint8(0), cfg.SlaveID(), "explicit id 0 must survive defaults")

	fw := cfg.Firmware()
	assert.Equal(t, 32, fw.Capacity)
	assert.Equal(t, core.DispatchInline, fw.Dispatch)
	assert.True(t, fw.IgnoreForeign)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"baud":        "serial: {baud: 250000}",
		"capacity":    "line: {capacity: -3}",
		"terminator":  "line: {terminator: x}",
		"long term":   "line: {terminator: crlf}",
		"dispatch":    "slave: {dispatch: later}",
		"default out": "slave: {default_output: LED_PINK}",
		"qos":         "mqtt: {qos: 3}",
		"wildcard":    "mqtt: {topic: 'a/#'}",
		"yaml":        "serial: [",
	}
	for name, doc := range tests {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}

	_, err := Parse([]byte("serial: {baud: 1234}"))
	assert.True(t, errors.Is(err, serial.ErrBaud))

	_, err = Parse([]byte("slave: {default_output: LED_PINK}"))
	assert.True(t, errors.Is(err, fwconfig.ErrDefaultOutput))
}

func TestParseTerminator(t *testing.T) {
	for in, want := range map[string]byte{"cr": '\r', "CR": '\r', "lf": '\n', "\r": '\r', ";": ';', "#": '#'} {
		b, err := ParseTerminator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, b, in)
	}
	for _, in := range []string{"_", "7", "a", "", "crlf"} {
		_, err := ParseTerminator(in)
		assert.Error(t, err, in)
	}
}

func TestLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "uartslave")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "leds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 115200, cfg.Serial.Baud)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
