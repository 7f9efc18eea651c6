package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	fwconfig "uartslave/config"
	"uartslave/core"
	"uartslave/host/serial"
	"uartslave/protocol"
)

// Config is the host tool configuration file
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Line   LineConfig   `yaml:"line"`
	Slave  SlaveConfig  `yaml:"slave"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	DataBits      int    `yaml:"data_bits"`
	Parity        string `yaml:"parity"` // N, O or E
	StopBits      int    `yaml:"stop_bits"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- LINE ----

type LineConfig struct {
	Capacity   int    `yaml:"capacity"`
	Terminator string `yaml:"terminator"` // "cr", "lf" or a single character
}

// ---- SLAVE ----

type SlaveConfig struct {
	ID            *uint8            `yaml:"id"` // default 1; 0 is a valid address
	Dispatch      string            `yaml:"dispatch"`
	IgnoreForeign bool              `yaml:"ignore_foreign"`
	DefaultOutput string            `yaml:"default_output"`
	Outputs       map[string]uint32 `yaml:"outputs"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // tcp://host:1883
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"` // prefix; commands arrive on <topic>/<id>/cmd
	QoS      byte   `yaml:"qos"`
}

const defaultTopic = "uartslave"

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	def := serial.DefaultConfig("")
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = def.Baud
	}
	if cfg.Serial.DataBits == 0 {
		cfg.Serial.DataBits = def.DataBits
	}
	if cfg.Serial.Parity == "" {
		cfg.Serial.Parity = string(def.Parity)
	}
	if cfg.Serial.StopBits == 0 {
		cfg.Serial.StopBits = def.StopBits
	}
	if cfg.Serial.ReadTimeoutMs == 0 {
		cfg.Serial.ReadTimeoutMs = def.ReadTimeout
	}

	if cfg.Line.Capacity == 0 {
		cfg.Line.Capacity = protocol.DefaultLineCapacity
	}
	if cfg.Line.Terminator == "" {
		cfg.Line.Terminator = "cr"
	}

	if cfg.Slave.ID == nil {
		id := uint8(1)
		cfg.Slave.ID = &id
	}
	if cfg.Slave.Dispatch == "" {
		cfg.Slave.Dispatch = core.DispatchDeferred.String()
	}
	if cfg.Slave.DefaultOutput == "" {
		cfg.Slave.DefaultOutput = core.LEDWhite
	}
	if len(cfg.Slave.Outputs) == 0 {
		cfg.Slave.Outputs = make(map[string]uint32, len(core.DefaultOutputPins))
		for name, pin := range core.DefaultOutputPins {
			cfg.Slave.Outputs[name] = uint32(pin)
		}
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = defaultTopic
	}
}

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if err := cfg.SerialPort().Validate(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	if cfg.Line.Capacity < 1 {
		return fmt.Errorf("line: capacity must be at least 1, got %d", cfg.Line.Capacity)
	}
	if _, err := ParseTerminator(cfg.Line.Terminator); err != nil {
		return fmt.Errorf("line: %w", err)
	}

	if _, err := core.ParseDispatchMode(cfg.Slave.Dispatch); err != nil {
		return fmt.Errorf("slave: %w", err)
	}
	if err := fwconfig.Validate(cfg.Firmware()); err != nil {
		return fmt.Errorf("slave: %w", err)
	}

	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	if strings.ContainsAny(cfg.MQTT.Topic, "+#") {
		return fmt.Errorf("mqtt: topic prefix %q must not contain wildcards", cfg.MQTT.Topic)
	}
	return nil
}

// ParseTerminator accepts "cr", "lf" or a single non-command character
func ParseTerminator(s string) (byte, error) {
	var b byte
	switch strings.ToLower(s) {
	case "cr", "\r":
		b = '\r'
	case "lf", "\n":
		b = '\n'
	default:
		if len(s) != 1 {
			return 0, fmt.Errorf("terminator %q must be cr, lf or one character", s)
		}
		b = s[0]
	}
	if !protocol.IsValidTerminator(b) {
		return 0, fmt.Errorf("terminator %q collides with command text", s)
	}
	return b, nil
}

// Terminator returns the line terminator byte
func (cfg *Config) Terminator() byte {
	b, err := ParseTerminator(cfg.Line.Terminator)
	if err != nil {
		return protocol.DefaultTerminator
	}
	return b
}

// SlaveID returns the addressed slave
func (cfg *Config) SlaveID() uint8 {
	if cfg.Slave.ID == nil {
		return 1
	}
	return *cfg.Slave.ID
}

// SerialPort returns the port settings
func (cfg *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		DataBits:    cfg.Serial.DataBits,
		Parity:      serial.Parity(strings.ToUpper(cfg.Serial.Parity + "N")[0]),
		StopBits:    cfg.Serial.StopBits,
		ReadTimeout: cfg.Serial.ReadTimeoutMs,
	}
}

// Firmware returns the slave configuration a virtual slave runs with
func (cfg *Config) Firmware() *core.Config {
	mode, _ := core.ParseDispatchMode(cfg.Slave.Dispatch)
	outputs := make(map[string]core.GPIOPin, len(cfg.Slave.Outputs))
	for name, pin := range cfg.Slave.Outputs {
		outputs[name] = core.GPIOPin(pin)
	}
	return &core.Config{
		Capacity:      cfg.Line.Capacity,
		Terminator:    cfg.Terminator(),
		DeviceID:      cfg.SlaveID(),
		Dispatch:      mode,
		DefaultOutput: cfg.Slave.DefaultOutput,
		Outputs:       outputs,
		IgnoreForeign: cfg.Slave.IgnoreForeign,
	}
}
