package config

import (
	"errors"
	"testing"

	"uartslave/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 20 {
		t.Errorf("Expected capacity 20, got %d", cfg.Capacity)
	}
	if cfg.Terminator != '\r' {
		t.Errorf("Expected CR terminator, got %q", cfg.Terminator)
	}
	if cfg.DeviceID != 1 {
		t.Errorf("Expected device 1, got %d", cfg.DeviceID)
	}
	if cfg.Dispatch != core.DispatchDeferred {
		t.Errorf("Expected deferred dispatch, got %s", cfg.Dispatch)
	}
	if cfg.DefaultOutput != core.LEDWhite {
		t.Errorf("Expected LED_WHITE default, got %s", cfg.DefaultOutput)
	}
	if cfg.Outputs[core.LEDRed] != 3 || cfg.Outputs[core.LEDBlue] != 7 {
		t.Errorf("Unexpected output map %v", cfg.Outputs)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}

	// The default map is copied, not shared
	cfg.Outputs[core.LEDRed] = 9
	if core.DefaultOutputPins[core.LEDRed] != 3 {
		t.Error("DefaultConfig aliased DefaultOutputPins")
	}
}

func TestLoadConfig(t *testing.T) {
	data := []byte(`{
		"capacity": 32,
		"terminator": 59,
		"device_id": 7,
		"dispatch": "inline",
		"ignore_foreign": true,
		"debug": true
	}`)

	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Capacity != 32 || cfg.Terminator != ';' || cfg.DeviceID != 7 {
		t.Errorf("Unexpected line settings %+v", cfg)
	}
	if cfg.Dispatch != core.DispatchInline {
		t.Errorf("Expected inline dispatch, got %s", cfg.Dispatch)
	}
	if !cfg.IgnoreForeign || !cfg.Debug {
		t.Error("Expected ignore_foreign and debug set")
	}
	if len(cfg.Outputs) != 5 {
		t.Errorf("Expected default outputs applied, got %v", cfg.Outputs)
	}
}

func TestLoadConfigOutputs(t *testing.T) {
	data := []byte(`{
		"default_output": "LED_GREEN",
		"outputs": {"LED_YELLOW": 10, "LED_RED": 11, "LED_GREEN": 12, "LED_BLUE": 13}
	}`)

	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Outputs[core.LEDGreen] != 12 || cfg.DefaultOutput != core.LEDGreen {
		t.Errorf("Unexpected outputs %+v", cfg)
	}
	if _, ok := cfg.Outputs[core.LEDWhite]; ok {
		t.Error("Explicit outputs must replace the default map")
	}
	if cfg.DeviceID != 1 {
		t.Errorf("Expected device 1 when device_id is absent, got %d", cfg.DeviceID)
	}

	cfg, err = LoadConfig([]byte(`{"device_id": 0}`))
	if err != nil || cfg.DeviceID != 0 {
		t.Errorf("Expected explicit device 0, got %v (%v)", cfg, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"negative capacity", `{"capacity": -1}`, ErrCapacity},
		{"letter terminator", `{"terminator": 65}`, ErrTerminator},
		{"underscore terminator", `{"terminator": 95}`, ErrTerminator},
		{"missing default", `{"default_output": "LED_PINK"}`, ErrDefaultOutput},
		{"duplicate pin", `{"outputs": {"LED_YELLOW": 1, "LED_RED": 1, "LED_GREEN": 5, "LED_BLUE": 7, "LED_WHITE": 0}}`, ErrDuplicatePin},
		{"missing action output", `{"outputs": {"LED_RED": 3, "LED_WHITE": 0}}`, ErrUnknownCommand},
		{"unknown backend", `{"backend": "dma"}`, ErrBackend},
		{"pio window too wide", `{"backend": "pio", "outputs": {"LED_YELLOW": 1, "LED_RED": 3, "LED_GREEN": 5, "LED_BLUE": 40, "LED_WHITE": 0}}`, ErrOutputWindow},
	}

	for _, test := range tests {
		_, err := LoadConfig([]byte(test.data))
		if !errors.Is(err, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}

	if _, err := LoadConfig([]byte(`{"dispatch": "sometimes"}`)); err == nil {
		t.Error("Expected error for unknown dispatch mode")
	}
	if _, err := LoadConfig([]byte(`{`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestLoadConfigBackend(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Backend != BackendGPIO {
		t.Errorf("Expected gpio backend by default, got %q", cfg.Backend)
	}

	cfg, err = LoadConfig([]byte(`{"backend": "pio"}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Backend != BackendPIO {
		t.Errorf("Expected pio backend, got %q", cfg.Backend)
	}
}

func TestOutputWindow(t *testing.T) {
	tests := []struct {
		name    string
		outputs map[string]core.GPIOPin
		base    uint8
		count   uint8
	}{
		{"default board", core.DefaultOutputPins, 0, 8},
		{"offset", map[string]core.GPIOPin{"A": 10, "B": 12}, 10, 3},
		{"single pin", map[string]core.GPIOPin{"A": 4}, 4, 1},
		{"exactly 32", map[string]core.GPIOPin{"A": 2, "B": 33}, 2, 32},
		{"too wide", map[string]core.GPIOPin{"A": 0, "B": 32}, 0, 0},
		{"empty", nil, 0, 0},
	}

	for _, test := range tests {
		base, count := OutputWindow(test.outputs)
		if base != test.base || count != test.count {
			t.Errorf("%s: expected %d/%d, got %d/%d", test.name, test.base, test.count, base, count)
		}
	}
}
