package core

import (
	"context"
	"testing"
	"time"
)

func testSlaveConfig(mode DispatchMode) *Config {
	return &Config{
		Capacity:      20,
		Terminator:    '\r',
		DeviceID:      1,
		Dispatch:      mode,
		DefaultOutput: LEDWhite,
		Outputs:       DefaultOutputPins,
	}
}

func TestNewSlaveErrors(t *testing.T) {
	if _, err := NewSlave(nil, NewMockGPIODriver()); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewSlave(testSlaveConfig(DispatchInline), nil); err == nil {
		t.Error("Expected error for nil driver")
	}

	mock := NewMockGPIODriver()
	mock.failOn = 3
	if _, err := NewSlave(testSlaveConfig(DispatchInline), mock); err == nil {
		t.Error("Expected error when an output cannot be configured")
	}
}

func TestSlaveEndToEnd(t *testing.T) {
	for _, mode := range []DispatchMode{DispatchInline, DispatchDeferred} {
		t.Run(mode.String(), func(t *testing.T) {
			mock := NewMockGPIODriver()
			slave, err := NewSlave(testSlaveConfig(mode), mock)
			if err != nil {
				t.Fatalf("NewSlave failed: %v", err)
			}

			send := func(s string) {
				for i := 0; i < len(s); i++ {
					slave.Receive(s[i])
				}
				slave.Poll()
			}

			send("s1_LED_RED_ON\r")
			if !mock.pin(3) {
				t.Error("Expected LED_RED on")
			}

			// Overflow: 20 bytes then terminator never reaches the interpreter
			send("s1_LED_BLUE_ON______\r")
			if mock.pin(7) || mock.pin(0) {
				t.Error("Overflowed line must have no output effect")
			}

			send("s1_FOO\r")
			if !mock.pin(0) {
				t.Error("Expected LED_WHITE toggled on")
			}

			send("s1_LED_RED_OFF\r")
			if mock.pin(3) {
				t.Error("Expected LED_RED off")
			}

			st := slave.Assembler().Stats()
			if st.LinesDispatched != 3 || st.LinesDiscarded != 1 {
				t.Errorf("Unexpected assembler stats %+v", st)
			}
			ist := slave.Interpreter().Stats()
			if ist.Executed != 2 || ist.Defaults != 1 {
				t.Errorf("Unexpected interpreter stats %+v", ist)
			}
		})
	}
}

func TestSlaveShutdown(t *testing.T) {
	mock := NewMockGPIODriver()
	slave, err := NewSlave(testSlaveConfig(DispatchDeferred), mock)
	if err != nil {
		t.Fatalf("NewSlave failed: %v", err)
	}

	for _, b := range []byte("s1_LED_GREEN_ON\r") {
		slave.Receive(b)
	}
	slave.Poll()
	for _, b := range []byte("s1_LED") {
		slave.Receive(b)
	}

	slave.Shutdown()

	if mock.pin(5) {
		t.Error("Expected all outputs low after shutdown")
	}
	if slave.Assembler().Snapshot().Line != "" {
		t.Error("Expected partial line discarded on shutdown")
	}
}

func TestSlaveRun(t *testing.T) {
	mock := NewMockGPIODriver()
	slave, err := NewSlave(testSlaveConfig(DispatchDeferred), mock)
	if err != nil {
		t.Fatalf("NewSlave failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go slave.Run(ctx)

	for _, b := range []byte("s1_LED_YELLOW_ON\r") {
		slave.Receive(b)
	}

	deadline := time.Now().Add(time.Second)
	for !mock.pin(1) {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for LED_YELLOW")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSlaveReaderHoldsBytesWhileBusy(t *testing.T) {
	mock := NewMockGPIODriver()
	slave, err := NewSlave(testSlaveConfig(DispatchDeferred), mock)
	if err != nil {
		t.Fatalf("NewSlave failed: %v", err)
	}

	// Both commands already sit in the receive ring when the reader runs
	ring := []byte("s1_LED_RED_ON\rs1_LED_BLUE_ON\r")
	for len(ring) > 0 {
		for len(ring) > 0 && !slave.Busy() {
			slave.Receive(ring[0])
			ring = ring[1:]
		}
		slave.Poll()
	}

	if !mock.pin(3) || !mock.pin(7) {
		t.Error("Expected LED_RED and LED_BLUE on")
	}
	if mock.pin(0) {
		t.Error("No line may reach the default branch")
	}
	if st := slave.Assembler().Stats(); st.BusyDropped != 0 || st.LinesDispatched != 2 {
		t.Errorf("Unexpected assembler stats %+v", st)
	}
	if ist := slave.Interpreter().Stats(); ist.Defaults != 0 {
		t.Errorf("Expected no default actions, got %d", ist.Defaults)
	}
}
