package core

import (
	"strings"
	"testing"
)

func TestEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	RecordEvent(EvtLineReady, 13)
	RecordEvent(EvtDispatched, 13)

	events := Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].EventType != EvtLineReady || events[1].EventType != EvtDispatched {
		t.Errorf("Events out of order: %+v", events)
	}
	if events[0].Value != 13 {
		t.Errorf("Expected value 13, got %d", events[0].Value)
	}
}

func TestEventRingWraps(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	for i := 0; i < EventRingSize+5; i++ {
		RecordEvent(EvtByteDropped, uint32(i))
	}

	events := Events()
	if len(events) != EventRingSize {
		t.Fatalf("Expected %d events, got %d", EventRingSize, len(events))
	}
	if events[0].Value != 5 {
		t.Errorf("Expected oldest value 5, got %d", events[0].Value)
	}
	if events[EventRingSize-1].Value != EventRingSize+4 {
		t.Errorf("Expected newest value %d, got %d", EventRingSize+4, events[EventRingSize-1].Value)
	}
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	var out []string
	SetDebugWriter(func(s string) { out = append(out, s) })
	defer SetDebugWriter(func(string) {})

	a := NewAssembler(&Config{Capacity: 4, Dispatch: DispatchInline}, nil)
	for _, b := range []byte("ABCD\r") {
		a.Receive(b)
	}
	DumpEventRing()

	dump := strings.Join(out, "\n")
	for _, want := range []string{"OVERFLOW!", "DISCARD", "=== End Dump ==="} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump missing %q:\n%s", want, dump)
		}
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var out []string
	SetDebugWriter(func(s string) { out = append(out, s) })
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(out) != 1 || out[0] != "shown" {
		t.Errorf("Expected only 'shown', got %q", out)
	}
}

func TestStrutil(t *testing.T) {
	if itoa(0) != "0" || itoa(-42) != "-42" || utoa(4294967295) != "4294967295" {
		t.Error("itoa/utoa mismatch")
	}

	tests := []struct {
		in string
		v  uint8
		ok bool
	}{
		{"0", 0, true},
		{"007", 7, true},
		{"255", 255, true},
		{"256", 0, false},
		{"", 0, false},
		{"1a", 0, false},
	}
	for _, test := range tests {
		v, ok := parseUint8([]byte(test.in))
		if v != test.v || ok != test.ok {
			t.Errorf("parseUint8(%q) = (%d, %v), expected (%d, %v)", test.in, v, ok, test.v, test.ok)
		}
	}
}
