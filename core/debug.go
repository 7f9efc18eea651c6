package core

import "sync"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// LineEvent captures a line-protocol event for post-mortem analysis
type LineEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // System clock at event
	Value     uint32 // Context-dependent value (usually a length)
}

// Event type codes
const (
	EvtLineReady   = 1 // Terminator seen within capacity
	EvtOverflow    = 2 // Terminator seen at or past capacity
	EvtByteDropped = 3 // Byte past capacity dropped
	EvtDispatched  = 4 // Line handed to the interpreter
	EvtDiscarded   = 5 // Overflowed line discarded
	EvtBusyDrop    = 6 // Byte arrived while a line was pending
	EvtDefault     = 7 // Interpreter default action fired
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]LineEvent
	eventRingHead uint8
	eventRingMu   sync.Mutex

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, glog, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker(debugChan)
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch <-chan string) {
	for msg := range ch {
		DebugPrintln(msg)
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Safe from the receiver context; drops the message if the channel is full
func DebugAsync(msg string) {
	if debugChan != nil && debugEnabled {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordEvent captures a line event in the ring buffer
func RecordEvent(eventType uint8, value uint32) {
	eventRingMu.Lock()
	idx := eventRingHead
	eventRing[idx] = LineEvent{
		EventType: eventType,
		Clock:     GetTime(),
		Value:     value,
	}
	eventRingHead = (idx + 1) % EventRingSize
	eventRingMu.Unlock()
}

// EventName returns a printable name for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtLineReady:
		return "LINE_READY"
	case EvtOverflow:
		return "OVERFLOW!"
	case EvtByteDropped:
		return "BYTE_DROP"
	case EvtDispatched:
		return "DISPATCH"
	case EvtDiscarded:
		return "DISCARD"
	case EvtBusyDrop:
		return "BUSY_DROP"
	case EvtDefault:
		return "DEFAULT"
	}
	return "UNKNOWN"
}

// Events returns the recorded events from oldest to newest
func Events() []LineEvent {
	eventRingMu.Lock()
	defer eventRingMu.Unlock()

	events := make([]LineEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// DumpEventRing outputs the event ring through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Line Event Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.EventType) +
			" t=" + utoa(TimerToUS(evt.Clock)) + "us" +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	eventRingMu.Lock()
	defer eventRingMu.Unlock()
	for i := range eventRing {
		eventRing[i] = LineEvent{}
	}
	eventRingHead = 0
}
