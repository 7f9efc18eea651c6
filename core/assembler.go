package core

import (
	"context"

	"uartslave/protocol"
)

// Assembler accumulates received bytes into a bounded line buffer and
// hands completed lines to a LineHandler.
//
// Receive and TryReceive are the receiver context (UART interrupt or
// reader goroutine). Poll and Run are the main context. The buffer, both
// flags and the counters are only touched inside the critical section.
type Assembler struct {
	cs         critical
	buf        *protocol.LineBuffer
	terminator byte
	mode       DispatchMode

	ready    bool // Line-Ready flag
	overflow bool // Overflow flag

	handler  LineHandler
	observer DispatchObserver
	mailbox  *Mailbox
	stats    Stats
}

// NewAssembler creates an Assembler in the COLLECTING state.
// A nil cfg uses the protocol defaults with deferred dispatch.
func NewAssembler(cfg *Config, handler LineHandler) *Assembler {
	a := &Assembler{
		buf:        protocol.NewLineBuffer(cfg.LineCapacity()),
		terminator: cfg.LineTerminator(),
		handler:    handler,
	}
	if cfg != nil {
		a.mode = cfg.Dispatch
	}
	a.mailbox = newMailbox(a.buf.Cap())
	return a
}

// SetObserver sets a hook that sees every dispatch step
func (a *Assembler) SetObserver(obs DispatchObserver) {
	state := a.cs.disable()
	defer a.cs.restore(state)
	a.observer = obs
}

// Mode returns the dispatch mode
func (a *Assembler) Mode() DispatchMode {
	return a.mode
}

// Capacity returns the line capacity
func (a *Assembler) Capacity() int {
	return a.buf.Cap()
}

// Receive applies one received byte. It never blocks on the main context:
// a byte arriving while a line is pending is dropped and counted, so it is
// for receivers with nowhere to keep it. Receivers that can hold bytes back
// use TryReceive.
// In inline mode a terminator runs the dispatch step before Receive
// returns; the handler must not call back into the Assembler.
func (a *Assembler) Receive(b byte) {
	state := a.cs.disable()
	defer a.cs.restore(state)

	a.stats.BytesReceived++

	// A line is waiting for the main context; nothing may be assembled
	// behind it.
	if a.ready || a.overflow {
		a.stats.BusyDropped++
		RecordEvent(EvtBusyDrop, uint32(b))
		return
	}
	a.acceptLocked(b)
}

// TryReceive applies b unless a line is pending, in which case b is not
// consumed and false is returned. Wait on Free and offer the byte again.
// In inline mode every byte is accepted.
func (a *Assembler) TryReceive(b byte) bool {
	state := a.cs.disable()
	defer a.cs.restore(state)

	if a.ready || a.overflow {
		return false
	}
	a.stats.BytesReceived++
	a.acceptLocked(b)
	return true
}

// Busy reports whether a line is waiting for the main context
func (a *Assembler) Busy() bool {
	state := a.cs.disable()
	defer a.cs.restore(state)
	return a.ready || a.overflow
}

// Free returns a channel signalled whenever Poll or Reset clears a pending
// line. A signal may be stale; re-check with TryReceive or Busy.
func (a *Assembler) Free() <-chan struct{} {
	return a.mailbox.Free()
}

func (a *Assembler) acceptLocked(b byte) {
	if b != a.terminator {
		if !a.buf.Append(b) {
			a.stats.BytesDropped++
			RecordEvent(EvtByteDropped, uint32(a.buf.Len()))
		}
		return
	}

	// Boundary is exclusive: a line that exactly fills the buffer overflows
	if a.buf.Full() {
		a.overflow = true
		RecordEvent(EvtOverflow, uint32(a.buf.Len()))
	} else {
		a.ready = true
		RecordEvent(EvtLineReady, uint32(a.buf.Len()))
	}

	if a.mode == DispatchInline {
		a.dispatchLocked()
		return
	}
	a.mailbox.post()
}

// dispatchLocked runs the dispatch step inside the critical section.
// State is reset on every path, including a panicking handler.
func (a *Assembler) dispatchLocked() {
	defer a.resetLocked()

	line := a.buf.Bytes()
	switch {
	case a.ready:
		if a.observer != nil {
			a.observer(StateLineComplete, line)
		}
		a.stats.LinesDispatched++
		RecordEvent(EvtDispatched, uint32(len(line)))
		if a.handler != nil {
			a.handler.HandleLine(line)
		}
	case a.overflow:
		if a.observer != nil {
			a.observer(StateLineOverflowed, line)
		}
		a.stats.LinesDiscarded++
		RecordEvent(EvtDiscarded, uint32(len(line)))
		DebugAsync("[LINE] overflow, discarded " + itoa(len(line)) + " bytes")
	}
}

func (a *Assembler) resetLocked() {
	a.buf.Reset()
	a.ready = false
	a.overflow = false
}

// Poll performs the deferred hand-off. Inside the critical section it reads
// the flags, copies the line into the mailbox slot and clears the state;
// the handler then runs on the copy with interrupts enabled, so new bytes
// can be collected while it executes. Poll must be called from a single
// context. It reports whether a terminator had been pending.
func (a *Assembler) Poll() bool {
	state := a.cs.disable()
	if !a.ready && !a.overflow {
		a.cs.restore(state)
		return false
	}

	complete := a.ready
	n := a.buf.CopyTo(a.mailbox.slot)
	if complete {
		a.stats.LinesDispatched++
		RecordEvent(EvtDispatched, uint32(n))
	} else {
		a.stats.LinesDiscarded++
		RecordEvent(EvtDiscarded, uint32(n))
	}
	a.resetLocked()
	a.mailbox.drain()
	a.mailbox.release()
	observer, handler := a.observer, a.handler
	a.cs.restore(state)

	line := a.mailbox.slot[:n]
	if !complete {
		if observer != nil {
			observer(StateLineOverflowed, line)
		}
		DebugAsync("[LINE] overflow, discarded " + itoa(n) + " bytes")
		return true
	}

	if observer != nil {
		observer(StateLineComplete, line)
	}
	if handler != nil {
		handler.HandleLine(line)
	}
	return true
}

// Pending returns the completion token channel used in deferred mode
func (a *Assembler) Pending() <-chan struct{} {
	return a.mailbox.Ready()
}

// Run polls on every completion token until ctx is done. It is the host
// equivalent of the firmware main loop calling Poll.
func (a *Assembler) Run(ctx context.Context) error {
	for {
		select {
		case <-a.mailbox.Ready():
			a.Poll()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reset discards any partial or pending line
func (a *Assembler) Reset() {
	state := a.cs.disable()
	defer a.cs.restore(state)
	a.resetLocked()
	a.mailbox.drain()
	a.mailbox.release()
}

// State returns the current state
func (a *Assembler) State() LineState {
	state := a.cs.disable()
	defer a.cs.restore(state)
	return a.stateLocked()
}

func (a *Assembler) stateLocked() LineState {
	switch {
	case a.ready:
		return StateLineComplete
	case a.overflow:
		return StateLineOverflowed
	}
	return StateCollecting
}

// Snapshot returns the buffer and flags as one consistent unit
func (a *Assembler) Snapshot() Snapshot {
	state := a.cs.disable()
	defer a.cs.restore(state)
	return Snapshot{
		State:    a.stateLocked(),
		Line:     a.buf.String(),
		Ready:    a.ready,
		Overflow: a.overflow,
	}
}

// Stats returns a copy of the counters
func (a *Assembler) Stats() Stats {
	state := a.cs.disable()
	defer a.cs.restore(state)
	return a.stats
}
