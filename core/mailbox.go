package core

// Mailbox is the single-slot hand-off between the receiver context and the
// main context. The token channel coalesces: at most one completion is
// ever outstanding, matching the one-line-in-flight rule. The free channel
// runs the other way and wakes a receiver holding bytes back.
type Mailbox struct {
	token chan struct{}
	free  chan struct{}
	slot  []byte
}

func newMailbox(capacity int) *Mailbox {
	return &Mailbox{
		token: make(chan struct{}, 1),
		free:  make(chan struct{}, 1),
		slot:  make([]byte, capacity),
	}
}

// post signals the main context without blocking
func (m *Mailbox) post() {
	select {
	case m.token <- struct{}{}:
	default:
	}
}

// Ready returns the completion token channel
func (m *Mailbox) Ready() <-chan struct{} {
	return m.token
}

// drain discards a stale token
func (m *Mailbox) drain() {
	select {
	case <-m.token:
	default:
	}
}

// release signals the receiver context without blocking
func (m *Mailbox) release() {
	select {
	case m.free <- struct{}{}:
	default:
	}
}

// Free returns the slot-cleared channel
func (m *Mailbox) Free() <-chan struct{} {
	return m.free
}
