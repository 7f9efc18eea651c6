package protocol

// LineBuffer is a fixed-capacity byte buffer holding the line being
// assembled. The backing array is allocated once; Append never grows it.
type LineBuffer struct {
	buf []byte
	n   int
}

// NewLineBuffer creates a LineBuffer that holds at most capacity bytes
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 1 {
		capacity = DefaultLineCapacity
	}
	return &LineBuffer{buf: make([]byte, capacity)}
}

// Append stores b if there is room. It reports whether b was stored.
func (l *LineBuffer) Append(b byte) bool {
	if l.n >= len(l.buf) {
		return false
	}
	l.buf[l.n] = b
	l.n++
	return true
}

// Len returns the number of buffered bytes
func (l *LineBuffer) Len() int {
	return l.n
}

// Cap returns the fixed capacity
func (l *LineBuffer) Cap() int {
	return len(l.buf)
}

// Full returns true once Len has reached Cap
func (l *LineBuffer) Full() bool {
	return l.n >= len(l.buf)
}

// Bytes returns a view of the buffered bytes.
// The view is only valid until the next Append or Reset.
func (l *LineBuffer) Bytes() []byte {
	return l.buf[:l.n]
}

// String returns a copy of the buffered bytes as a string
func (l *LineBuffer) String() string {
	return string(l.buf[:l.n])
}

// CopyTo copies the buffered bytes into dst and returns the count copied
func (l *LineBuffer) CopyTo(dst []byte) int {
	return copy(dst, l.buf[:l.n])
}

// Reset clears the buffer. The old contents are zeroed so no stale bytes
// survive into the next line.
func (l *LineBuffer) Reset() {
	for i := 0; i < l.n; i++ {
		l.buf[i] = 0
	}
	l.n = 0
}
