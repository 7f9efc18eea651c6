package protocol

import "testing"

func TestLineBuffer(t *testing.T) {
	buf := NewLineBuffer(5)

	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", buf.Len())
	}

	if buf.Cap() != 5 {
		t.Errorf("Expected capacity 5, got %d", buf.Cap())
	}

	for _, b := range []byte("abc") {
		if !buf.Append(b) {
			t.Errorf("Append(%q) rejected below capacity", b)
		}
	}

	if buf.String() != "abc" {
		t.Errorf("Expected 'abc', got '%s'", buf.String())
	}

	if buf.Full() {
		t.Error("Buffer with 3 of 5 bytes should not be full")
	}
}

func TestLineBufferStopsAtCapacity(t *testing.T) {
	buf := NewLineBuffer(5)

	for _, b := range []byte("ABCDEFG") {
		buf.Append(b)
	}

	if buf.Len() != 5 {
		t.Errorf("Expected length 5, got %d", buf.Len())
	}

	if buf.String() != "ABCDE" {
		t.Errorf("Expected 'ABCDE', got '%s'", buf.String())
	}

	if !buf.Full() {
		t.Error("Buffer at capacity should be full")
	}

	if buf.Append('H') {
		t.Error("Append on a full buffer should be rejected")
	}
}

func TestLineBufferReset(t *testing.T) {
	buf := NewLineBuffer(4)
	for _, b := range []byte("wxyz") {
		buf.Append(b)
	}

	view := buf.Bytes()
	buf.Reset()

	if buf.Len() != 0 {
		t.Errorf("After reset, expected length 0, got %d", buf.Len())
	}

	// The old view aliases the backing array, which must be zeroed
	for i, b := range view {
		if b != 0 {
			t.Errorf("Stale byte %q left at index %d", b, i)
		}
	}

	buf.Append('q')
	if buf.String() != "q" {
		t.Errorf("Expected 'q' after reuse, got '%s'", buf.String())
	}
}

func TestLineBufferCopyTo(t *testing.T) {
	buf := NewLineBuffer(8)
	for _, b := range []byte("s1_X") {
		buf.Append(b)
	}

	dst := make([]byte, 8)
	n := buf.CopyTo(dst)
	if n != 4 || string(dst[:n]) != "s1_X" {
		t.Errorf("CopyTo failed: got %d bytes %q", n, dst[:n])
	}
}

func TestNewLineBufferDefaultCapacity(t *testing.T) {
	buf := NewLineBuffer(0)
	if buf.Cap() != DefaultLineCapacity {
		t.Errorf("Expected default capacity %d, got %d", DefaultLineCapacity, buf.Cap())
	}
}

func TestIsValidTerminator(t *testing.T) {
	tests := []struct {
		b    byte
		want bool
	}{
		{'\r', true},
		{'\n', true},
		{';', true},
		{'_', false},
		{'s', false},
		{'7', false},
	}

	for _, test := range tests {
		if got := IsValidTerminator(test.b); got != test.want {
			t.Errorf("IsValidTerminator(%q): expected %v, got %v", test.b, test.want, got)
		}
	}
}
