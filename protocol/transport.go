package protocol

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ByteSink receives one byte per call, in arrival order.
// core.Assembler implements it.
type ByteSink interface {
	Receive(b byte)
}

// ByteSinkFunc adapts a function to ByteSink
type ByteSinkFunc func(b byte)

// Receive implements ByteSink
func (f ByteSinkFunc) Receive(b byte) {
	f(b)
}

// ErrShortWrite is returned when the port accepts no bytes
var ErrShortWrite = errors.New("protocol: write made no progress")

// flusher is implemented by ports that buffer writes
type flusher interface {
	Flush() error
}

// Transport moves raw bytes between a serial port and the line layer.
// Inbound bytes are handed one at a time to a ByteSink; outbound helpers
// mirror the firmware's send primitives.
type Transport struct {
	// ReadTimeout is set when the port returns io.EOF on a read timeout
	// instead of end of stream (tarm/serial does this).
	ReadTimeout bool

	rw         io.ReadWriter
	terminator byte
	writeMu    sync.Mutex
}

// NewTransport creates a Transport using the default terminator
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{
		rw:         rw,
		terminator: DefaultTerminator,
	}
}

// SetTerminator changes the byte appended by SendLine
func (t *Transport) SetTerminator(b byte) {
	t.terminator = b
}

// Terminator returns the byte appended by SendLine
func (t *Transport) Terminator() byte {
	return t.terminator
}

// Pump reads from the port and delivers every byte to sink until ctx is
// done or the port fails. Bytes are delivered in strict arrival order.
func (t *Transport) Pump(ctx context.Context, sink ByteSink) error {
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.readLoop(subCtx, chunkCh, errCh)

	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				sink.Receive(b)
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Transport) readLoop(ctx context.Context, chunkCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := t.rw.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err == io.EOF && t.ReadTimeout {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// SendByte sends one byte
func (t *Transport) SendByte(b byte) error {
	return t.write([]byte{b})
}

// SendNewLine sends CR LF
func (t *Transport) SendNewLine() error {
	return t.write([]byte{DefaultTerminator, LineFeed})
}

// SendString sends s without a terminator
func (t *Transport) SendString(s string) error {
	return t.write([]byte(s))
}

// SendLine sends line followed by the terminator as a single write
func (t *Transport) SendLine(line string) error {
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	out = append(out, t.terminator)
	return t.write(out)
}

// write sends all of data, handling partial writes
func (t *Transport) write(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	written := 0
	for written < len(data) {
		n, err := t.rw.Write(data[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrShortWrite
		}
		written += n
	}

	if f, ok := t.rw.(flusher); ok {
		return f.Flush()
	}
	return nil
}
