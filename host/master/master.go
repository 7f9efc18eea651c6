package master

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"uartslave/core"
	"uartslave/host/serial"
	"uartslave/protocol"
)

var (
	// ErrNotConnected is returned when sending before Connect or Attach
	ErrNotConnected = errors.New("not connected to slave")
	// ErrLineTooLong is returned for a line the slave would discard as overflow
	ErrLineTooLong = errors.New("line would overflow the slave buffer")
	// ErrBadLine is returned for a line that embeds its own terminator
	ErrBadLine = errors.New("line contains the terminator")
)

// Master sends command lines to LED slaves over one serial link
type Master struct {
	mu sync.Mutex

	transport *protocol.Transport
	closer    io.Closer

	capacity   int
	terminator byte

	// Settle is how long Connect waits for a freshly opened slave
	Settle time.Duration

	sent uint32
}

// New creates a master (not yet connected) for slaves with the given line
// capacity and terminator
func New(capacity int, terminator byte) *Master {
	if capacity < 1 {
		capacity = protocol.DefaultLineCapacity
	}
	if terminator == 0 {
		terminator = protocol.DefaultTerminator
	}
	return &Master{
		capacity:   capacity,
		terminator: terminator,
		Settle:     100 * time.Millisecond,
	}
}

// Connect opens device with the default 9600 8N1 settings
func (m *Master) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a serial port with a custom config
func (m *Master) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)
	glog.Infof("connected to %s (%s)", cfg.Device, cfg)

	// Give the slave time to initialize (if it just powered on)
	time.Sleep(m.Settle)
	return nil
}

// Attach uses an already open link, e.g. a pipe to a virtual slave
func (m *Master) Attach(rw io.ReadWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transport = protocol.NewTransport(rw)
	m.transport.SetTerminator(m.terminator)
	m.closer = nil
	if c, ok := rw.(io.Closer); ok {
		m.closer = c
	}
}

// Connected reports whether a link is attached
func (m *Master) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transport != nil
}

// Close closes the link
func (m *Master) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transport = nil
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// Capacity returns the slave line capacity the master checks against
func (m *Master) Capacity() int {
	return m.capacity
}

// FormatCommand builds s<id>_<action>
func FormatCommand(id uint8, action string) string {
	return string(protocol.DevicePrefix) + strconv.Itoa(int(id)) +
		string(protocol.DeviceSeparator) + action
}

// Send addresses action to slave id
func (m *Master) Send(id uint8, action string) error {
	if action == "" {
		return core.ErrEmptyAction
	}
	return m.SendRaw(FormatCommand(id, action), false)
}

// SendRaw sends line followed by the terminator. Unless force is set, a
// line the slave would discard as overflow is rejected before sending.
func (m *Master) SendRaw(line string, force bool) error {
	if strings.IndexByte(line, m.terminator) >= 0 {
		return fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	if !force && len(line) >= m.capacity {
		return fmt.Errorf("%w: %d bytes, slave holds %d", ErrLineTooLong, len(line), m.capacity-1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return ErrNotConnected
	}
	if err := m.transport.SendLine(line); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	m.sent++
	glog.V(2).Infof("sent %q", line)
	return nil
}

// Sent returns the number of lines written
func (m *Master) Sent() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// Actions returns the recognized action names in registration order
func Actions() []string {
	cmds := core.NewLEDRegistry().Commands()
	names := make([]string, len(cmds))
	for i, cmd := range cmds {
		names[i] = cmd.Name
	}
	return names
}
