package sim

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartslave/config"
	"uartslave/core"
)

type link struct {
	io.Reader
	io.Writer
}

func newLink(input string) *link {
	return &link{Reader: strings.NewReader(input), Writer: &bytes.Buffer{}}
}

func newSlave(t *testing.T, mode core.DispatchMode) *VirtualSlave {
	cfg := config.DefaultConfig()
	cfg.Dispatch = mode
	v, err := New(cfg)
	require.NoError(t, err)
	return v
}

func TestServeInline(t *testing.T) {
	v := newSlave(t, core.DispatchInline)

	input := "s1_LED_RED_ON\rs1_LED_GREEN_ON\rs1_LED_RED_OFF\rs2_LED_BLUE_ON\r"
	require.NoError(t, v.Serve(context.Background(), newLink(input)))

	leds := v.LEDs()
	assert.False(t, leds[core.LEDRed])
	assert.True(t, leds[core.LEDGreen])
	assert.False(t, leds[core.LEDBlue], "s2 must not drive slave 1")
	assert.True(t, leds[core.LEDWhite], "foreign line takes the default branch")

	// GREEN on pin 5, WHITE on pin 0
	assert.Equal(t, uint8(0x21), v.GPIO().Port())
}

func TestServeDeferred(t *testing.T) {
	v := newSlave(t, core.DispatchDeferred)

	require.NoError(t, v.Serve(context.Background(), newLink("s1_LED_YELLOW_ON\r")))
	assert.True(t, v.GPIO().Pin(1))
	assert.Equal(t, uint32(1), v.Slave().Assembler().Stats().LinesDispatched)
}

func TestServeDeferredBackToBack(t *testing.T) {
	v, err := New(config.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, core.DispatchDeferred, v.Slave().Assembler().Mode())

	// One read returns every line; nothing paces the bytes
	input := "s1_LED_RED_ON\rs1_LED_GREEN_ON\rs1_LED_RED_OFF\rs2_LED_BLUE_ON\rs1_LED_BLUE_ON\r"
	require.NoError(t, v.Serve(context.Background(), newLink(input)))

	leds := v.LEDs()
	assert.False(t, leds[core.LEDRed])
	assert.True(t, leds[core.LEDGreen])
	assert.True(t, leds[core.LEDBlue])
	assert.True(t, leds[core.LEDWhite], "foreign line takes the default branch")

	st := v.Slave().Assembler().Stats()
	assert.Equal(t, uint32(5), st.LinesDispatched)
	assert.Equal(t, uint32(0), st.BusyDropped)
	assert.Equal(t, uint32(len(input)), st.BytesReceived)
	assert.Equal(t, uint32(1), v.Slave().Interpreter().Stats().Defaults)
}

func TestServeOverflow(t *testing.T) {
	v := newSlave(t, core.DispatchInline)

	// 20 bytes: exactly capacity, discarded
	require.NoError(t, v.Serve(context.Background(), newLink("s1_LED_RED_ON_______\r")))
	assert.Equal(t, uint8(0), v.GPIO().Port())

	st := v.Slave().Assembler().Stats()
	assert.Equal(t, uint32(1), st.LinesDiscarded)
	assert.Equal(t, uint32(0), st.LinesDispatched)
}

func TestServeCancel(t *testing.T) {
	v := newSlave(t, core.DispatchDeferred)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Serve(ctx, &link{Reader: r, Writer: io.Discard}) }()

	_, err := w.Write([]byte("s1_LED_BLUE_ON\r"))
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for !v.GPIO().Pin(7) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.True(t, v.GPIO().Pin(7))

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestFeed(t *testing.T) {
	v := newSlave(t, core.DispatchDeferred)

	v.Feed([]byte("s1_FOO\rs1_FOO\rs1_FOO\r"))
	assert.True(t, v.LEDs()[core.LEDWhite], "three toggles leave WHITE on")
	assert.Equal(t, uint32(3), v.Slave().Interpreter().Stats().Defaults)
}

func TestMemoryGPIOOnChange(t *testing.T) {
	g := NewMemoryGPIO()
	var changes []core.GPIOPin
	g.OnChange(func(pin core.GPIOPin, value bool) {
		changes = append(changes, pin)
	})

	require.NoError(t, g.ConfigureOutput(3))
	require.NoError(t, g.SetPin(3, true))
	require.NoError(t, g.SetPin(7, true))

	assert.Equal(t, []core.GPIOPin{3, 7}, changes)
	assert.Equal(t, 2, g.Writes())
	assert.Equal(t, uint8(0x88), g.Port())
}

func TestCharTimeFor(t *testing.T) {
	assert.Equal(t, time.Duration(1041666), CharTimeFor(9600))
	assert.Equal(t, time.Duration(0), CharTimeFor(0))
}

func TestEventTimestamps(t *testing.T) {
	v := newSlave(t, core.DispatchDeferred)
	core.ClearEventRing()
	time.Sleep(2 * time.Millisecond)

	v.Feed([]byte("s1_LED_RED_ON\r"))

	events := core.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, uint8(core.EvtDispatched), last.EventType)
	assert.NotZero(t, last.Clock, "host events carry the monotonic clock")
}

func TestShutdown(t *testing.T) {
	v := newSlave(t, core.DispatchInline)
	v.Feed([]byte("s1_LED_RED_ON\rs1_LED_BLUE_ON\r"))
	require.NotZero(t, v.GPIO().Port())

	v.Shutdown()
	assert.Equal(t, uint8(0), v.GPIO().Port())
	for name, on := range v.LEDs() {
		assert.False(t, on, name)
	}
}
