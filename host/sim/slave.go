// Package sim runs the slave firmware core on a host: bytes from any
// io.ReadWriter go through the same assembler and interpreter as on the
// board, and outputs land in a MemoryGPIO.
package sim

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"uartslave/core"
	"uartslave/protocol"
)

var (
	debugOnce sync.Once

	// epoch is the virtual power-on time of every simulated slave
	epoch = time.Now()
)

// tick advances the firmware clock from the host monotonic clock, so event
// timestamps read as microseconds since start
func tick() {
	core.SetTime(uint32(time.Since(epoch) / time.Microsecond))
}

// RouteDebugToGlog sends core debug output to glog
func RouteDebugToGlog() {
	debugOnce.Do(func() {
		core.SetDebugWriter(func(s string) {
			glog.Info(s)
		})
		core.InitAsyncDebug()
	})
}

// VirtualSlave is one simulated LED slave
type VirtualSlave struct {
	slave *core.Slave
	gpio  *MemoryGPIO

	// ReadTimeout is passed to the transport for ports that return
	// io.EOF on a read timeout
	ReadTimeout bool

	// CharTime paces delivery to the wire rate. Host reads return whole
	// chunks; pacing makes a bench run keep real UART timing.
	CharTime time.Duration
}

// CharTimeFor returns the time one 10-bit frame takes at baud
func CharTimeFor(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Duration(10 * int64(time.Second) / int64(baud))
}

// New builds a virtual slave for cfg
func New(cfg *core.Config) (*VirtualSlave, error) {
	gpio := NewMemoryGPIO()
	slave, err := core.NewSlave(cfg, gpio)
	if err != nil {
		return nil, err
	}

	v := &VirtualSlave{slave: slave, gpio: gpio}
	slave.Assembler().SetObserver(v.observe)
	return v, nil
}

func (v *VirtualSlave) observe(state core.LineState, line []byte) {
	if state == core.StateLineOverflowed {
		glog.Warningf("slave %d: overflow, discarded %q", v.slave.Config().DeviceID, line)
		return
	}
	if glog.V(1) {
		glog.Infof("slave %d: line %q", v.slave.Config().DeviceID, line)
	}
}

// Serve feeds bytes from rw into the slave until ctx is done or rw fails.
// In deferred mode the main context runs alongside in its own goroutine.
func (v *VirtualSlave) Serve(ctx context.Context, rw io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if v.slave.Assembler().Mode() == core.DispatchDeferred {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.slave.Run(ctx)
		}()
	}

	t := protocol.NewTransport(rw)
	t.ReadTimeout = v.ReadTimeout
	err := t.Pump(ctx, protocol.ByteSinkFunc(func(b byte) {
		if v.CharTime > 0 {
			time.Sleep(v.CharTime)
		}
		v.receive(ctx, b)
	}))

	cancel()
	wg.Wait()
	// Interpret a line that completed just before the link closed
	v.slave.Poll()

	if err == io.EOF {
		return nil
	}
	return err
}

// receive holds b back while a line is pending, like a UART ring the
// reader stops draining, and offers it again once Poll frees the buffer
func (v *VirtualSlave) receive(ctx context.Context, b byte) {
	a := v.slave.Assembler()
	tick()
	for !a.TryReceive(b) {
		select {
		case <-a.Free():
		case <-ctx.Done():
			return
		}
	}
}

// Feed delivers data synchronously and runs any pending dispatch
func (v *VirtualSlave) Feed(data []byte) {
	for _, b := range data {
		tick()
		v.slave.Receive(b)
		v.slave.Poll()
	}
}

// Shutdown drives every output low
func (v *VirtualSlave) Shutdown() {
	v.slave.Shutdown()
}

// Slave returns the firmware core
func (v *VirtualSlave) Slave() *core.Slave {
	return v.slave
}

// GPIO returns the simulated pins
func (v *VirtualSlave) GPIO() *MemoryGPIO {
	return v.gpio
}

// LEDs returns the state of every configured output by name
func (v *VirtualSlave) LEDs() map[string]bool {
	leds := make(map[string]bool)
	for _, line := range v.slave.Outputs().Lines() {
		leds[line.Name] = line.On
	}
	return leds
}
