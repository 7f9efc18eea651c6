//go:build rp2040 || rp2350

package main

import (
	_ "embed"
	"machine"
	"time"

	"uartslave/config"
	"uartslave/core"
	"uartslave/targets/pio"
)

//go:embed slave.json
var slaveJSON []byte

var (
	slave  *core.Slave
	status *StatusPixel

	// Debug counters
	loopErrors   uint32
	readerErrors uint32
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// USB CDC carries debug output only; the command link is the UART
	InitUSBDebug()

	InitClock()

	cfg, err := config.LoadConfig(slaveJSON)
	if err != nil {
		core.DebugPrintln("[BOOT] bad slave.json, using defaults: " + err.Error())
		cfg = config.DefaultConfig()
	}
	core.SetDebugEnabled(cfg.Debug)
	core.InitAsyncDebug()

	driver, err := NewOutputDriver(GetMode(cfg))
	if err != nil {
		core.DebugPrintln("[BOOT] output backend: " + err.Error())
		driver = NewRPGPIODriver()
	}

	slave, err = core.NewSlave(cfg, driver)
	if err != nil {
		core.DebugPrintln("[BOOT] slave: " + err.Error())
		// Nothing to drive; hand a claimed state machine back, leave the
		// pixel red and idle
		if bank, ok := driver.(*pio.OutputBank); ok {
			bank.Stop()
		}
		status = NewStatusPixel(statusPixelPin)
		status.Fault()
		for {
			time.Sleep(time.Second)
		}
	}

	status = NewStatusPixel(statusPixelPin)
	slave.Assembler().SetObserver(status.Observe)

	if err := InitCommandUART(); err != nil {
		core.DebugPrintln("[BOOT] uart: " + err.Error())
		status.Fault()
	}

	core.DebugPrintln("[BOOT] slave " + itoa(int(cfg.DeviceID)) +
		" ready, dispatch=" + cfg.Dispatch.String())

	// Start the receiver context
	go uartReaderLoop()

	var discarded uint32

	// Main loop
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopErrors++
					slave.Assembler().Reset()
				}
			}()

			// Update system time from hardware
			UpdateSystemTime()

			// Deferred hand-off: interpret a completed line outside the
			// critical section
			slave.Poll()

			// Post-mortem for every overflow while debugging
			if st := slave.Assembler().Stats(); st.LinesDiscarded != discarded {
				discarded = st.LinesDiscarded
				if core.IsDebugEnabled() {
					core.DumpEventRing()
				}
			}

			status.Update(GetHardwareUptime())
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// uartReaderLoop moves bytes from the UART receive ring into the assembler.
// It is the receiver context; in inline mode interpretation happens here.
// While a line waits for the main loop the bytes behind it stay in the
// ring; only a full ring loses data.
func uartReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			readerErrors++
			// Restart the reader loop
			time.Sleep(100 * time.Millisecond)
			go uartReaderLoop()
		}
	}()

	for {
		for UARTAvailable() > 0 && !slave.Busy() {
			b, err := UARTRead()
			if err != nil {
				readerErrors++
				break
			}
			slave.Receive(b)
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
