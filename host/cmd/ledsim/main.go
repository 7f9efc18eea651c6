// Command ledsim runs a virtual LED slave on a serial port, or on
// stdin/stdout when no device is given.
//
//	ledsim -device /dev/ttyUSB1 -id 2 -v 1
//	printf 's1_LED_RED_ON\r' | ledsim -logtostderr
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"uartslave/core"
	"uartslave/host/config"
	"uartslave/host/serial"
	"uartslave/host/sim"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	device     = flag.String("device", "", "Serial device path; stdin/stdout when empty")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	slaveID    = flag.Int("id", -1, "Slave id (overrides config)")
	dispatch   = flag.String("dispatch", "", "Dispatch mode: deferred or inline (overrides config)")
)

type stdio struct {
	io.Reader
	io.Writer
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sim.RouteDebugToGlog()
	v, err := sim.New(cfg.Firmware())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pins := make(map[core.GPIOPin]string)
	for _, line := range v.Slave().Outputs().Lines() {
		pins[line.Pin] = line.Name
	}
	v.GPIO().OnChange(func(pin core.GPIOPin, value bool) {
		state := "off"
		if value {
			state = "on"
		}
		glog.Infof("slave %d: %s %s (pin %d)", cfg.SlaveID(), pins[pin], state, pin)
	})

	var link io.ReadWriter = stdio{os.Stdin, os.Stdout}
	if cfg.Serial.Device != "" {
		port, err := serial.Open(cfg.SerialPort())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()
		if np, ok := port.(*serial.NativePort); ok {
			// Stale input from before we opened the port is not a command
			if err := np.Discard(); err != nil {
				glog.Warningf("discard: %v", err)
			}
		}
		link = port
		// tarm reports a read timeout as io.EOF
		v.ReadTimeout = true
		v.CharTime = sim.CharTimeFor(cfg.Serial.Baud)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	glog.Infof("slave %d: serving on %s (%s dispatch)", cfg.SlaveID(), linkName(cfg), v.Slave().Assembler().Mode())
	err = v.Serve(ctx, link)
	v.Shutdown()
	if glog.V(2) {
		core.DumpEventRing()
	}

	st := v.Slave().Assembler().Stats()
	glog.Infof("slave %d: %d lines, %d discarded, %d bytes dropped, %d dropped busy",
		cfg.SlaveID(), st.LinesDispatched, st.LinesDiscarded, st.BytesDropped, st.BusyDropped)
	if err != nil && err != context.Canceled {
		glog.Errorf("serve: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func linkName(cfg *config.Config) string {
	if cfg.Serial.Device == "" {
		return "stdio"
	}
	return cfg.Serial.Device + " " + cfg.SerialPort().String()
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *dispatch != "" {
		cfg.Slave.Dispatch = *dispatch
	}
	if *slaveID >= 0 {
		if *slaveID > 255 {
			return nil, fmt.Errorf("slave id %d out of range 0-255", *slaveID)
		}
		id := uint8(*slaveID)
		cfg.Slave.ID = &id
	}
	return cfg, config.Validate(cfg)
}
