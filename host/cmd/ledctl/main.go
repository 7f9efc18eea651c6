// Command ledctl sends LED commands to slaves over a serial link.
//
//	ledctl -device /dev/ttyUSB0 on red
//	ledctl -sim                      # interactive, against a virtual slave
//	echo "send LED_BLUE_ON" | ledctl -device /dev/ttyUSB0
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"golang.org/x/term"

	"uartslave/host/config"
	"uartslave/host/master"
	"uartslave/host/sim"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	slaveID    = flag.Int("id", -1, "Target slave id (overrides config)")
	useSim     = flag.Bool("sim", false, "Talk to an in-process virtual slave")
	evalOnly   = flag.Bool("e", false, "Evaluation only, no interactive shell")
)

// Ctl is the state shared by shell commands
type Ctl struct {
	Master *master.Master
	Sim    *sim.VirtualSlave
	ID     uint8

	Shell *ishell.Shell
}

const ctlKey = "$ctl"

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctl := &Ctl{
		Master: master.New(cfg.Line.Capacity, cfg.Terminator()),
		ID:     cfg.SlaveID(),
	}

	if *useSim {
		if err := ctl.startSim(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: virtual slave: %v\n", err)
			os.Exit(1)
		}
	} else {
		if cfg.Serial.Device == "" {
			fmt.Fprintln(os.Stderr, "Error: no serial device (use -device, -config or -sim)")
			os.Exit(1)
		}
		if err := ctl.Master.ConnectWithConfig(cfg.SerialPort()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
			os.Exit(1)
		}
	}
	defer ctl.Master.Close()
	if ctl.Sim != nil {
		defer ctl.Sim.Shutdown()
	}

	ctl.Shell = ishell.New()
	ctl.Shell.Set(ctlKey, ctl)
	ctl.updatePrompt()
	for _, cmd := range commands {
		ctl.Shell.AddCmd(cmd)
	}

	if args := flag.Args(); len(args) > 0 {
		if err := ctl.Shell.Process(args...); err != nil {
			glog.Exitf("%v", err)
		}
		return
	}

	interactive := !*evalOnly && term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		ctl.Shell.Run()
		return
	}
	if err := runBatch(os.Stdin, ctl.Shell.Process); err != nil {
		glog.Exitf("%v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	// Flags override the file
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
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

// startSim wires the master to a virtual slave through a pipe
func (ctl *Ctl) startSim(cfg *config.Config) error {
	sim.RouteDebugToGlog()

	v, err := sim.New(cfg.Firmware())
	if err != nil {
		return err
	}
	v.CharTime = sim.CharTimeFor(cfg.Serial.Baud)
	ctl.Sim = v

	r, w := io.Pipe()
	ctl.Master.Attach(pipeLink{Writer: w, Closer: w})
	go func() {
		if err := v.Serve(context.Background(), pipeLink{Reader: r}); err != nil {
			glog.Errorf("virtual slave: %v", err)
		}
	}()
	return nil
}

type pipeLink struct {
	io.Reader
	io.Writer
	io.Closer
}

// runBatch runs one shell command per input line. Blank lines and
// # comments are skipped; the first failing command stops the batch.
func runBatch(in io.Reader, process func(args ...string) error) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := process(strings.Fields(line)...); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (ctl *Ctl) updatePrompt() {
	target := fmt.Sprintf("s%d", ctl.ID)
	if ctl.Sim != nil {
		target += " sim"
	}
	ctl.Shell.SetPrompt("[" + target + "] > ")
}

// CtlFrom gets Ctl from ishell context
func CtlFrom(c *ishell.Context) *Ctl {
	return c.Get(ctlKey).(*Ctl)
}
