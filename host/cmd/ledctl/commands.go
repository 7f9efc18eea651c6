package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"uartslave/core"
	"uartslave/host/master"
)

var commands = []*ishell.Cmd{
	&OnCmd,
	&OffCmd,
	&SendCmd,
	&RawCmd,
	&IDCmd,
	&ActionsCmd,
	&StatsCmd,
	&LEDsCmd,
	&EventsCmd,
	&DictCmd,
}

// ledAction maps "red on" to LED_RED_ON
func ledAction(color, state string) (string, error) {
	action := "LED_" + strings.ToUpper(color) + "_" + state
	for _, a := range master.Actions() {
		if a == action {
			return action, nil
		}
	}
	return "", fmt.Errorf("unknown LED %q", color)
}

func ledCmd(state string) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) != 1 {
			c.Err(fmt.Errorf("usage: %s COLOR", strings.ToLower(state)))
			return
		}
		action, err := ledAction(c.Args[0], state)
		if err != nil {
			c.Err(err)
			return
		}
		ctl := CtlFrom(c)
		if err := ctl.Master.Send(ctl.ID, action); err != nil {
			c.Err(err)
		}
	}
}

func ledColors() []string {
	seen := map[string]bool{}
	var colors []string
	for _, a := range master.Actions() {
		color := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(strings.TrimPrefix(a, "LED_"), "_ON"), "_OFF"))
		if !seen[color] {
			seen[color] = true
			colors = append(colors, color)
		}
	}
	return colors
}

var (
	// OnCmd turns an LED on.
	OnCmd = ishell.Cmd{
		Name:      "on",
		Help:      "COLOR",
		Func:      ledCmd("ON"),
		Completer: func([]string) []string { return ledColors() },
	}

	// OffCmd turns an LED off.
	OffCmd = ishell.Cmd{
		Name:      "off",
		Help:      "COLOR",
		Func:      ledCmd("OFF"),
		Completer: func([]string) []string { return ledColors() },
	}

	// SendCmd sends any action, recognized or not.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "ACTION",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: send ACTION"))
				return
			}
			ctl := CtlFrom(c)
			if err := ctl.Master.Send(ctl.ID, c.Args[0]); err != nil {
				c.Err(err)
			}
		},
		Completer: func([]string) []string { return master.Actions() },
	}

	// RawCmd sends a line verbatim; -f skips the length check.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "[-f] LINE",
		Func: func(c *ishell.Context) {
			args := c.Args
			force := len(args) > 0 && args[0] == "-f"
			if force {
				args = args[1:]
			}
			if len(args) == 0 {
				c.Err(fmt.Errorf("usage: raw [-f] LINE"))
				return
			}
			if err := CtlFrom(c).Master.SendRaw(strings.Join(args, " "), force); err != nil {
				c.Err(err)
			}
		},
	}

	// IDCmd shows or changes the target slave.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "[N]",
		Func: func(c *ishell.Context) {
			ctl := CtlFrom(c)
			if len(c.Args) == 0 {
				c.Println(ctl.ID)
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(fmt.Errorf("slave id must be 0-255"))
				return
			}
			ctl.ID = uint8(id)
			ctl.updatePrompt()
		},
	}

	// ActionsCmd lists the recognized actions.
	ActionsCmd = ishell.Cmd{
		Name:    "actions",
		Aliases: []string{"a"},
		Func: func(c *ishell.Context) {
			for _, a := range master.Actions() {
				c.Println(a)
			}
		},
	}

	// StatsCmd prints link and slave counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: func(c *ishell.Context) {
			ctl := CtlFrom(c)
			c.Printf("sent: %d\n", ctl.Master.Sent())
			if ctl.Sim == nil {
				return
			}
			st := ctl.Sim.Slave().Assembler().Stats()
			c.Printf("bytes: %d received, %d dropped, %d dropped busy\n",
				st.BytesReceived, st.BytesDropped, st.BusyDropped)
			c.Printf("lines: %d dispatched, %d discarded\n", st.LinesDispatched, st.LinesDiscarded)
			ist := ctl.Sim.Slave().Interpreter().Stats()
			c.Printf("interpreter: %d executed, %d default, %d ignored, %d errors\n",
				ist.Executed, ist.Defaults, ist.Ignored, ist.Errors)
		},
	}

	// LEDsCmd shows the virtual slave's outputs.
	LEDsCmd = ishell.Cmd{
		Name: "leds",
		Func: func(c *ishell.Context) {
			ctl := CtlFrom(c)
			if ctl.Sim == nil {
				c.Err(fmt.Errorf("leds needs -sim; a hardware slave does not report state"))
				return
			}
			leds := ctl.Sim.LEDs()
			names := make([]string, 0, len(leds))
			for name := range leds {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				state := "off"
				if leds[name] {
					state = "ON"
				}
				c.Printf("%-10s %s\n", name, state)
			}
		},
	}

	// EventsCmd dumps the virtual slave's line event ring
	EventsCmd = ishell.Cmd{
		Name: "events",
		Help: "[clear]",
		Func: func(c *ishell.Context) {
			if CtlFrom(c).Sim == nil {
				c.Err(fmt.Errorf("events needs -sim; a hardware slave dumps them on its debug port"))
				return
			}
			if len(c.Args) == 1 && c.Args[0] == "clear" {
				core.ClearEventRing()
				return
			}
			for _, evt := range core.Events() {
				c.Printf("%10dus %-10s %d\n", core.TimerToUS(evt.Clock), core.EventName(evt.EventType), evt.Value)
			}
		},
	}

	// DictCmd prints the action table the slaves are built with
	DictCmd = ishell.Cmd{
		Name: "dict",
		Func: func(c *ishell.Context) {
			c.Print(core.NewLEDRegistry().GetDictionary())
		},
	}
)
