// Command ledbridge forwards MQTT commands to LED slaves on a serial link.
//
//	ledbridge -config bench.yaml
//	mosquitto_pub -t uartslave/1/cmd -m LED_RED_ON
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"uartslave/host/bridge"
	"uartslave/host/config"
	"uartslave/host/master"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	broker     = flag.String("broker", "", "MQTT broker URL (overrides config)")
	topic      = flag.String("topic", "", "MQTT topic prefix (overrides config)")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fail(err)
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *topic != "" {
		cfg.MQTT.Topic = *topic
	}
	if err := config.Validate(cfg); err != nil {
		fail(err)
	}
	if cfg.Serial.Device == "" || cfg.MQTT.Broker == "" {
		fail(fmt.Errorf("both a serial device and an mqtt broker are required"))
	}

	m := master.New(cfg.Line.Capacity, cfg.Terminator())
	if err := m.ConnectWithConfig(cfg.SerialPort()); err != nil {
		fail(err)
	}
	defer m.Close()

	opts, err := bridge.ClientOptions(cfg.MQTT)
	if err != nil {
		fail(err)
	}
	b := bridge.New(opts, m, cfg.MQTT.Topic, cfg.MQTT.QoS)
	if err := b.Start(); err != nil {
		fail(err)
	}
	defer b.Close()
	glog.Infof("bridging %s to %s", b.Filter(), cfg.Serial.Device)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	forwarded, rejected := b.Stats()
	glog.Infof("%d forwarded, %d rejected", forwarded, rejected)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	glog.Flush()
	os.Exit(1)
}
