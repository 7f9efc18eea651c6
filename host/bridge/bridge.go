// Package bridge forwards MQTT messages to LED slaves.
//
// A message on <prefix>/<id>/cmd with payload LED_RED_ON becomes the line
// s<id>_LED_RED_ON on the serial link. The outcome is published on
// <prefix>/<id>/status.
package bridge

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"uartslave/host/config"
)

// Sender delivers an action to a slave. *master.Master implements it.
type Sender interface {
	Send(id uint8, action string) error
}

var (
	// ErrTopic is returned for a topic outside <prefix>/<id>/cmd
	ErrTopic = errors.New("topic is not <prefix>/<id>/cmd")
	// ErrPayload is returned for an empty or multi-word payload
	ErrPayload = errors.New("payload must be a single action name")
)

const appID = "uartslave-bridge"

// Bridge subscribes to command topics and forwards them to a Sender
type Bridge struct {
	Client paho.Client

	sender Sender
	prefix string
	qos    byte

	forwarded uint32
	rejected  uint32
}

// ClientOptions builds paho options from the mqtt config section.
// Without a configured client id one is derived from the machine id.
func ClientOptions(cfg config.MQTTConfig) (*paho.ClientOptions, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt broker %q: %w", cfg.Broker, err)
	}
	server := u.Scheme
	if server == "" || server == "mqtt" {
		server = "tcp"
	}
	server += "://" + u.Host

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID()
	}
	opts.SetClientID(clientID)
	return opts, nil
}

// DefaultClientID returns a stable per-machine client id
func DefaultClientID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil || len(id) < 12 {
		return appID
	}
	return appID + "-" + id[:12]
}

// New creates a bridge. opts gets the bridge's connect handlers installed.
func New(opts *paho.ClientOptions, sender Sender, prefix string, qos byte) *Bridge {
	b := &Bridge{
		sender: sender,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    qos,
	}
	if opts != nil {
		opts.SetOnConnectHandler(b.onConnect)
		opts.SetConnectionLostHandler(b.onConnectionLost)
		b.Client = paho.NewClient(opts)
	}
	return b
}

// Start connects to the broker; subscriptions are made on every connect
func (b *Bridge) Start() error {
	token := b.Client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Close disconnects from the broker
func (b *Bridge) Close() error {
	if b.Client != nil {
		b.Client.Disconnect(250)
	}
	return nil
}

// Filter returns the subscription filter
func (b *Bridge) Filter() string {
	return b.prefix + "/+/cmd"
}

func (b *Bridge) onConnect(c paho.Client) {
	glog.Info("connected")
	if glog.V(2) {
		glog.Infof("SUB %q", b.Filter())
	}
	token := c.Subscribe(b.Filter(), b.qos, b.dispatch)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			glog.Errorf("subscribe %q: %v", b.Filter(), err)
		}
	}()
}

func (b *Bridge) onConnectionLost(c paho.Client, err error) {
	glog.Warningf("connection lost: %v", err)
}

func (b *Bridge) dispatch(c paho.Client, msg paho.Message) {
	glog.V(2).Infof("RCV %q", msg.Topic())
	id, err := b.Handle(msg.Topic(), msg.Payload())
	if errors.Is(err, ErrTopic) {
		glog.Warningf("ignoring %q: %v", msg.Topic(), err)
		return
	}

	status := "ok"
	if err != nil {
		status = "error: " + err.Error()
		glog.Warningf("slave %d: %v", id, err)
	}
	c.Publish(b.StatusTopic(id), b.qos, false, status)
}

// Handle forwards one message and returns the addressed slave id
func (b *Bridge) Handle(topic string, payload []byte) (uint8, error) {
	id, err := ParseTopic(b.prefix, topic)
	if err != nil {
		atomic.AddUint32(&b.rejected, 1)
		return 0, err
	}

	action := strings.TrimSpace(string(payload))
	if action == "" || strings.ContainsAny(action, " \t\r\n") {
		atomic.AddUint32(&b.rejected, 1)
		return id, fmt.Errorf("%w: %q", ErrPayload, payload)
	}

	if err := b.sender.Send(id, action); err != nil {
		atomic.AddUint32(&b.rejected, 1)
		return id, err
	}
	atomic.AddUint32(&b.forwarded, 1)
	return id, nil
}

// StatusTopic returns <prefix>/<id>/status
func (b *Bridge) StatusTopic(id uint8) string {
	return b.prefix + "/" + strconv.Itoa(int(id)) + "/status"
}

// Stats returns forwarded and rejected message counts
func (b *Bridge) Stats() (forwarded, rejected uint32) {
	return atomic.LoadUint32(&b.forwarded), atomic.LoadUint32(&b.rejected)
}

// ParseTopic extracts the slave id from <prefix>/<id>/cmd
func ParseTopic(prefix, topic string) (uint8, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(topic, prefix+"/") {
		return 0, ErrTopic
	}
	parts := strings.Split(topic[len(prefix)+1:], "/")
	if len(parts) != 2 || parts[1] != "cmd" {
		return 0, ErrTopic
	}
	id, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", ErrTopic, parts[0])
	}
	return uint8(id), nil
}
