package publish

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"touchtone/command"
	"touchtone/dtmf"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client  paho.Client
	prefix  string
	session string
}

// NewRealPublisher connects to broker. Every run gets its own session id,
// used in the client id and in the payloads.
func NewRealPublisher(broker, prefix string) (*RealPublisher, error) {
	if prefix == "" {
		prefix = DefaultTopic
	}
	session := uuid.NewString()

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("touchtone-" + session[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:  client,
		prefix:  prefix,
		session: session,
	}, nil
}

// Session returns the id sent with every payload.
func (p *RealPublisher) Session() string { return p.session }

func (p *RealPublisher) PublishKeypress(k dtmf.Keypress) error {
	payload, err := FormatKeypress(p.session, k)
	if err != nil {
		return fmt.Errorf("format keypress: %w", err)
	}
	return p.publish(KeysTopic(p.prefix), payload)
}

func (p *RealPublisher) PublishCommand(r command.Result) error {
	payload, err := FormatCommand(p.session, r)
	if err != nil {
		return fmt.Errorf("format command: %w", err)
	}
	return p.publish(CommandsTopic(p.prefix), payload)
}

func (p *RealPublisher) publish(topic string, payload []byte) error {
	// QoS 0, not retained
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
