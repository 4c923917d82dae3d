package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTNotifier publishes events to <topic>/<event type> with QoS 1.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
}

// NewMQTTNotifier connects to broker. The client reconnects on its own after a lost connection.
func NewMQTTNotifier(broker, clientID, topic string) (*MQTTNotifier, error) {
	if topic == "" {
		topic = "fleet/reservations"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTNotifier{client: client, topic: topic}, nil
}

func (n *MQTTNotifier) Notify(ctx context.Context, e Event) error {
	body, err := e.encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	tok := n.client.Publish(n.topic+"/"+e.Type, 1, false, body)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish: %w", ctx.Err())
	}
}

func (n *MQTTNotifier) Close() error {
	n.client.Disconnect(250)
	return nil
}
