package main

import (
	"context"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"

	"github.com/dylanxu/specgo/logging"
)

// notifier publishes a campaign's short-form summary to an MQTT broker
// once the run completes, a one-shot notification rather than a
// continuous stream.
type notifier struct {
	client *paho.Client
	topic  string
	qos    byte
}

func connectNotifier(broker, clientID, topic string, qos byte) (*notifier, error) {
	conn, err := net.Dial("tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt: dial %s: %w", broker, err)
	}
	conn = packets.NewThreadSafeConn(conn)

	client := paho.NewClient(paho.ClientConfig{Conn: conn})
	ca, err := client.Connect(context.Background(), &paho.Connect{
		KeepAlive:  30,
		ClientID:   clientID,
		CleanStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, err)
	}
	if ca.ReasonCode != 0 {
		return nil, fmt.Errorf("mqtt: connect %s rejected: reason=%d", broker, ca.ReasonCode)
	}

	logging.Log.Infof("mqtt: connected to %s", broker)
	return &notifier{client: client, topic: topic, qos: qos}, nil
}

func (n *notifier) publish(payload []byte) error {
	_, err := n.client.Publish(context.Background(), &paho.Publish{
		Topic:   n.topic,
		QoS:     n.qos,
		Payload: payload,
	})
	return err
}

func (n *notifier) close() {
	_ = n.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
