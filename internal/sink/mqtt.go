package sink

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nmea-ng/internal/nmea"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         int
	Retain      bool
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each sentence to <prefix>/<tag>.
type MQTT struct {
	client  mqtt.Client
	pub     mqttPublisher
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

const publishTimeout = 2 * time.Second

// DialMQTT connects to the broker. The client reconnects on its own after
// the initial connection succeeded.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt connection lost broker=%s: %v", cfg.Broker, err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	log.Printf("mqtt connected broker=%s client_id=%s", cfg.Broker, cfg.ClientID)

	m := newMQTT(client, cfg)
	m.client = client
	return m, nil
}

func newMQTT(pub mqttPublisher, cfg MQTTConfig) *MQTT {
	return &MQTT{
		pub:     pub,
		prefix:  cfg.TopicPrefix,
		qos:     byte(cfg.QoS),
		retain:  cfg.Retain,
		timeout: publishTimeout,
	}
}

func (m *MQTT) Topic(tag string) string {
	if m.prefix == "" {
		return tag
	}
	return m.prefix + "/" + tag
}

func (m *MQTT) Handle(msg nmea.Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("mqtt encode %s: %w", msg.Sentence.Tag, err)
	}
	topic := m.Topic(msg.Sentence.Tag)
	token := m.pub.Publish(topic, m.qos, m.retain, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
