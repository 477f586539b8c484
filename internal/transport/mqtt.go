package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectRetryInterval = 5 * time.Second
	mqttKeepAlive            = 30 * time.Second
	mqttPublishTimeout       = 5 * time.Second
	mqttDisconnectQuiesceMs  = 250
)

// WithMQTTLogger sets the logger for the MQTT transport.
func WithMQTTLogger(logger *slog.Logger) func(*MQTT) {
	return func(m *MQTT) {
		m.logger = logger
	}
}

// MQTT mirrors telemetry lines to an MQTT topic. The transport is strictly
// transmit-only: it subscribes to nothing and accepts no inbound commands.
type MQTT struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// NewMQTT creates an MQTT mirror publishing to topic on the given broker.
func NewMQTT(broker string, port int, clientID, topic string, options ...func(*MQTT)) *MQTT {
	m := MQTT{
		topic:  topic,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&m)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(mqttConnectRetryInterval)
	opts.SetKeepAlive(mqttKeepAlive)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		m.logger.Info("mqtt connected", slog.String("broker", broker), slog.Int("port", port))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warn("mqtt connection lost", slog.Any("error", err))
	})

	m.client = mqtt.NewClient(opts)
	return &m
}

// Connect establishes the broker connection, waiting until it is up or ctx
// is cancelled.
func (m *MQTT) Connect(ctx context.Context) error {
	token := m.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// SendLine publishes the telemetry line as-is to the configured topic.
func (m *MQTT) SendLine(line string) error {
	if !m.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	token := m.client.Publish(m.topic, 0, false, []byte(line))
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish timeout for topic %s", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}

	return nil
}

// Close disconnects from the broker, quiescing in-flight work briefly.
func (m *MQTT) Close() error {
	m.client.Disconnect(mqttDisconnectQuiesceMs)
	m.logger.Info("mqtt disconnected")
	return nil
}
